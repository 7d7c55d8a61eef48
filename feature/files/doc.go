// Package files implements the upload workflow on top of core/storage.
//
// Every upload carries a content type detected from the file's own bytes by a
// detect.Matcher; client supplied types are ignored. A Path is opened and
// sized, a Stream is sniffed and then replayed from its first byte, and a
// byte slice is resolved in memory.
//
// # Components
//
//   - Service: upload, download, metadata, ACL, share and URL operations with
//     object key validation.
//   - Recorder: the optional upload ledger, a MySQL table kept through GORM.
//     Without a database a no-op recorder is used.
//   - Audit and Repair: compare the ledger with the bucket through
//     core/reconcile and rewrite drifted rows.
//   - Handler: the Fiber routes under /files, /stat, /acl, /share, /url,
//     /detect, /uploads and /audit.
//   - Feature: mounts the handler through core/loader.
package files
