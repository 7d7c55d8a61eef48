// Package integrity provides health checks for the bucket, the upload ledger
// and the objects stored in it.
//
// # Checks Provided
//
//   - Storage: pings the bucket and reports the round trip latency.
//   - Ledger: checks that the uploads table has every column the Upload model declares.
//   - Content: re-detects stored objects from their bytes and reports those whose
//     stored Content-Type disagrees. Optionally rewrites them with the detected type.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs the storage and ledger checks.
//   - GET /integrity/storage : Runs the storage check.
//   - GET /integrity/ledger : Runs the ledger schema check.
//   - GET /integrity/content : Runs the content check (supports ?prefix=, ?max= and ?fix=true).
package integrity
