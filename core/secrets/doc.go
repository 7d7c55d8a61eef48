// Package secrets resolves object storage credentials at runtime.
//
// Credentials are never compiled in. The storage constructors receive a
// Provider and ask it for keys once, when the client is built.
//
// # Providers
//
//   - Env: reads named environment variables (STORAGE_ACCESS_KEY by default).
//   - File: reads a YAML document with access_key_id and secret_access_key.
//   - Chain: tries each provider in order.
//   - Static: fixed keys, meant for tests and local development.
package secrets
