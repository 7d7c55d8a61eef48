// Package config provides configuration management for sniffstore.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Every key is named SECTION_FIELD, for example
// STORAGE_BUCKET or DETECT_MAX_PREFIX.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, body limit)
//   - Storage: driver, endpoint, bucket, default ACL
//   - Secrets: credential provider (env, file, chain)
//   - Detect: default media type, prefix length, extra rule file
//   - Log: Logging level and format
//   - Database: optional MySQL upload ledger
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
