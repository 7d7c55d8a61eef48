// Package database opens the optional MySQL connection behind the upload ledger.
//
// Connect wraps GORM with the mysql driver, applies pool limits and pings the
// server once within the configured timeout. When Config.Enabled is false the
// application never calls it and the ledger falls back to a no-op recorder.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Warn("Upload ledger disabled", zap.Error(err))
//	}
package database
