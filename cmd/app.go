package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"sniffstore/core/config"
	"sniffstore/core/database"
	"sniffstore/core/detect"
	"sniffstore/core/logger"
	"sniffstore/core/secrets"
	"sniffstore/core/storage"
	"sniffstore/feature/files"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// deps is everything a command needs once configuration is loaded.
type deps struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   storage.Store
	db      *gorm.DB
	service *files.Service
}

// loadMatcher loads configuration and builds the detector only.
func loadMatcher() (*config.Config, *zap.Logger, *detect.Matcher, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	matcher, err := detect.NewFromConfig(cfg.Detect)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build detector: %w", err)
	}
	return cfg, logg, matcher, nil
}

// bootstrap wires config, logger, detector, storage, the optional ledger and
// the files service.
func bootstrap(ctx context.Context) (*deps, error) {
	cfg, logg, matcher, err := loadMatcher()
	if err != nil {
		return nil, err
	}

	provider, err := secrets.New(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials provider: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var db *gorm.DB
	if cfg.Database.Enabled {
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed, upload ledger disabled", zap.Error(err))
		} else if err := files.Migrate(conn); err != nil {
			logg.Warn("Upload ledger migration failed, ledger disabled", zap.Error(err))
		} else {
			db = conn
		}
	}

	svc, err := files.NewService(store, matcher, logg, db, files.Options{
		DefaultACL:   storage.ACL(cfg.Storage.DefaultACL),
		FileACL:      storage.ACL(cfg.Storage.FileACL),
		PollInterval: cfg.Storage.PollInterval(),
	})
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:     cfg,
		logger:  logg,
		store:   store,
		db:      db,
		service: svc,
	}, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
