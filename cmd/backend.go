package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/config"
	"github.com/kozaktomas/visionauth/internal/constants"
	"github.com/kozaktomas/visionauth/internal/database"
	"github.com/kozaktomas/visionauth/internal/database/file"
	"github.com/kozaktomas/visionauth/internal/database/mariadb"
	"github.com/kozaktomas/visionauth/internal/database/postgres"
	"github.com/kozaktomas/visionauth/internal/database/s3store"
	"github.com/kozaktomas/visionauth/internal/recognition"
)

// defaultNamespace keeps CLI state apart from the per-device state of the web server.
const defaultNamespace = "cli"

// Storage backend names.
const (
	backendFile     = "file"
	backendPostgres = "postgres"
	backendMariaDB  = "mariadb"
	backendS3       = "s3"
)

// kvStore is a key-value backend that holds resources until closed.
type kvStore interface {
	database.KeyValueStore
	Close() error
}

// loadConfig reads the environment and applies the persistent flag overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if providerName != "" {
		cfg.Recognition.Provider = strings.ToLower(providerName)
	}
	if backendName != "" {
		cfg.Storage.Backend = strings.ToLower(backendName)
	}
	return cfg
}

// openStore connects to the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config) (kvStore, error) {
	switch cfg.Storage.Backend {
	case backendFile, "":
		return file.New(cfg.Storage.Path), nil
	case backendPostgres:
		if cfg.Database.URL == "" {
			return nil, errors.New("DATABASE_URL environment variable is required for the postgres backend")
		}
		store, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		return store, nil
	case backendMariaDB:
		if cfg.MariaDB.DSN == "" {
			return nil, errors.New("MARIADB_DSN environment variable is required for the mariadb backend")
		}
		store, err := mariadb.Open(ctx, cfg.MariaDB.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case backendS3:
		if cfg.S3.Bucket == "" {
			return nil, errors.New("S3_BUCKET environment variable is required for the s3 backend")
		}
		store, err := s3store.Open(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (use file, postgres, mariadb or s3)", cfg.Storage.Backend)
	}
}

// newRecognizer builds the recognition client for the configured provider.
func newRecognizer(ctx context.Context, cfg *config.Config) (*recognition.Client, error) {
	provider, err := recognition.NewProvider(ctx, cfg.Recognition.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognition provider: %w", err)
	}
	return recognition.NewClient(provider), nil
}

func newTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	secret := cfg.Web.Secret
	if secret == "" {
		secret = constants.DevSecret
	}
	return auth.NewTokenIssuer([]byte(secret), time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
}

func authPolicy(cfg *config.Config) auth.Policy {
	return auth.Policy{
		Threshold: cfg.Auth.VerifyThreshold,
		LogCap:    cfg.Auth.LogCap,
		Email:     cfg.Auth.DemoEmail,
	}
}

// storeFactory namespaces the shared backend per device.
func storeFactory(kv database.KeyValueStore) auth.StoreFactory {
	return func(deviceID string) auth.Store {
		return database.NewProfileRepository(database.WithPrefix(kv, deviceID))
	}
}

// openController loads the controller of the CLI namespace.
func openController(ctx context.Context, cfg *config.Config, kv database.KeyValueStore, recognizer auth.Recognizer) (*auth.Controller, error) {
	c := auth.NewController(storeFactory(kv)(namespace), recognizer, authPolicy(cfg), auth.WithTokenIssuer(newTokenIssuer(cfg)))
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return c, nil
}
