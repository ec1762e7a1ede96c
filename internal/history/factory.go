package history

import (
	"context"
	"fmt"
	"strings"
)

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Backend    string // "mongo" or "sqlite"
	MongoURI   string
	Database   string
	Collection string
	SQLitePath string
}

// NewStore creates a Store for the configured backend.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "mongo", "mongodb":
		db, coll := cfg.Database, cfg.Collection
		if db == "" {
			db = "biodash"
		}
		if coll == "" {
			coll = "events"
		}
		s, err := NewMongoStore(ctx, cfg.MongoURI, db, coll)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "sqlite3", "":
		if cfg.SQLitePath == "" {
			cfg.SQLitePath = "biodash.db"
		}
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}
