package storage

import (
	"errors"
	"strings"

	logx "redwatch/pkg/logx"
)

// Store is the persistence API used by the subscription registry.
//
// Load returns all destination records keyed by destination identifier.
// Save is a full rewrite of the stored collection, not an incremental
// update.
type Store interface {
	Load() (map[string]Record, error)
	Save(records map[string]Record) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
