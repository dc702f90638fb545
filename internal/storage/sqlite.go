package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "redwatch/pkg/logx"
)

// sqliteStore persists the same records as the file driver in two
// tables. processed_items keeps an explicit seq column so insertion
// order (and therefore trim order) survives round trips.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	dest     TEXT PRIMARY KEY,
	keywords TEXT NOT NULL,
	sources  TEXT NOT NULL,
	enabled  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS processed_items (
	dest    TEXT NOT NULL,
	seq     INTEGER NOT NULL,
	item_id TEXT NOT NULL,
	PRIMARY KEY (dest, seq)
);
`

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load() (map[string]Record, error) {
	out := map[string]Record{}

	rows, err := s.db.Query(`SELECT dest, keywords, sources, enabled FROM subscriptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dest, kw, src string
		var enabled int
		if err := rows.Scan(&dest, &kw, &src, &enabled); err != nil {
			return nil, err
		}
		rec := Record{Enabled: enabled != 0}
		if err := json.Unmarshal([]byte(kw), &rec.Keywords); err != nil {
			s.log.Warn("unreadable keywords column", logx.String("destination", dest), logx.Err(err))
		}
		if err := json.Unmarshal([]byte(src), &rec.Sources); err != nil {
			s.log.Warn("unreadable sources column", logx.String("destination", dest), logx.Err(err))
		}
		out[dest] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	irows, err := s.db.Query(`SELECT dest, item_id FROM processed_items ORDER BY dest, seq`)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var dest, id string
		if err := irows.Scan(&dest, &id); err != nil {
			return nil, err
		}
		rec, ok := out[dest]
		if !ok {
			continue
		}
		rec.ProcessedItems = append(rec.ProcessedItems, id)
		out[dest] = rec
	}
	return out, irows.Err()
}

func (s *sqliteStore) Save(records map[string]Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Same full-rewrite semantics as the file driver.
	if _, err := tx.Exec(`DELETE FROM subscriptions`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM processed_items`); err != nil {
		return err
	}

	subStmt, err := tx.Prepare(`INSERT INTO subscriptions (dest, keywords, sources, enabled) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer subStmt.Close()
	itemStmt, err := tx.Prepare(`INSERT INTO processed_items (dest, seq, item_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()

	for dest, rec := range records {
		kw, err := json.Marshal(emptyIfNil(rec.Keywords))
		if err != nil {
			return err
		}
		src, err := json.Marshal(emptyIfNil(rec.Sources))
		if err != nil {
			return err
		}
		enabled := 0
		if rec.Enabled {
			enabled = 1
		}
		if _, err := subStmt.Exec(dest, string(kw), string(src), enabled); err != nil {
			return err
		}
		for i, id := range rec.ProcessedItems {
			if _, err := itemStmt.Exec(dest, i, id); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
