package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "redwatch/pkg/logx"
)

// fileStore keeps all destination records in one JSON document.
//
// Layout: {"<destination>": {"keywords": [...], "sources": [...],
// "processed_items": [...], "enabled": true}, ...}
//
// Earlier deployments stored a single implicit destination flat at the
// top level ({"keywords": [...], "subreddits": [...], ...}); Load
// migrates that shape to the keyed layout under cfg.LegacyDestination.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	path string

	legacyDest string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &fileStore{log: log, path: path, legacyDest: cfg.LegacyDestination}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Load() (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	if isLegacyLayout(raw) {
		rec := decodeLegacy(raw)
		dest := s.legacyDest
		if dest == "" {
			dest = "default"
		}
		s.log.Info("migrated legacy single-destination data file",
			logx.String("destination", dest),
			logx.Int("keywords", len(rec.Keywords)))
		return map[string]Record{dest: rec}, nil
	}

	out := make(map[string]Record, len(raw))
	for dest, msg := range raw {
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil {
			// A single unreadable record must not fail startup.
			s.log.Warn("skipping unreadable destination record",
				logx.String("destination", dest), logx.Err(err))
			continue
		}
		out[dest] = rec
	}
	return out, nil
}

// isLegacyLayout detects the flat single-destination shape: top-level
// "subreddits" (the old sources key) or a top-level "keywords" array.
func isLegacyLayout(raw map[string]json.RawMessage) bool {
	if _, ok := raw["subreddits"]; ok {
		return true
	}
	if msg, ok := raw["keywords"]; ok {
		var arr []string
		return json.Unmarshal(msg, &arr) == nil
	}
	return false
}

// decodeLegacy reads each legacy field independently so one malformed
// field degrades to its default instead of discarding the file.
func decodeLegacy(raw map[string]json.RawMessage) Record {
	rec := Record{Enabled: true}
	if msg, ok := raw["keywords"]; ok {
		var v []string
		if json.Unmarshal(msg, &v) == nil {
			rec.Keywords = v
		}
	}
	if msg, ok := raw["subreddits"]; ok {
		var v []string
		if json.Unmarshal(msg, &v) == nil {
			rec.Sources = v
		}
	}
	if msg, ok := raw["processed_items"]; ok {
		var v []string
		if json.Unmarshal(msg, &v) == nil {
			rec.ProcessedItems = v
		}
	}
	if msg, ok := raw["enabled"]; ok {
		var v bool
		if json.Unmarshal(msg, &v) == nil {
			rec.Enabled = v
		}
	}
	if len(rec.Sources) == 0 {
		rec.Sources = []string{"all"}
	}
	return rec
}

func (s *fileStore) Save(records map[string]Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-save never truncates the live file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
