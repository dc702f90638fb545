package storage

import (
	"os"
	"path/filepath"
	"testing"

	logx "redwatch/pkg/logx"
)

func openTestFile(t *testing.T, contents string) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	st, err := Open(Config{Driver: "file", Path: path, LegacyDestination: "12345"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestFileLoadMissingFile(t *testing.T) {
	st := openTestFile(t, "")
	records, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want empty", records)
	}
}

func TestFileRoundtrip(t *testing.T) {
	st := openTestFile(t, "")
	in := map[string]Record{
		"100": {
			Keywords:       []string{"pain killer"},
			Sources:        []string{"golang"},
			ProcessedItems: []string{"t3_a", "t1_b"},
			Enabled:        true,
		},
		"200": {
			Keywords: []string{"crypto"},
			Sources:  []string{"all"},
			Enabled:  false,
		},
	}
	if err := st.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("records = %d, want 2", len(out))
	}
	got := out["100"]
	if len(got.Keywords) != 1 || got.Keywords[0] != "pain killer" {
		t.Errorf("keywords = %v", got.Keywords)
	}
	if len(got.ProcessedItems) != 2 || got.ProcessedItems[0] != "t3_a" {
		t.Errorf("processed items = %v", got.ProcessedItems)
	}
	if !got.Enabled {
		t.Error("enabled flag lost")
	}
	if out["200"].Enabled {
		t.Error("disabled flag lost")
	}
}

func TestFileLegacyMigration(t *testing.T) {
	st := openTestFile(t,
		`{"keywords":["x"],"subreddits":["all"],"processed_items":[],"enabled":true}`)

	records, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec, ok := records["12345"]
	if !ok {
		t.Fatalf("legacy record not keyed under default destination: %v", records)
	}
	if len(rec.Keywords) != 1 || rec.Keywords[0] != "x" {
		t.Errorf("keywords = %v, want [x]", rec.Keywords)
	}
	if len(rec.Sources) != 1 || rec.Sources[0] != "all" {
		t.Errorf("sources = %v, want [all]", rec.Sources)
	}
	if !rec.Enabled {
		t.Error("enabled not carried over")
	}
}

func TestFileLegacyMigrationDefaults(t *testing.T) {
	// Missing fields in the flat layout fall back to defaults.
	st := openTestFile(t, `{"subreddits":[]}`)
	records, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := records["12345"]
	if !rec.Enabled {
		t.Error("missing enabled should default to true")
	}
	if len(rec.Sources) != 1 || rec.Sources[0] != "all" {
		t.Errorf("empty sources should default to [all], got %v", rec.Sources)
	}
}

func TestFileKeyedLayoutNotMistakenForLegacy(t *testing.T) {
	// A destination literally named "keywords" holding an object must
	// stay in the keyed layout.
	st := openTestFile(t, `{"keywords":{"keywords":["x"],"enabled":true}}`)
	records, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec, ok := records["keywords"]
	if !ok {
		t.Fatalf("keyed record lost: %v", records)
	}
	if len(rec.Keywords) != 1 || rec.Keywords[0] != "x" {
		t.Errorf("keywords = %v", rec.Keywords)
	}
}

func TestFileSkipsUnreadableRecord(t *testing.T) {
	st := openTestFile(t,
		`{"100":{"keywords":["ok"],"enabled":true},"200":"not an object"}`)
	records, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %v, want only the readable one", records)
	}
	if _, ok := records["100"]; !ok {
		t.Error("readable record dropped alongside the bad one")
	}
}

func TestFileSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Save(map[string]Record{"1": {Enabled: true}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("data file missing after save: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Error("unknown driver should fail")
	}
}
