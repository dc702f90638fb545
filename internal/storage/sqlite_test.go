package storage

import (
	"path/filepath"
	"testing"

	logx "redwatch/pkg/logx"
)

func TestSQLiteRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	in := map[string]Record{
		"100": {
			Keywords:       []string{"pain killer", "crypto"},
			Sources:        []string{"golang"},
			ProcessedItems: []string{"t3_a", "t1_b", "t1_c"},
			Enabled:        true,
		},
		"200": {Sources: []string{"all"}, Enabled: false},
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
	if len(got.Keywords) != 2 {
		t.Errorf("keywords = %v", got.Keywords)
	}
	if len(got.ProcessedItems) != 3 ||
		got.ProcessedItems[0] != "t3_a" ||
		got.ProcessedItems[2] != "t1_c" {
		t.Errorf("processed items order = %v", got.ProcessedItems)
	}
	if !got.Enabled || out["200"].Enabled {
		t.Error("enabled flags not preserved")
	}
}

func TestSQLiteSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if err := st.Save(map[string]Record{
		"1": {ProcessedItems: []string{"a", "b"}, Enabled: true},
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.Save(map[string]Record{
		"1": {ProcessedItems: []string{"c"}, Enabled: true},
	}); err != nil {
		t.Fatal(err)
	}

	out, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	rec := out["1"]
	if len(rec.ProcessedItems) != 1 || rec.ProcessedItems[0] != "c" {
		t.Errorf("processed items = %v, want [c]", rec.ProcessedItems)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Save(map[string]Record{"1": {Keywords: []string{"x"}, Enabled: true}}); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st2, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	out, err := st2.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || len(out["1"].Keywords) != 1 {
		t.Errorf("records after reopen = %v", out)
	}
}
