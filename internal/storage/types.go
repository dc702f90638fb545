package storage

// Record is the persisted state of one destination's subscription.
//
// Field names mirror the on-disk JSON schema; ProcessedItems preserves
// insertion order (oldest first) so the dedup trim policy survives a
// restart.
type Record struct {
	Keywords       []string `json:"keywords"`
	Sources        []string `json:"sources"`
	ProcessedItems []string `json:"processed_items"`
	Enabled        bool     `json:"enabled"`
}

// Config configures storage.
//
// Driver values:
//   - "file" (default): single JSON file, atomically rewritten on save
//   - "sqlite": SQLite database file
//
// LegacyDestination is the destination identifier assigned to a legacy
// flat-layout file (single implicit destination) when migrating on load.
type Config struct {
	Driver            string
	Path              string
	LegacyDestination string
}
