package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"redwatch/internal/feed"
	"redwatch/internal/registry"
	"redwatch/internal/storage"
	logx "redwatch/pkg/logx"
)

// Shared fakes for the runner and coordinator tests.

type memStore struct {
	mu      sync.Mutex
	records map[string]storage.Record
}

func (s *memStore) Load() (map[string]storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]storage.Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) Save(records map[string]storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]storage.Record, len(records))
	for k, v := range records {
		s.records[k] = v
	}
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(&memStore{records: map[string]storage.Record{}}, logx.Nop())
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return r
}

// fakeSource serves canned posts per (source, keyword) and canned
// comments per source. The stream channels are supplied by the test.
type fakeSource struct {
	mu        sync.Mutex
	posts     map[string][]feed.Item // key: source + "|" + keyword
	comments  map[string][]feed.Item
	searchErr map[string]error // key: source

	streamItems chan feed.Item
	streamErrs  chan error
	streamOpens int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		posts:     map[string][]feed.Item{},
		comments:  map[string][]feed.Item{},
		searchErr: map[string]error{},
	}
}

func (f *fakeSource) Search(ctx context.Context, source, keyword string, limit int) ([]feed.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.searchErr[source]; err != nil {
		return nil, err
	}
	return f.posts[source+"|"+keyword], nil
}

func (f *fakeSource) RecentComments(ctx context.Context, source string, limit int) ([]feed.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.searchErr[source]; err != nil {
		return nil, err
	}
	return f.comments[source], nil
}

func (f *fakeSource) StreamComments(ctx context.Context, sources []string) (<-chan feed.Item, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamOpens++
	if f.streamItems == nil {
		// Keep the stream open until the session is cancelled.
		items := make(chan feed.Item)
		errs := make(chan error, 1)
		go func() {
			<-ctx.Done()
			close(items)
		}()
		return items, errs
	}
	return f.streamItems, f.streamErrs
}

// fakeSink records every send and can fail on demand.
type fakeSink struct {
	mu    sync.Mutex
	sends []sentMsg
	fail  error
}

type sentMsg struct {
	dest string
	text string
}

func (f *fakeSink) Send(ctx context.Context, dest, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sends = append(f.sends, sentMsg{dest: dest, text: text})
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeSource) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamOpens
}

func (f *fakeSink) sent() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sends...)
}

// fastConfig keeps test passes quick without tripping the defaults.
func fastConfig() Config {
	return Config{
		PollInterval:     time.Millisecond,
		SearchLimit:      50,
		SendDelay:        time.Nanosecond,
		FetchDelay:       time.Nanosecond,
		StreamRetryDelay: time.Millisecond,
		IdleDelay:        time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
