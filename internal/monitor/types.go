// Package monitor contains the monitoring engine: the poll cycle
// runner, the stream fan-out runner, and the dispatch coordinator that
// owns their shared lifecycle.
package monitor

import (
	"context"
	"time"

	"redwatch/internal/feed"
)

// Source is the abstract content source the runners pull from.
// Every method must honor ctx cancellation mid-call.
type Source interface {
	// Search returns recent posts from source matching keyword,
	// newest first, within a bounded recency window. The server-side
	// filter may be looser than whole-word matching.
	Search(ctx context.Context, source, keyword string, limit int) ([]feed.Item, error)

	// RecentComments returns the most recent comments from source,
	// unfiltered.
	RecentComments(ctx context.Context, source string, limit int) ([]feed.Item, error)

	// StreamComments opens a continuous feed over the union of
	// sources, skipping items that predate the connection. The items
	// channel closes when the stream ends; a terminal error arrives on
	// the second channel.
	StreamComments(ctx context.Context, sources []string) (<-chan feed.Item, <-chan error)
}

// Sink delivers one formatted notification to a destination. Failures
// are logged by the caller and not retried.
type Sink interface {
	Send(ctx context.Context, dest, text string) error
}

// Config carries the runner timings. Zero fields get defaults.
type Config struct {
	PollInterval     time.Duration // between full poll passes
	SearchLimit      int           // page size for search/comment fetches
	SendDelay        time.Duration // between notification sends (poll path)
	FetchDelay       time.Duration // between page fetches
	StreamRetryDelay time.Duration // backoff after a stream error
	IdleDelay        time.Duration // when nothing is watched
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 300 * time.Second
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 50
	}
	if c.SendDelay <= 0 {
		c.SendDelay = 2 * time.Second
	}
	if c.FetchDelay <= 0 {
		c.FetchDelay = 100 * time.Millisecond
	}
	if c.StreamRetryDelay <= 0 {
		c.StreamRetryDelay = 30 * time.Second
	}
	if c.IdleDelay <= 0 {
		c.IdleDelay = 30 * time.Second
	}
	return c
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
