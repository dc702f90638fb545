package reddit

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"redwatch/internal/feed"
)

const (
	// streamPageSize is how many comments each stream poll requests.
	streamPageSize = 100
	// streamSeenCap bounds the per-connection seen set.
	streamSeenCap = 5000
)

// StreamComments opens a continuous comment feed over the union of
// sources. Reddit has no push API, so the stream polls the merged
// comment listing at a short interval, emitting only comments it has
// not seen on this connection. The first page primes the seen set
// without emitting (skip-existing), so items that predate the
// connection are never delivered.
//
// The items channel is closed when the stream ends; a terminal error
// (anything other than ctx cancellation) is delivered on errs first.
// Reconnecting is the caller's job.
func (c *Client) StreamComments(ctx context.Context, sources []string) (<-chan feed.Item, <-chan error) {
	items := make(chan feed.Item, 64)
	errs := make(chan error, 1)

	union := strings.Join(sources, "+")

	go func() {
		defer close(items)

		seen := map[string]struct{}{}
		var seenOrder []string
		first := true

		for {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(streamPageSize))
			q.Set("raw_json", "1")
			l, err := c.get(ctx, "/r/"+url.PathEscape(union)+"/comments.json", q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errs <- err
				return
			}

			// Listings are newest first; emit oldest first.
			page := l.items()
			for i := len(page) - 1; i >= 0; i-- {
				it := page[i]
				if _, ok := seen[it.ID]; ok {
					continue
				}
				seen[it.ID] = struct{}{}
				seenOrder = append(seenOrder, it.ID)
				if first {
					continue
				}
				select {
				case items <- it:
				case <-ctx.Done():
					return
				}
			}
			first = false

			// Keep the seen set bounded on long-lived connections.
			if len(seenOrder) > streamSeenCap {
				drop := seenOrder[:len(seenOrder)-streamPageSize*2]
				for _, id := range drop {
					delete(seen, id)
				}
				seenOrder = append([]string(nil), seenOrder[len(seenOrder)-streamPageSize*2:]...)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.StreamInterval):
			}
		}
	}()

	return items, errs
}
