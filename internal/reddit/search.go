package reddit

import (
	"context"
	"net/url"
	"strconv"

	"redwatch/internal/feed"
)

// Search returns up to limit recent posts from source matching keyword,
// newest first, bounded to the last day. The server-side match can be
// looser than whole-word; callers re-verify locally.
func (c *Client) Search(ctx context.Context, source, keyword string, limit int) ([]feed.Item, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("sort", "new")
	q.Set("t", "day")
	q.Set("restrict_sr", "1")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")

	l, err := c.get(ctx, "/r/"+url.PathEscape(source)+"/search.json", q)
	if err != nil {
		return nil, err
	}
	return l.items(), nil
}

// RecentComments returns up to limit most-recent comments from source,
// newest first, unfiltered.
func (c *Client) RecentComments(ctx context.Context, source string, limit int) ([]feed.Item, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")

	l, err := c.get(ctx, "/r/"+url.PathEscape(source)+"/comments.json", q)
	if err != nil {
		return nil, err
	}
	return l.items(), nil
}
