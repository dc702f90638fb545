package reddit

import (
	"strings"

	"redwatch/internal/feed"
)

// Reddit's listing envelope. Things carry a kind tag: "t1" comments,
// "t3" posts (links).
type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

type thingData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"` // fullname, e.g. "t3_abc123"
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

const (
	kindComment = "t1"
	kindPost    = "t3"
)

func (l listing) items() []feed.Item {
	out := make([]feed.Item, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		it, ok := ch.item()
		if ok {
			out = append(out, it)
		}
	}
	return out
}

func (t thing) item() (feed.Item, bool) {
	d := t.Data
	id := d.Name
	if id == "" {
		// Fall back to a kind-qualified id so posts and comments can
		// never collide in the dedup set.
		if d.ID == "" {
			return feed.Item{}, false
		}
		id = t.Kind + "_" + d.ID
	}
	it := feed.Item{
		ID:        id,
		Source:    strings.ToLower(d.Subreddit),
		Author:    d.Author,
		Permalink: d.Permalink,
	}
	switch t.Kind {
	case kindPost:
		it.Kind = feed.KindPost
		it.Title = d.Title
		it.Body = d.Selftext
	case kindComment:
		it.Kind = feed.KindComment
		it.Body = d.Body
	default:
		return feed.Item{}, false
	}
	return it, true
}
