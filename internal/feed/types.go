package feed

// Kind distinguishes the two item shapes a source can produce.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Item is a single unit of content pulled from a source.
//
// ID is the source-assigned identifier, unique within the source.
// Title/Body are kind-specific: posts carry both, comments only Body.
type Item struct {
	ID        string
	Kind      Kind
	Source    string // channel the item came from (subreddit name, lower-case)
	Author    string
	Permalink string // site-relative, e.g. "/r/golang/comments/..."
	Title     string
	Body      string
}
