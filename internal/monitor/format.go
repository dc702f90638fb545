package monitor

import (
	"strings"

	"redwatch/internal/feed"
)

const (
	maxTitleLen = 200
	maxBodyLen  = 300

	linkBase = "https://reddit.com"
)

// FormatNotification renders the message sent for one matched item.
func FormatNotification(it feed.Item, keyword string) string {
	var b strings.Builder
	b.WriteString("Keyword: ")
	b.WriteString(keyword)
	b.WriteString("\n\n")

	switch it.Kind {
	case feed.KindPost:
		b.WriteString(truncate(it.Title, maxTitleLen))
		b.WriteString("\nu/")
		b.WriteString(it.Author)
		b.WriteString(" | r/")
		b.WriteString(it.Source)
		b.WriteString("\n")
		if body := strings.TrimSpace(it.Body); body != "" {
			b.WriteString("\n")
			b.WriteString(truncate(body, maxBodyLen))
			b.WriteString("\n")
		}
	default:
		b.WriteString("Comment by u/")
		b.WriteString(it.Author)
		b.WriteString("\nr/")
		b.WriteString(it.Source)
		b.WriteString("\n")
		if body := strings.TrimSpace(it.Body); body != "" {
			b.WriteString("\n")
			b.WriteString(truncate(body, maxBodyLen))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(linkBase)
	b.WriteString(it.Permalink)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
