// Package match implements the keyword matcher: case-insensitive,
// whole-word, with the keyword treated as a literal string.
package match

import (
	"regexp"
	"sync"
)

var (
	mu    sync.Mutex
	cache = map[string]*regexp.Regexp{}
)

// Matches reports whether keyword appears in text as a whole word,
// case-insensitively. Word boundaries are required on both sides, so
// "pain" does not match inside "painting". Regexp metacharacters in the
// keyword are escaped, not interpreted. Empty text or keyword never match.
func Matches(text, keyword string) bool {
	if text == "" || keyword == "" {
		return false
	}
	return pattern(keyword).MatchString(text)
}

func pattern(keyword string) *regexp.Regexp {
	mu.Lock()
	defer mu.Unlock()
	if re, ok := cache[keyword]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	// The subscription vocabulary is small, but don't let a churning
	// keyword set grow the cache without bound.
	if len(cache) > 1024 {
		cache = map[string]*regexp.Regexp{}
	}
	cache[keyword] = re
	return re
}
