package registry

import (
	"sort"
	"strings"
)

// SourceAll is the sentinel source meaning "watch everything". It is
// mutually exclusive with concrete source names: adding a concrete
// source removes it, removing the last concrete source restores it.
const SourceAll = "all"

// subscription is the in-memory state for one destination. All access
// goes through Registry, which holds the lock.
type subscription struct {
	keywords map[string]struct{}
	sources  map[string]struct{}
	enabled  bool

	// Dedup set with explicit insertion order, oldest first. A plain
	// set cannot implement the keep-most-recent trim policy.
	notified      map[string]struct{}
	notifiedOrder []string
}

func newSubscription() *subscription {
	return &subscription{
		keywords: map[string]struct{}{},
		sources:  map[string]struct{}{SourceAll: {}},
		enabled:  true,
		notified: map[string]struct{}{},
	}
}

func normalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}

func normalizeSource(src string) string {
	s := strings.ToLower(strings.TrimSpace(src))
	s = strings.TrimPrefix(s, "r/")
	return s
}

func (s *subscription) addKeywords(kws []string) []string {
	var added []string
	for _, raw := range kws {
		kw := normalizeKeyword(raw)
		if kw == "" {
			continue
		}
		if _, ok := s.keywords[kw]; ok {
			continue
		}
		s.keywords[kw] = struct{}{}
		added = append(added, kw)
	}
	return added
}

func (s *subscription) removeKeywords(kws []string) []string {
	var removed []string
	for _, raw := range kws {
		kw := normalizeKeyword(raw)
		if _, ok := s.keywords[kw]; !ok {
			continue
		}
		delete(s.keywords, kw)
		removed = append(removed, kw)
	}
	return removed
}

func (s *subscription) addSources(srcs []string) []string {
	var added []string
	for _, raw := range srcs {
		src := normalizeSource(raw)
		if src == "" {
			continue
		}
		if src == SourceAll {
			// The sentinel is only restored implicitly. Adding it while
			// concrete sources exist must not wipe the configured list;
			// clearSources is the explicit reset.
			continue
		}
		if _, ok := s.sources[src]; ok {
			continue
		}
		// First concrete source displaces the sentinel.
		delete(s.sources, SourceAll)
		s.sources[src] = struct{}{}
		added = append(added, src)
	}
	return added
}

func (s *subscription) removeSources(srcs []string) []string {
	var removed []string
	for _, raw := range srcs {
		src := normalizeSource(raw)
		if src == SourceAll {
			continue
		}
		if _, ok := s.sources[src]; !ok {
			continue
		}
		delete(s.sources, src)
		removed = append(removed, src)
	}
	// A subscription's sources is never empty.
	if len(s.sources) == 0 {
		s.sources[SourceAll] = struct{}{}
	}
	return removed
}

func (s *subscription) clearSources() {
	s.sources = map[string]struct{}{SourceAll: {}}
}

func (s *subscription) keywordList() []string {
	out := make([]string, 0, len(s.keywords))
	for kw := range s.keywords {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

func (s *subscription) sourceList() []string {
	out := make([]string, 0, len(s.sources))
	for src := range s.sources {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

func (s *subscription) watches(source string) bool {
	if _, ok := s.sources[SourceAll]; ok {
		return true
	}
	_, ok := s.sources[normalizeSource(source)]
	return ok
}
