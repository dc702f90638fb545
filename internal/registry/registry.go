// Package registry holds per-destination subscriptions: keyword and
// source sets, the enabled flag, and the bounded set of already-notified
// item ids. It is the single synchronization point between the two
// monitor runners and the command layer.
package registry

import (
	"sort"
	"sync"

	"redwatch/internal/storage"
	logx "redwatch/pkg/logx"
)

// Status is a read-only snapshot of one destination, for /status.
type Status struct {
	Enabled   bool
	Keywords  int
	Sources   int
	Processed int
}

// Registry serializes all subscription reads and writes behind one
// mutex. No method holds the lock across a network call; persistence is
// a local file/database write.
type Registry struct {
	mu    sync.Mutex
	subs  map[string]*subscription
	store storage.Store
	log   logx.Logger
}

// New loads persisted subscriptions from store. Unreadable records have
// already been degraded by the store layer.
func New(store storage.Store, log logx.Logger) (*Registry, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Registry{subs: map[string]*subscription{}, store: store, log: log}

	records, err := store.Load()
	if err != nil {
		return nil, err
	}
	for dest, rec := range records {
		sub := newSubscription()
		sub.enabled = rec.Enabled
		sub.addKeywords(rec.Keywords)
		if len(rec.Sources) > 0 {
			sub.clearSources()
			sub.addSources(rec.Sources)
		}
		sub.restoreNotified(rec.ProcessedItems)
		r.subs[dest] = sub
	}
	r.log.Info("subscriptions loaded", logx.Int("destinations", len(records)))
	return r, nil
}

// ensure returns the subscription for dest, creating the default one
// (no keywords, sentinel source, enabled) on first reference.
func (r *Registry) ensure(dest string) *subscription {
	sub, ok := r.subs[dest]
	if !ok {
		sub = newSubscription()
		r.subs[dest] = sub
	}
	return sub
}

// GetOrCreate makes sure dest has a subscription and persists it.
// Idempotent: an existing subscription is untouched.
func (r *Registry) GetOrCreate(dest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[dest]; ok {
		return nil
	}
	r.ensure(dest)
	return r.saveLocked()
}

// ---- keyword mutations ----

func (r *Registry) AddKeywords(dest string, kws []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := r.ensure(dest).addKeywords(kws)
	if len(added) == 0 {
		return nil, nil
	}
	return added, r.saveLocked()
}

func (r *Registry) RemoveKeywords(dest string, kws []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.ensure(dest).removeKeywords(kws)
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, r.saveLocked()
}

func (r *Registry) ClearKeywords(dest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.ensure(dest)
	if len(sub.keywords) == 0 {
		return nil
	}
	sub.keywords = map[string]struct{}{}
	return r.saveLocked()
}

// ---- source mutations ----

func (r *Registry) AddSources(dest string, srcs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := r.ensure(dest).addSources(srcs)
	if len(added) == 0 {
		return nil, nil
	}
	return added, r.saveLocked()
}

func (r *Registry) RemoveSources(dest string, srcs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.ensure(dest).removeSources(srcs)
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, r.saveLocked()
}

// ClearSources resets dest's sources to the sentinel.
func (r *Registry) ClearSources(dest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(dest).clearSources()
	return r.saveLocked()
}

func (r *Registry) SetEnabled(dest string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.ensure(dest)
	if sub.enabled == enabled {
		return nil
	}
	sub.enabled = enabled
	return r.saveLocked()
}

// ---- read accessors ----

func (r *Registry) Enabled(dest string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[dest]
	return ok && sub.enabled
}

func (r *Registry) Keywords(dest string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[dest]
	if !ok {
		return nil
	}
	return sub.keywordList()
}

func (r *Registry) Sources(dest string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[dest]
	if !ok {
		return nil
	}
	return sub.sourceList()
}

func (r *Registry) Status(dest string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[dest]
	if !ok {
		return Status{}
	}
	return Status{
		Enabled:   sub.enabled,
		Keywords:  len(sub.keywords),
		Sources:   len(sub.sources),
		Processed: len(sub.notified),
	}
}

// EnabledDestinations returns the destinations both runners should
// serve, in a stable order.
func (r *Registry) EnabledDestinations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for dest, sub := range r.subs {
		if sub.enabled {
			out = append(out, dest)
		}
	}
	sort.Strings(out)
	return out
}

// HasEnabledKeywords reports whether any enabled destination has at
// least one keyword, i.e. whether monitoring would have work to do.
func (r *Registry) HasEnabledKeywords() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.enabled && len(sub.keywords) > 0 {
			return true
		}
	}
	return false
}

// WatchedUnion returns the union of sources watched by enabled
// destinations. If any of them watches the sentinel the union collapses
// to just the sentinel. Empty result means nothing is watched.
func (r *Registry) WatchedUnion() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	union := map[string]struct{}{}
	for _, sub := range r.subs {
		if !sub.enabled {
			continue
		}
		if _, ok := sub.sources[SourceAll]; ok {
			return []string{SourceAll}
		}
		for src := range sub.sources {
			union[src] = struct{}{}
		}
	}
	out := make([]string, 0, len(union))
	for src := range union {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// Watches reports whether dest is enabled and watches source.
func (r *Registry) Watches(dest, source string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[dest]
	return ok && sub.enabled && sub.watches(source)
}

// ---- dedup ----

func (r *Registry) Has(dest, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[dest]
	return ok && sub.hasNotified(id)
}

// MarkIfNew atomically checks and inserts id into dest's notified set.
// It returns true exactly once per (dest, id): the caller that gets true
// owns the send; everyone else skips. The mark is not persisted here —
// the poll runner and the maintenance job flush periodically.
func (r *Registry) MarkIfNew(dest, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensure(dest).markNotified(id)
}

// Flush trims every dedup set and persists the registry.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

// saveLocked trims and writes all records. Callers hold r.mu.
func (r *Registry) saveLocked() error {
	records := make(map[string]storage.Record, len(r.subs))
	for dest, sub := range r.subs {
		sub.trimNotified()
		records[dest] = storage.Record{
			Keywords:       sub.keywordList(),
			Sources:        sub.sourceList(),
			ProcessedItems: append([]string(nil), sub.notifiedOrder...),
			Enabled:        sub.enabled,
		}
	}
	if err := r.store.Save(records); err != nil {
		r.log.Error("saving subscriptions failed", logx.Err(err))
		return err
	}
	return nil
}
