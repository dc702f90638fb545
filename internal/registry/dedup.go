package registry

// Dedup set operations and the save-time trim policy.
//
// notifiedOrder tracks insertion order explicitly; trim always evicts
// the oldest entries first.

const (
	// trimThreshold is the size at which the notified set gets trimmed.
	trimThreshold = 5000
	// trimKeep is how many of the most recent ids survive a trim.
	trimKeep = 2000
)

func (s *subscription) hasNotified(id string) bool {
	_, ok := s.notified[id]
	return ok
}

// markNotified inserts id and reports whether it was new. Marking an
// already-present id is a no-op, so the set never holds duplicates.
func (s *subscription) markNotified(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.notified[id]; ok {
		return false
	}
	s.notified[id] = struct{}{}
	s.notifiedOrder = append(s.notifiedOrder, id)
	return true
}

// trimNotified enforces the bound: once the set exceeds trimThreshold,
// only the trimKeep most recently inserted ids are retained.
func (s *subscription) trimNotified() {
	if len(s.notifiedOrder) <= trimThreshold {
		return
	}
	keep := s.notifiedOrder[len(s.notifiedOrder)-trimKeep:]
	s.notified = make(map[string]struct{}, len(keep))
	for _, id := range keep {
		s.notified[id] = struct{}{}
	}
	s.notifiedOrder = append([]string(nil), keep...)
}

// restoreNotified replaces the set from persisted state (oldest first).
func (s *subscription) restoreNotified(ids []string) {
	s.notified = make(map[string]struct{}, len(ids))
	s.notifiedOrder = s.notifiedOrder[:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.notified[id]; ok {
			continue
		}
		s.notified[id] = struct{}{}
		s.notifiedOrder = append(s.notifiedOrder, id)
	}
}
