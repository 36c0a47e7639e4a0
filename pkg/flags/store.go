package flags

import (
	"log/slog"
	"slices"

	"github.com/jwebster45206/choice-engine/pkg/notify"
)

// Store is the set of asserted flags for a game session.
// A flag is either present or absent; there is no value or count.
type Store struct {
	flags   map[string]struct{}
	added   notify.Registry[string]
	removed notify.Registry[string]
	logger  *slog.Logger
}

// NewStore creates an empty flag store
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		flags:  make(map[string]struct{}),
		logger: logger,
	}
}

// Has reports whether id is asserted.
func (s *Store) Has(id string) bool {
	_, ok := s.flags[id]
	return ok
}

// Add asserts id and notifies "added" observers before returning.
// Empty ids and ids that are already asserted are ignored.
func (s *Store) Add(id string) {
	if id == "" {
		return
	}
	if _, exists := s.flags[id]; exists {
		return
	}
	s.flags[id] = struct{}{}
	s.logger.Debug("Flag added", "flag", id)
	s.added.Publish(id)
}

// Remove clears id and notifies "removed" observers if it was asserted.
func (s *Store) Remove(id string) {
	if id == "" {
		return
	}
	if _, exists := s.flags[id]; !exists {
		return
	}
	delete(s.flags, id)
	s.logger.Debug("Flag removed", "flag", id)
	s.removed.Publish(id)
}

// Len returns the number of asserted flags
func (s *Store) Len() int {
	return len(s.flags)
}

// Snapshot returns the asserted flags in sorted order.
func (s *Store) Snapshot() []string {
	out := make([]string, 0, len(s.flags))
	for id := range s.flags {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Restore replaces the whole set with ids. It is a reset, not a series of
// changes, so no observers are notified.
func (s *Store) Restore(ids []string) {
	s.flags = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.flags[id] = struct{}{}
	}
	s.logger.Debug("Flags restored", "count", len(s.flags))
}

// OnAdded registers fn for flag additions.
func (s *Store) OnAdded(fn func(id string)) *notify.Subscription {
	return s.added.Subscribe(fn)
}

// OnRemoved registers fn for flag removals.
func (s *Store) OnRemoved(fn func(id string)) *notify.Subscription {
	return s.removed.Subscribe(fn)
}
