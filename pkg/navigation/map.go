// Package navigation implements the location map: places the player can travel
// to, each opening a dialogue node on arrival.
package navigation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/choice-engine/pkg/conditionals"
	"github.com/jwebster45206/choice-engine/pkg/notify"
)

var (
	ErrUnknownLocation    = errors.New("unknown location")
	ErrLocationLocked     = errors.New("location is locked")
	ErrLocationOutOfRange = errors.New("location index out of range")
)

// Location is a place on the map. Entering it jumps the dialogue to EntryNode.
type Location struct {
	ID          string                 `json:"id" yaml:"id"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	EntryNode   string                 `json:"entry_node" yaml:"entry_node"`
	Access      conditionals.Predicate `json:"access,omitempty" yaml:"access,omitempty"`
	Connections []Connection           `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Connection is a route from one location to another.
type Connection struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target" yaml:"target"`

	conditionals.Predicate `yaml:",inline"`
}

// Dialogue is the part of the dialogue engine the map drives
type Dialogue interface {
	GoToNode(id string)
}

// Map tracks the current location and gates travel on flags.
type Map struct {
	locations map[string]*Location
	order     []string
	flags     conditionals.FlagView
	dialogue  Dialogue
	current   string
	logger    *slog.Logger

	selected notify.Registry[*Location]
}

// NewMap indexes locations by ID, first wins on duplicates.
func NewMap(locations []Location, flags conditionals.FlagView, dialogue Dialogue, logger *slog.Logger) *Map {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Map{
		locations: make(map[string]*Location, len(locations)),
		flags:     flags,
		dialogue:  dialogue,
		logger:    logger,
	}
	for i := range locations {
		loc := locations[i]
		if loc.ID == "" {
			logger.Warn("Skipping location without ID", "index", i, "name", loc.Name)
			continue
		}
		if _, exists := m.locations[loc.ID]; exists {
			logger.Warn("Duplicate location ID, keeping first", "location_id", loc.ID, "index", i)
			continue
		}
		m.locations[loc.ID] = &loc
		m.order = append(m.order, loc.ID)
	}
	return m
}

// Location looks up a location by ID
func (m *Map) Location(id string) (*Location, bool) {
	loc, ok := m.locations[id]
	return loc, ok
}

// CanEnter reports whether the location exists and its access predicate holds.
func (m *Map) CanEnter(id string) bool {
	loc, ok := m.locations[id]
	if !ok {
		return false
	}
	return loc.Access.Evaluate(m.flags)
}

// Available returns the enterable locations in declaration order.
func (m *Map) Available() []*Location {
	out := make([]*Location, 0, len(m.order))
	for _, id := range m.order {
		if m.CanEnter(id) {
			out = append(out, m.locations[id])
		}
	}
	return out
}

// Connections returns the routes out of fromID whose own predicate holds and
// whose target can be entered.
func (m *Map) Connections(fromID string) []Connection {
	loc, ok := m.locations[fromID]
	if !ok {
		return nil
	}
	out := make([]Connection, 0, len(loc.Connections))
	for _, c := range loc.Connections {
		if !c.Predicate.Evaluate(m.flags) || !m.CanEnter(c.Target) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Select travels to the location and enters its entry node.
func (m *Map) Select(id string) error {
	loc, ok := m.locations[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLocation, id)
	}
	if !loc.Access.Evaluate(m.flags) {
		return fmt.Errorf("%w: %q", ErrLocationLocked, id)
	}

	m.current = id
	m.logger.Debug("Location selected", "location_id", id, "entry_node", loc.EntryNode)
	m.selected.Publish(loc)
	m.dialogue.GoToNode(loc.EntryNode)
	return nil
}

// SelectIndex selects by position in Available.
func (m *Map) SelectIndex(i int) error {
	available := m.Available()
	if i < 0 || i >= len(available) {
		return fmt.Errorf("%w: index %d, %d available", ErrLocationOutOfRange, i, len(available))
	}
	return m.Select(available[i].ID)
}

// Current returns the current location, or false before any selection.
func (m *Map) Current() (*Location, bool) {
	if m.current == "" {
		return nil, false
	}
	return m.Location(m.current)
}

// SetCurrent moves to id without entering its node. An unknown id clears the
// current location.
func (m *Map) SetCurrent(id string) {
	if _, ok := m.locations[id]; !ok {
		m.current = ""
		return
	}
	m.current = id
}

// OnSelected registers fn for location changes made by Select
func (m *Map) OnSelected(fn func(*Location)) *notify.Subscription {
	return m.selected.Subscribe(fn)
}
