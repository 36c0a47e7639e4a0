package navigation

import (
	"log/slog"
	"os"
	"testing"

	"github.com/jwebster45206/choice-engine/pkg/conditionals"
	"github.com/jwebster45206/choice-engine/pkg/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialogue struct {
	visited []string
}

func (f *fakeDialogue) GoToNode(id string) {
	f.visited = append(f.visited, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testLocations() []Location {
	return []Location{
		{
			ID: "village", Name: "Village", EntryNode: "village_square",
			Connections: []Connection{
				{Name: "Forest path", Target: "forest"},
				{Name: "Hidden stair", Target: "cave", Predicate: conditionals.Predicate{Required: []string{"found_stair"}}},
			},
		},
		{
			ID: "forest", Name: "Forest", EntryNode: "forest_edge",
			Access: conditionals.Predicate{Forbidden: []string{"forest_burned"}},
		},
		{
			ID: "cave", Name: "Cave", EntryNode: "cave_mouth",
			Access: conditionals.Predicate{Required: []string{"has_torch"}},
		},
		{ID: "village", Name: "Duplicate", EntryNode: "nowhere"},
	}
}

func newTestMap() (*Map, *flags.Store, *fakeDialogue) {
	store := flags.NewStore(testLogger())
	dlg := &fakeDialogue{}
	return NewMap(testLocations(), store, dlg, testLogger()), store, dlg
}

func locationIDs(locs []*Location) []string {
	ids := make([]string, 0, len(locs))
	for _, l := range locs {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestMap_AvailableFollowsFlags(t *testing.T) {
	m, store, _ := newTestMap()

	assert.Equal(t, []string{"village", "forest"}, locationIDs(m.Available()))

	store.Add("has_torch")
	assert.Equal(t, []string{"village", "forest", "cave"}, locationIDs(m.Available()))

	store.Add("forest_burned")
	assert.Equal(t, []string{"village", "cave"}, locationIDs(m.Available()))
}

func TestMap_DuplicateKeepsFirst(t *testing.T) {
	m, _, _ := newTestMap()
	loc, ok := m.Location("village")
	require.True(t, ok)
	assert.Equal(t, "Village", loc.Name)
}

func TestMap_SelectEntersNode(t *testing.T) {
	m, _, dlg := newTestMap()
	var selected []string
	m.OnSelected(func(l *Location) { selected = append(selected, l.ID) })

	require.NoError(t, m.Select("forest"))

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "forest", cur.ID)
	assert.Equal(t, []string{"forest_edge"}, dlg.visited)
	assert.Equal(t, []string{"forest"}, selected)
}

func TestMap_SelectErrors(t *testing.T) {
	m, _, dlg := newTestMap()

	err := m.Select("moon")
	assert.ErrorIs(t, err, ErrUnknownLocation)

	err = m.Select("cave")
	assert.ErrorIs(t, err, ErrLocationLocked)

	err = m.SelectIndex(2)
	assert.ErrorIs(t, err, ErrLocationOutOfRange)
	err = m.SelectIndex(-1)
	assert.ErrorIs(t, err, ErrLocationOutOfRange)

	_, ok := m.Current()
	assert.False(t, ok)
	assert.Empty(t, dlg.visited)
}

func TestMap_SelectIndexUsesVisibleList(t *testing.T) {
	m, store, dlg := newTestMap()
	store.Add("forest_burned")
	store.Add("has_torch")

	require.NoError(t, m.SelectIndex(1))
	assert.Equal(t, []string{"cave_mouth"}, dlg.visited)
}

func TestMap_Connections(t *testing.T) {
	m, store, _ := newTestMap()

	names := func() []string {
		var out []string
		for _, c := range m.Connections("village") {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Forest path"}, names())

	store.Add("found_stair")
	assert.Equal(t, []string{"Forest path"}, names(), "target still locked")

	store.Add("has_torch")
	assert.Equal(t, []string{"Forest path", "Hidden stair"}, names())

	assert.Nil(t, m.Connections("moon"))
}

func TestMap_SetCurrent(t *testing.T) {
	m, _, dlg := newTestMap()

	m.SetCurrent("cave")
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "cave", cur.ID)
	assert.Empty(t, dlg.visited)

	m.SetCurrent("moon")
	_, ok = m.Current()
	assert.False(t, ok)
}
