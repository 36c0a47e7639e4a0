package dialogue

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/jwebster45206/choice-engine/pkg/conditionals"
	"github.com/jwebster45206/choice-engine/pkg/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func requires(ids ...string) conditionals.Predicate {
	return conditionals.Predicate{Required: ids}
}

func forbids(ids ...string) conditionals.Predicate {
	return conditionals.Predicate{Forbidden: ids}
}

// gateNodes has a node whose two choices are mutually exclusive on flag "a".
func gateNodes() []Node {
	return []Node{
		{
			ID:      "gate",
			Speaker: "Guard",
			Text:    "Halt.",
			Choices: []Choice{
				{Text: "Show the pass", Next: "inside", Predicate: requires("a")},
				{Text: "Walk away", Next: "outside", Predicate: forbids("a")},
			},
		},
		{ID: "inside", Speaker: "Guard", Text: "Go on."},
		{ID: "outside", Speaker: "Narrator", Text: "You leave."},
	}
}

func newTestEngine(t *testing.T, nodes []Node, start string) (*Engine, *flags.Store, *[]Update) {
	t.Helper()
	store := flags.NewStore(testLogger())
	engine := NewEngine(NewGraph(nodes, testLogger()), store, start, testLogger())
	var updates []Update
	engine.OnUpdate(func(u Update) { updates = append(updates, u) })
	return engine, store, &updates
}

func choiceTexts(choices []Choice) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		out = append(out, c.Text)
	}
	return out
}

func TestEngine_FiltersChoicesOnFlags(t *testing.T) {
	engine, store, updates := newTestEngine(t, gateNodes(), "gate")

	engine.Start()
	require.Len(t, *updates, 1)
	assert.Equal(t, []string{"Walk away"}, choiceTexts((*updates)[0].Choices))

	store.Add("a")
	assert.Equal(t, []string{"Show the pass"}, choiceTexts(engine.AvailableChoices()))
}

func TestEngine_SelectChoiceUsesVisibleIndex(t *testing.T) {
	engine, _, _ := newTestEngine(t, gateNodes(), "gate")
	engine.Start()

	require.NoError(t, engine.SelectChoice(0))

	assert.Equal(t, "outside", engine.CurrentNodeID(), "index 0 must resolve to the first visible choice, not the first declared")
}

func TestEngine_SelectChoiceRecomputesAtSelection(t *testing.T) {
	engine, store, _ := newTestEngine(t, gateNodes(), "gate")
	engine.Start()

	// Flags change between render and selection
	store.Add("a")
	require.NoError(t, engine.SelectChoice(0))

	assert.Equal(t, "inside", engine.CurrentNodeID())
}

func TestEngine_IntroToHubScenario(t *testing.T) {
	nodes := []Node{
		{
			ID:      "intro",
			Speaker: "Stranger",
			Text:    "Well met.",
			Choices: []Choice{{Text: "Greet", Next: "hub", Grants: []string{"met_npc"}}},
		},
		{ID: "hub", Speaker: "Stranger", Text: "What now?"},
	}
	engine, store, updates := newTestEngine(t, nodes, "intro")
	engine.Start()

	require.NoError(t, engine.SelectChoice(0))

	assert.Equal(t, "hub", engine.CurrentNodeID())
	assert.True(t, store.Has("met_npc"))
	last := (*updates)[len(*updates)-1]
	assert.Equal(t, "hub", last.NodeID)
	assert.Equal(t, "What now?", last.Text)
	assert.False(t, last.Ended)
}

func TestEngine_GrantsAppliedInDeclarationOrder(t *testing.T) {
	nodes := []Node{{
		ID:      "n",
		Text:    "Pick",
		Choices: []Choice{{Text: "Take all", Grants: []string{"first", "second", "third"}}},
	}}
	engine, store, _ := newTestEngine(t, nodes, "n")
	var order []string
	store.OnAdded(func(id string) { order = append(order, id) })
	engine.Start()

	require.NoError(t, engine.SelectChoice(0))

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.True(t, engine.Ended(), "empty next ends dialogue")
}

func TestEngine_SelectChoiceOutOfRangeLeavesStateUnchanged(t *testing.T) {
	engine, store, updates := newTestEngine(t, []Node{{
		ID:   "n",
		Text: "Two options",
		Choices: []Choice{
			{Text: "One", Next: "x", Grants: []string{"one"}},
			{Text: "Two", Next: "y", Grants: []string{"two"}},
		},
	}}, "n")
	engine.Start()
	before := len(*updates)

	for _, idx := range []int{5, 2, -1} {
		err := engine.SelectChoice(idx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrChoiceOutOfRange))
	}

	assert.Equal(t, "n", engine.CurrentNodeID())
	assert.Equal(t, 0, store.Len())
	assert.Len(t, *updates, before)
}

func TestEngine_GoToUnknownNodeEnds(t *testing.T) {
	engine, _, updates := newTestEngine(t, gateNodes(), "gate")
	engine.Start()

	engine.GoToNode("nowhere")

	assert.True(t, engine.Ended())
	last := (*updates)[len(*updates)-1]
	assert.True(t, last.Ended)
	assert.Empty(t, last.Speaker)
	assert.Equal(t, EndedText, last.Text)
	assert.Empty(t, last.Choices)

	err := engine.SelectChoice(0)
	assert.ErrorIs(t, err, ErrDialogueEnded)
}

func TestEngine_CurrentNodeIDFallsBackToStart(t *testing.T) {
	engine, _, _ := newTestEngine(t, gateNodes(), "gate")
	assert.Equal(t, "gate", engine.CurrentNodeID(), "before dialogue begins")

	engine.GoToNode("")
	assert.Equal(t, "gate", engine.CurrentNodeID(), "after dialogue ends")
}

func TestEngine_LoadFromNodeID(t *testing.T) {
	engine, _, _ := newTestEngine(t, gateNodes(), "gate")

	engine.LoadFromNodeID("inside")
	assert.Equal(t, "inside", engine.CurrentNodeID())

	engine.LoadFromNodeID("")
	assert.Equal(t, "gate", engine.CurrentNodeID())
}

func TestEngine_ReloadChoiceRequestsReset(t *testing.T) {
	nodes := []Node{{
		ID:      "death",
		Text:    "You died.",
		Choices: []Choice{{Text: "Try again", Next: "ignored", Reload: true, Grants: []string{"died_once"}}},
	}, {ID: "ignored", Text: "unreachable"}}
	engine, store, _ := newTestEngine(t, nodes, "death")
	var resets []ResetRequest
	engine.OnReset(func(r ResetRequest) { resets = append(resets, r) })
	engine.Start()

	require.NoError(t, engine.SelectChoice(0))

	require.Len(t, resets, 1)
	assert.Equal(t, "death", resets[0].NodeID)
	assert.True(t, store.Has("died_once"), "grants apply before the reset signal")
	assert.Equal(t, "death", engine.CurrentNodeID(), "reload does not transition")
}

func TestEngine_QuestTriggerPublished(t *testing.T) {
	nodes := []Node{{
		ID:      "elder",
		Text:    "Will you help?",
		Choices: []Choice{{Text: "Yes", Next: "thanks", QuestTrigger: "find_cat"}},
	}, {ID: "thanks", Text: "Thank you."}}
	engine, _, _ := newTestEngine(t, nodes, "elder")
	var triggered []string
	engine.OnQuestTriggered(func(id string) { triggered = append(triggered, id) })
	engine.Start()

	require.NoError(t, engine.SelectChoice(0))

	assert.Equal(t, []string{"find_cat"}, triggered)
	assert.Equal(t, "thanks", engine.CurrentNodeID())
}

func TestEngine_GrantCanRevealChoicesOnNextNode(t *testing.T) {
	nodes := []Node{
		{ID: "a", Text: "A", Choices: []Choice{{Text: "go", Next: "b", Grants: []string{"key"}}}},
		{ID: "b", Text: "B", Choices: []Choice{
			{Text: "unlock", Predicate: requires("key")},
			{Text: "knock", Predicate: forbids("key")},
		}},
	}
	engine, _, updates := newTestEngine(t, nodes, "a")
	engine.Start()

	require.NoError(t, engine.SelectChoice(0))

	last := (*updates)[len(*updates)-1]
	assert.Equal(t, []string{"unlock"}, choiceTexts(last.Choices))
}

func TestGraph_DuplicateIDsFirstWins(t *testing.T) {
	g := NewGraph([]Node{
		{ID: "n", Text: "first"},
		{ID: "n", Text: "second"},
		{ID: "", Text: "no id"},
		{ID: "m", Text: "other"},
	}, testLogger())

	node, ok := g.Node("n")
	require.True(t, ok)
	assert.Equal(t, "first", node.Text)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"n", "m"}, g.IDs())

	_, ok = g.Node("")
	assert.False(t, ok)
}
