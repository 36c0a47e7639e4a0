package quest

import (
	"testing"

	"github.com/jwebster45206/choice-engine/pkg/flags"
	"github.com/stretchr/testify/assert"
)

func TestTriggerTable_StartsQuestOnFlag(t *testing.T) {
	store := flags.NewStore(testLogger())
	engine := NewEngine(NewCatalog([]Definition{chainQuest()}, testLogger()), store, testLogger())
	NewTriggerTable(store, engine, []Trigger{
		{Flag: "accepted_chain", QuestID: "chain"},
		{Flag: "", QuestID: "chain"},
	}, testLogger())

	store.Add("unrelated")
	assert.False(t, engine.IsActive("chain"))

	store.Add("accepted_chain")
	assert.True(t, engine.IsActive("chain"))
}

func TestTriggerTable_StartedQuestCanCompleteInSamePass(t *testing.T) {
	store := flags.NewStore(testLogger())
	engine := NewEngine(NewCatalog([]Definition{chainQuest()}, testLogger()), store, testLogger())
	NewTriggerTable(store, engine, []Trigger{{Flag: "x", QuestID: "chain"}}, testLogger())

	store.Add("x")

	assert.True(t, engine.IsCompleted("chain"))
}

type fakeStarter struct {
	started []string
}

func (f *fakeStarter) TryStart(id string) bool {
	f.started = append(f.started, id)
	return true
}

func TestTriggerTable_DeclarationOrderAndClose(t *testing.T) {
	store := flags.NewStore(testLogger())
	starter := &fakeStarter{}
	table := NewTriggerTable(store, starter, []Trigger{
		{Flag: "f", QuestID: "q2"},
		{Flag: "g", QuestID: "q3"},
		{Flag: "f", QuestID: "q1"},
	}, testLogger())

	assert.Equal(t, []string{"q2", "q1"}, table.QuestsFor("f"))

	store.Add("f")
	assert.Equal(t, []string{"q2", "q1"}, starter.started)

	table.Close()
	store.Add("g")
	assert.Equal(t, []string{"q2", "q1"}, starter.started)
}
