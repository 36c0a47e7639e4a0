package dialogue

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/choice-engine/pkg/conditionals"
	"github.com/jwebster45206/choice-engine/pkg/notify"
)

var (
	// ErrChoiceOutOfRange is returned when a visible choice index does not exist.
	ErrChoiceOutOfRange = errors.New("choice index out of range")
	// ErrDialogueEnded is returned when selecting a choice with no current node.
	ErrDialogueEnded = errors.New("dialogue has ended")
)

// FlagStore is the flag access the dialogue engine needs.
type FlagStore interface {
	Has(id string) bool
	Add(id string)
}

// Update is published every time the current node changes.
// Choices holds only the choices visible at that moment.
type Update struct {
	NodeID  string
	Speaker string
	Text    string
	Choices []Choice
	Ended   bool
}

// ResetRequest is published when a reload choice is selected. The host decides
// what resetting the session means.
type ResetRequest struct {
	NodeID string
	Choice Choice
}

// Engine walks a Graph, gating choices on flags.
type Engine struct {
	graph       *Graph
	flags       FlagStore
	startNodeID string
	current     *Node
	logger      *slog.Logger

	updates       notify.Registry[Update]
	questTriggers notify.Registry[string]
	resets        notify.Registry[ResetRequest]
}

// NewEngine creates a dialogue engine. It does not enter any node until
// Start, GoToNode or LoadFromNodeID is called.
func NewEngine(graph *Graph, flags FlagStore, startNodeID string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		graph:       graph,
		flags:       flags,
		startNodeID: startNodeID,
		logger:      logger,
	}
}

// Start enters the configured start node
func (e *Engine) Start() {
	e.GoToNode(e.startNodeID)
}

// StartNodeID returns the configured start node
func (e *Engine) StartNodeID() string {
	return e.startNodeID
}

// GoToNode moves to the node with the given ID and publishes an Update.
// Unknown or empty IDs end the dialogue; that is a normal outcome, not an error.
func (e *Engine) GoToNode(id string) {
	node, ok := e.graph.Node(id)
	if !ok {
		if id != "" {
			e.logger.Debug("Dialogue node not found, ending dialogue", "node_id", id)
		}
		e.current = nil
		e.updates.Publish(Update{Text: EndedText, Ended: true})
		return
	}

	e.current = node
	e.logger.Debug("Entered dialogue node", "node_id", node.ID)
	e.updates.Publish(Update{
		NodeID:  node.ID,
		Speaker: node.Speaker,
		Text:    node.Text,
		Choices: e.filterChoices(node),
	})
}

// LoadFromNodeID resumes dialogue at id, or at the start node when id is empty.
func (e *Engine) LoadFromNodeID(id string) {
	if id == "" {
		id = e.startNodeID
	}
	e.GoToNode(id)
}

// SelectChoice selects the choice at visibleIndex among the currently available
// choices. The available list is recomputed here, so flags changed since the
// last Update are honored. On error nothing is changed.
func (e *Engine) SelectChoice(visibleIndex int) error {
	if e.current == nil {
		return ErrDialogueEnded
	}

	node := e.current
	available := e.filterChoices(node)
	if visibleIndex < 0 || visibleIndex >= len(available) {
		return fmt.Errorf("%w: index %d, %d available on node %s",
			ErrChoiceOutOfRange, visibleIndex, len(available), node.ID)
	}
	choice := available[visibleIndex]

	e.logger.Debug("Choice selected",
		"node_id", node.ID,
		"index", visibleIndex,
		"text", choice.Text)

	for _, flag := range choice.Grants {
		e.flags.Add(flag)
	}

	if choice.QuestTrigger != "" {
		e.questTriggers.Publish(choice.QuestTrigger)
	}

	if choice.Reload {
		e.logger.Info("Reset requested by dialogue choice", "node_id", node.ID)
		e.resets.Publish(ResetRequest{NodeID: node.ID, Choice: choice})
		return nil
	}

	e.GoToNode(choice.Next)
	return nil
}

// CurrentNodeID returns the current node, or the start node when there is none.
func (e *Engine) CurrentNodeID() string {
	if e.current == nil {
		return e.startNodeID
	}
	return e.current.ID
}

// CurrentNode returns the current node, if any
func (e *Engine) CurrentNode() (*Node, bool) {
	return e.current, e.current != nil
}

// Ended reports whether there is no current node
func (e *Engine) Ended() bool {
	return e.current == nil
}

// AvailableChoices returns the choices of the current node visible under the
// current flags.
func (e *Engine) AvailableChoices() []Choice {
	if e.current == nil {
		return nil
	}
	return e.filterChoices(e.current)
}

// OnUpdate registers a handler for node changes
func (e *Engine) OnUpdate(fn func(Update)) *notify.Subscription {
	return e.updates.Subscribe(fn)
}

// OnQuestTriggered registers a handler for quest IDs named by selected choices
func (e *Engine) OnQuestTriggered(fn func(questID string)) *notify.Subscription {
	return e.questTriggers.Subscribe(fn)
}

// OnReset registers a handler for reload choices
func (e *Engine) OnReset(fn func(ResetRequest)) *notify.Subscription {
	return e.resets.Subscribe(fn)
}

func (e *Engine) filterChoices(node *Node) []Choice {
	return conditionals.Filter(node.Choices, choicePredicate, e.flags)
}
