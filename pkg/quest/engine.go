package quest

import (
	"log/slog"
	"slices"

	"github.com/jwebster45206/choice-engine/pkg/conditionals"
	"github.com/jwebster45206/choice-engine/pkg/notify"
)

// FlagStore is the flag access the quest engine needs.
type FlagStore interface {
	Has(id string) bool
	Add(id string)
	OnAdded(fn func(id string)) *notify.Subscription
}

// Event describes a quest lifecycle change. Stage is set for stage-completed
// and objective-updated events only.
type Event struct {
	QuestID string
	Quest   *Definition
	Stage   *Stage
}

// Engine tracks quest instances and advances them as flags are asserted.
//
// Every flag addition re-evaluates all active quests. Completing a stage grants
// its flags, which may complete further stages and quests within the same call.
// Content whose stages form a cycle will loop; the content validator reports
// such cycles and the engine does not guard against them.
type Engine struct {
	catalog *Catalog
	flags   FlagStore
	logger  *slog.Logger

	active         map[string]*Instance
	activeOrder    []string
	completed      map[string]struct{}
	completedOrder []string

	// settling marks quests in the middle of a transition. Checks triggered
	// re-entrantly by their own flag grants skip them.
	settling map[string]bool
	stalled  map[string]bool

	started          notify.Registry[Event]
	stageCompleted   notify.Registry[Event]
	objectiveUpdated notify.Registry[Event]
	questCompleted   notify.Registry[Event]

	flagSub *notify.Subscription
}

// NewEngine creates a quest engine and subscribes it to flag additions.
func NewEngine(catalog *Catalog, flags FlagStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		catalog: catalog,
		flags:   flags,
		logger:  logger,
	}
	e.reset()
	e.flagSub = flags.OnAdded(func(string) {
		e.CheckAllProgress()
	})
	return e
}

// Close unsubscribes the engine from the flag store
func (e *Engine) Close() {
	e.flagSub.Unsubscribe()
}

func (e *Engine) reset() {
	e.active = make(map[string]*Instance)
	e.activeOrder = nil
	e.completed = make(map[string]struct{})
	e.completedOrder = nil
	e.settling = make(map[string]bool)
	e.stalled = make(map[string]bool)
}

// CanStart reports whether the quest exists, is neither active nor completed,
// and its activation predicate holds.
func (e *Engine) CanStart(id string) bool {
	def, ok := e.catalog.Quest(id)
	if !ok {
		return false
	}
	if e.IsActive(id) || e.IsCompleted(id) {
		return false
	}
	return def.Activation.Evaluate(e.flags)
}

// TryStart starts the quest if CanStart allows it. The first stage is
// evaluated immediately, so a quest may complete before TryStart returns.
func (e *Engine) TryStart(id string) bool {
	if !e.CanStart(id) {
		e.logger.Debug("Cannot start quest", "quest_id", id)
		return false
	}

	def, _ := e.catalog.Quest(id)
	first, ok := def.FirstStage()
	if !ok {
		e.logger.Warn("Quest has no stages, not starting", "quest_id", id)
		return false
	}

	e.active[id] = &Instance{
		QuestID:        id,
		Status:         StatusActive,
		CurrentStageID: first.ID,
	}
	e.activeOrder = append(e.activeOrder, id)

	e.settling[id] = true
	e.flags.Add(def.StartedFlag)
	delete(e.settling, id)

	e.logger.Info("Quest started", "quest_id", id, "name", def.Name)
	e.started.Publish(Event{QuestID: id, Quest: def})
	e.objectiveUpdated.Publish(Event{QuestID: id, Quest: def, Stage: first})

	e.checkProgress(id)
	return true
}

// CheckAllProgress evaluates the current stage of every active quest.
func (e *Engine) CheckAllProgress() {
	// Evaluation can complete quests and remove them from activeOrder
	ids := slices.Clone(e.activeOrder)
	for _, id := range ids {
		e.checkProgress(id)
	}
}

func (e *Engine) checkProgress(id string) {
	if e.settling[id] {
		return
	}
	inst, ok := e.active[id]
	if !ok {
		return
	}

	def, ok := e.catalog.Quest(id)
	if !ok {
		e.stall(id, "quest definition not found", inst.CurrentStageID)
		return
	}
	stage, ok := def.Stage(inst.CurrentStageID)
	if !ok {
		e.stall(id, "current stage not found", inst.CurrentStageID)
		return
	}

	if conditionals.AllAsserted(stage.RequiredFlags, e.flags) {
		e.completeStage(inst, def, stage)
	}
}

func (e *Engine) completeStage(inst *Instance, def *Definition, stage *Stage) {
	id := inst.QuestID

	e.settling[id] = true
	for _, flag := range stage.GrantFlags {
		e.flags.Add(flag)
	}

	e.logger.Info("Quest stage completed", "quest_id", id, "stage_id", stage.ID)
	e.stageCompleted.Publish(Event{QuestID: id, Quest: def, Stage: stage})

	if stage.IsFinal() {
		delete(e.settling, id)
		e.completeQuest(inst, def)
		return
	}

	next, ok := def.Stage(stage.Next)
	if !ok {
		e.logger.Warn("Next quest stage not found, completing quest",
			"quest_id", id,
			"stage_id", stage.ID,
			"next_stage_id", stage.Next)
		delete(e.settling, id)
		e.completeQuest(inst, def)
		return
	}

	inst.CurrentStageID = next.ID
	delete(e.settling, id)

	e.logger.Debug("Quest advanced", "quest_id", id, "stage_id", next.ID)
	e.objectiveUpdated.Publish(Event{QuestID: id, Quest: def, Stage: next})

	e.checkProgress(id)
}

func (e *Engine) completeQuest(inst *Instance, def *Definition) {
	id := inst.QuestID

	// Move to completed before granting, so grants can't re-complete it
	inst.Status = StatusCompleted
	delete(e.active, id)
	e.activeOrder = slices.DeleteFunc(e.activeOrder, func(other string) bool { return other == id })
	e.completed[id] = struct{}{}
	e.completedOrder = append(e.completedOrder, id)

	e.flags.Add(def.CompletedFlag)
	for _, flag := range def.RewardFlags {
		e.flags.Add(flag)
	}

	e.logger.Info("Quest completed", "quest_id", id, "name", def.Name)
	e.questCompleted.Publish(Event{QuestID: id, Quest: def})
}

func (e *Engine) stall(id, reason, stageID string) {
	if e.stalled[id] {
		return
	}
	e.stalled[id] = true
	e.logger.Warn("Quest stalled", "quest_id", id, "stage_id", stageID, "reason", reason)
}

// IsActive reports whether the quest is in progress
func (e *Engine) IsActive(id string) bool {
	_, ok := e.active[id]
	return ok
}

// IsCompleted reports whether the quest has been completed
func (e *Engine) IsCompleted(id string) bool {
	_, ok := e.completed[id]
	return ok
}

// Instance returns a copy of the active instance for id
func (e *Engine) Instance(id string) (Instance, bool) {
	inst, ok := e.active[id]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// CurrentStage returns the current stage of an active quest
func (e *Engine) CurrentStage(id string) (*Stage, bool) {
	inst, ok := e.active[id]
	if !ok {
		return nil, false
	}
	def, ok := e.catalog.Quest(id)
	if !ok {
		return nil, false
	}
	return def.Stage(inst.CurrentStageID)
}

// ActiveQuests returns the definitions of active quests in start order.
// Instances whose definition is missing are left out.
func (e *Engine) ActiveQuests() []*Definition {
	out := make([]*Definition, 0, len(e.activeOrder))
	for _, id := range e.activeOrder {
		if def, ok := e.catalog.Quest(id); ok {
			out = append(out, def)
		}
	}
	return out
}

// ActiveInstances returns copies of the active instances in start order
func (e *Engine) ActiveInstances() []Instance {
	out := make([]Instance, 0, len(e.activeOrder))
	for _, id := range e.activeOrder {
		out = append(out, *e.active[id])
	}
	return out
}

// CompletedQuestIDs returns completed quest IDs in completion order
func (e *Engine) CompletedQuestIDs() []string {
	return slices.Clone(e.completedOrder)
}

// SaveData exports the engine state for persistence
func (e *Engine) SaveData() SaveData {
	completed := e.CompletedQuestIDs()
	if completed == nil {
		completed = []string{}
	}
	return SaveData{
		Active:    e.ActiveInstances(),
		Completed: completed,
	}
}

// LoadSaveData replaces all quest state. No events are published and no
// progress is evaluated. Instances of completed quests are dropped, since
// completed quests are never resurrected.
func (e *Engine) LoadSaveData(data SaveData) {
	e.reset()

	for _, id := range data.Completed {
		if id == "" || e.IsCompleted(id) {
			continue
		}
		e.completed[id] = struct{}{}
		e.completedOrder = append(e.completedOrder, id)
	}

	for _, saved := range data.Active {
		id := saved.QuestID
		switch {
		case id == "":
			e.logger.Warn("Ignoring saved quest instance without ID")
			continue
		case e.IsCompleted(id):
			e.logger.Warn("Ignoring saved instance of completed quest", "quest_id", id)
			continue
		case e.IsActive(id):
			e.logger.Warn("Ignoring duplicate saved quest instance", "quest_id", id)
			continue
		}

		inst := saved
		inst.Status = StatusActive
		e.active[id] = &inst
		e.activeOrder = append(e.activeOrder, id)

		if def, ok := e.catalog.Quest(id); !ok {
			e.stall(id, "quest definition not found", inst.CurrentStageID)
		} else if _, ok := def.Stage(inst.CurrentStageID); !ok {
			e.stall(id, "current stage not found", inst.CurrentStageID)
		}
	}

	e.logger.Info("Quest state loaded",
		"active", len(e.activeOrder),
		"completed", len(e.completedOrder))
}

// OnStarted registers a handler for quest starts
func (e *Engine) OnStarted(fn func(Event)) *notify.Subscription {
	return e.started.Subscribe(fn)
}

// OnStageCompleted registers a handler for completed stages
func (e *Engine) OnStageCompleted(fn func(Event)) *notify.Subscription {
	return e.stageCompleted.Subscribe(fn)
}

// OnObjectiveUpdated registers a handler for new current stages
func (e *Engine) OnObjectiveUpdated(fn func(Event)) *notify.Subscription {
	return e.objectiveUpdated.Subscribe(fn)
}

// OnCompleted registers a handler for completed quests
func (e *Engine) OnCompleted(fn func(Event)) *notify.Subscription {
	return e.questCompleted.Subscribe(fn)
}
