package quest

import (
	"log/slog"

	"github.com/jwebster45206/choice-engine/pkg/notify"
)

// Trigger starts QuestID when Flag is newly asserted.
type Trigger struct {
	Flag    string `json:"flag" yaml:"flag"`
	QuestID string `json:"quest_id" yaml:"quest_id"`
}

// FlagSubscriber is the flag access the trigger table needs
type FlagSubscriber interface {
	OnAdded(fn func(id string)) *notify.Subscription
}

// Starter starts quests by ID
type Starter interface {
	TryStart(id string) bool
}

// TriggerTable bridges flags to quests: when a mapped flag is added, the
// mapped quests are started in declaration order.
type TriggerTable struct {
	byFlag  map[string][]string
	starter Starter
	logger  *slog.Logger
	sub     *notify.Subscription
}

// NewTriggerTable builds the table and subscribes it to flag additions.
// Mappings with an empty flag or quest ID are skipped.
func NewTriggerTable(flags FlagSubscriber, starter Starter, triggers []Trigger, logger *slog.Logger) *TriggerTable {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TriggerTable{
		byFlag:  make(map[string][]string),
		starter: starter,
		logger:  logger,
	}
	for i, trig := range triggers {
		if trig.Flag == "" || trig.QuestID == "" {
			logger.Warn("Skipping incomplete quest trigger", "index", i, "flag", trig.Flag, "quest_id", trig.QuestID)
			continue
		}
		t.byFlag[trig.Flag] = append(t.byFlag[trig.Flag], trig.QuestID)
	}
	t.sub = flags.OnAdded(t.onFlagAdded)
	return t
}

func (t *TriggerTable) onFlagAdded(flag string) {
	for _, questID := range t.byFlag[flag] {
		if t.starter.TryStart(questID) {
			t.logger.Debug("Quest started by trigger", "flag", flag, "quest_id", questID)
		}
	}
}

// QuestsFor returns the quest IDs mapped to flag
func (t *TriggerTable) QuestsFor(flag string) []string {
	return append([]string(nil), t.byFlag[flag]...)
}

// Close unsubscribes the table from the flag store
func (t *TriggerTable) Close() {
	t.sub.Unsubscribe()
}
