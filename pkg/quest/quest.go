package quest

import "github.com/jwebster45206/choice-engine/pkg/conditionals"

// Status is the lifecycle state of a quest instance.
// Only Active and Completed are produced by the engine; the others are reserved.
type Status string

const (
	StatusInactive  Status = "inactive"
	StatusAvailable Status = "available"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Definition describes a quest. Definitions are content and never change at runtime.
type Definition struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Giver       string `json:"giver,omitempty" yaml:"giver,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Activation  conditionals.Predicate `json:"activation,omitempty" yaml:"activation,omitempty"`
	StartedFlag string                 `json:"started_flag,omitempty" yaml:"started_flag,omitempty"`

	Stages []Stage `json:"stages" yaml:"stages"`

	CompletedFlag string   `json:"completed_flag,omitempty" yaml:"completed_flag,omitempty"`
	RewardFlags   []string `json:"reward_flags,omitempty" yaml:"reward_flags,omitempty"`
}

// Stage is one step of a quest. An empty Next marks the final stage.
type Stage struct {
	ID            string   `json:"id" yaml:"id"`
	Objective     string   `json:"objective" yaml:"objective"`
	RequiredFlags []string `json:"required_flags,omitempty" yaml:"required_flags,omitempty"`
	GrantFlags    []string `json:"grant_flags,omitempty" yaml:"grant_flags,omitempty"`
	Next          string   `json:"next,omitempty" yaml:"next,omitempty"`
}

// IsFinal reports whether completing the stage completes the quest
func (s *Stage) IsFinal() bool {
	return s.Next == ""
}

// FirstStage returns the first stage, or false for a quest without stages
func (d *Definition) FirstStage() (*Stage, bool) {
	if len(d.Stages) == 0 {
		return nil, false
	}
	return &d.Stages[0], true
}

// Stage finds a stage by ID
func (d *Definition) Stage(id string) (*Stage, bool) {
	for i := range d.Stages {
		if d.Stages[i].ID == id {
			return &d.Stages[i], true
		}
	}
	return nil, false
}

// Instance is the runtime progress of one quest. It is the only quest state
// that is saved.
type Instance struct {
	QuestID        string `json:"quest_id" yaml:"quest_id"`
	Status         Status `json:"status" yaml:"status"`
	CurrentStageID string `json:"current_stage_id" yaml:"current_stage_id"`
}

// SaveData is the persisted form of the quest engine
type SaveData struct {
	Active    []Instance `json:"active" yaml:"active"`
	Completed []string   `json:"completed" yaml:"completed"`
}
