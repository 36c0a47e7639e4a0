package dialogue

import "github.com/jwebster45206/choice-engine/pkg/conditionals"

// EndedText is shown in place of node text once dialogue has ended.
const EndedText = "[Dialogue Ended]"

// Node is a single beat of dialogue. Nodes are content and never change at runtime.
type Node struct {
	ID      string   `json:"id" yaml:"id"`
	Speaker string   `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text    string   `json:"text" yaml:"text"`
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Choice is a player-selectable option on a node.
// An empty or unknown Next ends the dialogue.
type Choice struct {
	Text   string `json:"text" yaml:"text"`
	Next   string `json:"next,omitempty" yaml:"next,omitempty"`
	Reload bool   `json:"reload,omitempty" yaml:"reload,omitempty"` // Ask the host to reset the session instead of moving on

	conditionals.Predicate `yaml:",inline"` // Visibility: required_flags / forbidden_flags

	Grants       []string `json:"grant_flags,omitempty" yaml:"grant_flags,omitempty"`     // Asserted on selection, in order
	QuestTrigger string   `json:"quest_trigger,omitempty" yaml:"quest_trigger,omitempty"` // Quest to try to start on selection
}

func choicePredicate(c Choice) conditionals.Predicate {
	return c.Predicate
}
