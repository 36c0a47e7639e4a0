package content

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/jwebster45206/choice-engine/pkg/quest"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDuplicateNode         = "duplicate_node"
	codeDuplicateQuest        = "duplicate_quest"
	codeDuplicateLocation     = "duplicate_location"
	codeDuplicateStage        = "duplicate_stage"
	codeMissingStartNode      = "missing_start_node"
	codeDanglingNextNode      = "dangling_next_node"
	codeDanglingNextStage     = "dangling_next_stage"
	codeZeroStageQuest        = "zero_stage_quest"
	codeStageCycle            = "stage_cycle"
	codeUnknownTriggerQuest   = "unknown_trigger_quest"
	codeUnknownChoiceQuest    = "unknown_choice_quest"
	codeUnreachableNode       = "unreachable_node"
	codeDanglingLocationEntry = "dangling_location_entry"
	codeDanglingConnection    = "dangling_connection"
	codeDanglingStartLocation = "dangling_start_location"
	codeInvalidID             = "invalid_id"
	codeMissingID             = "missing_id"
)

// idPattern matches lowercase snake_case identifiers
var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

type Issue struct {
	Severity Severity
	Code     string
	Entity   string
	Message  string
}

func (i Issue) String() string {
	if i.Entity == "" {
		return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s %s: %s", i.Severity, i.Code, i.Entity, i.Message)
}

type Report struct {
	Issues []Issue
}

// HasErrors reports whether any issue has error severity
func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarn)
}

// Codes lists the issue codes in report order
func (r *Report) Codes() []string {
	codes := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		codes = append(codes, i.Code)
	}
	return codes
}

func (r *Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

func (r *Report) add(sev Severity, code, entity, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Code:     code,
		Entity:   entity,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Validate checks a bundle for authoring defects. The engines tolerate all of
// them at runtime; the report says where content will misbehave.
func Validate(b *Bundle) *Report {
	r := &Report{}
	if b == nil {
		r.add(SeverityError, codeMissingStartNode, "", "no content")
		return r
	}

	nodes := validateNodes(r, b)
	quests := validateQuests(r, b)
	locations := validateLocations(r, b, nodes)

	if b.StartNode == "" {
		r.add(SeverityError, codeMissingStartNode, "", "start_node is not set")
	} else if !nodes[b.StartNode] {
		r.add(SeverityError, codeMissingStartNode, b.StartNode, "start node does not exist")
	}
	if b.StartLocation != "" && !locations[b.StartLocation] {
		r.add(SeverityError, codeDanglingStartLocation, b.StartLocation, "start location does not exist")
	}

	for _, n := range b.Nodes {
		for i, c := range n.Choices {
			if c.QuestTrigger != "" && !quests[c.QuestTrigger] {
				r.add(SeverityWarn, codeUnknownChoiceQuest, n.ID,
					"choice %d triggers unknown quest %q", i, c.QuestTrigger)
			}
		}
	}
	for i, t := range b.QuestTriggers {
		if !quests[t.QuestID] {
			r.add(SeverityError, codeUnknownTriggerQuest, t.Flag,
				"trigger %d maps to unknown quest %q", i, t.QuestID)
		}
	}

	validateReachability(r, b, nodes)
	validateFlagIDs(r, b)
	return r
}

func checkID(r *Report, kind, id string) {
	if !idPattern.MatchString(id) {
		r.add(SeverityWarn, codeInvalidID, id, "%s ID should be lowercase snake_case", kind)
	}
}

func validateNodes(r *Report, b *Bundle) map[string]bool {
	seen := make(map[string]bool, len(b.Nodes))
	for i, n := range b.Nodes {
		if n.ID == "" {
			r.add(SeverityError, codeMissingID, "", "node %d has no ID", i)
			continue
		}
		if seen[n.ID] {
			r.add(SeverityError, codeDuplicateNode, n.ID, "node %d repeats an earlier ID; the first is used", i)
			continue
		}
		seen[n.ID] = true
		checkID(r, "node", n.ID)
	}

	for _, n := range b.Nodes {
		for i, c := range n.Choices {
			if c.Reload || c.Next == "" {
				continue
			}
			if !seen[c.Next] {
				r.add(SeverityWarn, codeDanglingNextNode, n.ID,
					"choice %d goes to unknown node %q and will end the dialogue", i, c.Next)
			}
		}
	}
	return seen
}

func validateQuests(r *Report, b *Bundle) map[string]bool {
	seen := make(map[string]bool, len(b.Quests))
	for i := range b.Quests {
		q := &b.Quests[i]
		if q.ID == "" {
			r.add(SeverityError, codeMissingID, "", "quest %d has no ID", i)
			continue
		}
		if seen[q.ID] {
			r.add(SeverityError, codeDuplicateQuest, q.ID, "quest %d repeats an earlier ID; the first is used", i)
			continue
		}
		seen[q.ID] = true
		checkID(r, "quest", q.ID)
		validateStages(r, q)
	}
	return seen
}

func validateStages(r *Report, q *quest.Definition) {
	if len(q.Stages) == 0 {
		r.add(SeverityError, codeZeroStageQuest, q.ID, "quest has no stages and can never start")
		return
	}

	stages := make(map[string]bool, len(q.Stages))
	for _, s := range q.Stages {
		if stages[s.ID] {
			r.add(SeverityError, codeDuplicateStage, q.ID, "stage %q is declared more than once", s.ID)
			continue
		}
		stages[s.ID] = true
	}
	for _, s := range q.Stages {
		if s.Next != "" && !stages[s.Next] {
			r.add(SeverityError, codeDanglingNextStage, q.ID,
				"stage %q points to unknown stage %q", s.ID, s.Next)
		}
	}

	// Follow the chain from the first stage; revisiting a stage loops forever
	visited := make(map[string]bool, len(q.Stages))
	stage, ok := q.FirstStage()
	for ok {
		if visited[stage.ID] {
			r.add(SeverityError, codeStageCycle, q.ID, "stage chain loops back to %q", stage.ID)
			return
		}
		visited[stage.ID] = true
		if stage.IsFinal() {
			return
		}
		stage, ok = q.Stage(stage.Next)
	}
}

func validateLocations(r *Report, b *Bundle, nodes map[string]bool) map[string]bool {
	seen := make(map[string]bool, len(b.Locations))
	for i, l := range b.Locations {
		if l.ID == "" {
			r.add(SeverityError, codeMissingID, "", "location %d has no ID", i)
			continue
		}
		if seen[l.ID] {
			r.add(SeverityError, codeDuplicateLocation, l.ID, "location %d repeats an earlier ID; the first is used", i)
			continue
		}
		seen[l.ID] = true
		checkID(r, "location", l.ID)
		if !nodes[l.EntryNode] {
			r.add(SeverityError, codeDanglingLocationEntry, l.ID, "entry node %q does not exist", l.EntryNode)
		}
	}
	for _, l := range b.Locations {
		for _, c := range l.Connections {
			if !seen[c.Target] {
				r.add(SeverityError, codeDanglingConnection, l.ID, "connection %q targets unknown location %q", c.Name, c.Target)
			}
		}
	}
	return seen
}

// validateReachability walks choices from the start node and every location
// entry node.
func validateReachability(r *Report, b *Bundle, nodes map[string]bool) {
	byID := make(map[string]int, len(b.Nodes))
	for i, n := range b.Nodes {
		if _, ok := byID[n.ID]; !ok && n.ID != "" {
			byID[n.ID] = i
		}
	}

	var queue []string
	if nodes[b.StartNode] {
		queue = append(queue, b.StartNode)
	}
	for _, l := range b.Locations {
		if nodes[l.EntryNode] {
			queue = append(queue, l.EntryNode)
		}
	}

	reached := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reached[id] {
			continue
		}
		reached[id] = true
		for _, c := range b.Nodes[byID[id]].Choices {
			if nodes[c.Next] && !reached[c.Next] {
				queue = append(queue, c.Next)
			}
		}
	}

	for _, n := range b.Nodes {
		if n.ID == "" || reached[n.ID] {
			continue
		}
		reached[n.ID] = true
		r.add(SeverityWarn, codeUnreachableNode, n.ID, "node cannot be reached from the start node or any location")
	}
}

// validateFlagIDs checks the naming of every flag the content mentions.
// Each flag is reported once.
func validateFlagIDs(r *Report, b *Bundle) {
	var all []string
	for _, n := range b.Nodes {
		for _, c := range n.Choices {
			all = append(all, c.Required...)
			all = append(all, c.Forbidden...)
			all = append(all, c.Grants...)
		}
	}
	for _, q := range b.Quests {
		all = append(all, q.Activation.Required...)
		all = append(all, q.Activation.Forbidden...)
		all = append(all, q.StartedFlag, q.CompletedFlag)
		all = append(all, q.RewardFlags...)
		for _, s := range q.Stages {
			all = append(all, s.RequiredFlags...)
			all = append(all, s.GrantFlags...)
		}
	}
	for _, t := range b.QuestTriggers {
		all = append(all, t.Flag)
	}
	for _, l := range b.Locations {
		all = append(all, l.Access.Required...)
		all = append(all, l.Access.Forbidden...)
		for _, c := range l.Connections {
			all = append(all, c.Required...)
			all = append(all, c.Forbidden...)
		}
	}

	slices.Sort(all)
	for _, flag := range slices.Compact(all) {
		if flag == "" {
			continue
		}
		checkID(r, "flag", flag)
	}
}
