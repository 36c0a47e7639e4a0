package main

import (
	"log/slog"

	"github.com/jwebster45206/choice-engine/pkg/content"
	"github.com/jwebster45206/choice-engine/pkg/dialogue"
	"github.com/jwebster45206/choice-engine/pkg/navigation"
	"github.com/jwebster45206/choice-engine/pkg/notify"
	"github.com/jwebster45206/choice-engine/pkg/quest"
	"github.com/jwebster45206/choice-engine/pkg/session"
)

type entryKind int

const (
	entryDialogue entryKind = iota
	entryChoice
	entryQuest
	entryTravel
	entrySystem
)

// entry is one line of the transcript
type entry struct {
	kind    entryKind
	speaker string
	text    string
}

// game is the console's view of a session. The model is copied on every
// update, so it holds a pointer to this.
type game struct {
	sess         *session.Session
	transcript   []entry
	last         dialogue.Update
	resetPending bool
	subs         []*notify.Subscription
}

func newGame(b *content.Bundle, version string, log *slog.Logger) (*game, error) {
	sess, err := session.New(b, session.WithLogger(log), session.WithVersion(version))
	if err != nil {
		return nil, err
	}
	g := &game{sess: sess}

	q := sess.Quests()
	g.subs = append(g.subs,
		sess.Dialogue().OnUpdate(g.onUpdate),
		q.OnStarted(func(e quest.Event) {
			g.add(entryQuest, "", "Quest started: "+e.Quest.Name)
		}),
		q.OnObjectiveUpdated(func(e quest.Event) {
			g.add(entryQuest, "", "Objective: "+e.Stage.Objective)
		}),
		q.OnCompleted(func(e quest.Event) {
			g.add(entryQuest, "", "Quest completed: "+e.Quest.Name)
		}),
		sess.Map().OnSelected(func(l *navigation.Location) {
			g.add(entryTravel, "", "You travel to "+l.Name+".")
		}),
		sess.OnResetRequested(func(dialogue.ResetRequest) {
			g.resetPending = true
		}),
	)
	return g, nil
}

func (g *game) onUpdate(u dialogue.Update) {
	g.last = u
	g.add(entryDialogue, u.Speaker, u.Text)
}

func (g *game) add(kind entryKind, speaker, text string) {
	g.transcript = append(g.transcript, entry{kind: kind, speaker: speaker, text: text})
}

// choose selects a visible choice by its zero-based index
func (g *game) choose(i int) error {
	choices := g.sess.Dialogue().AvailableChoices()
	if i >= 0 && i < len(choices) {
		g.add(entryChoice, "", choices[i].Text)
	}
	return g.sess.Dialogue().SelectChoice(i)
}

func (g *game) travel(i int) error {
	return g.sess.Map().SelectIndex(i)
}

func (g *game) restart() {
	g.resetPending = false
	g.transcript = nil
	g.sess.NewGame()
}

func (g *game) close() {
	for _, s := range g.subs {
		s.Unsubscribe()
	}
	g.sess.Close()
}
