// Package session assembles the flag store, dialogue, quests and map for one
// play-through and moves that state in and out of saves.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/content"
	"github.com/jwebster45206/choice-engine/pkg/dialogue"
	"github.com/jwebster45206/choice-engine/pkg/flags"
	"github.com/jwebster45206/choice-engine/pkg/navigation"
	"github.com/jwebster45206/choice-engine/pkg/notify"
	"github.com/jwebster45206/choice-engine/pkg/quest"
	"github.com/jwebster45206/choice-engine/pkg/state"
	"github.com/jwebster45206/choice-engine/pkg/storage"
)

var (
	ErrNoContent    = errors.New("no content bundle")
	ErrSaveNotFound = errors.New("save not found")
)

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for save timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithVersion sets the version written to saves
func WithVersion(version string) Option {
	return func(s *Session) {
		if version != "" {
			s.version = version
		}
	}
}

// WithPlayer sets the player a new game starts with
func WithPlayer(p state.PlayerData) Option {
	return func(s *Session) {
		s.defaultPlayer = p
	}
}

// Session is one play-through. It is not safe for concurrent use; every
// operation runs to completion, cascades included, before returning.
type Session struct {
	id     uuid.UUID
	bundle *content.Bundle

	flags    *flags.Store
	dialogue *dialogue.Engine
	quests   *quest.Engine
	triggers *quest.TriggerTable
	world    *navigation.Map

	player        state.PlayerData
	defaultPlayer state.PlayerData
	version       string
	now           func() time.Time
	logger        *slog.Logger

	resets notify.Registry[dialogue.ResetRequest]
	subs   []*notify.Subscription
}

// New builds a session from content. Nothing is entered until NewGame,
// Restore or Load is called.
func New(bundle *content.Bundle, opts ...Option) (*Session, error) {
	if bundle == nil {
		return nil, ErrNoContent
	}

	s := &Session{
		bundle:        bundle,
		defaultPlayer: state.DefaultPlayer(),
		version:       state.CurrentVersion,
		now:           time.Now,
		logger:        slog.Default(),
	}
	if bundle.Version != "" {
		s.version = bundle.Version
	}
	for _, opt := range opts {
		opt(s)
	}

	s.flags = flags.NewStore(s.logger)
	s.dialogue = dialogue.NewEngine(dialogue.NewGraph(bundle.Nodes, s.logger), s.flags, bundle.StartNode, s.logger)
	s.quests = quest.NewEngine(quest.NewCatalog(bundle.Quests, s.logger), s.flags, s.logger)
	s.triggers = quest.NewTriggerTable(s.flags, s.quests, bundle.QuestTriggers, s.logger)
	s.world = navigation.NewMap(bundle.Locations, s.flags, s.dialogue, s.logger)
	s.player = s.defaultPlayer

	s.subs = append(s.subs,
		s.dialogue.OnQuestTriggered(s.onQuestTriggered),
		s.dialogue.OnReset(func(req dialogue.ResetRequest) {
			s.resets.Publish(req)
		}),
	)

	return s, nil
}

func (s *Session) onQuestTriggered(questID string) {
	if !s.quests.TryStart(questID) {
		s.logger.Debug("Dialogue quest trigger did not start quest", "quest_id", questID)
	}
}

// NewGame resets everything to the start of the content and enters the
// start node.
func (s *Session) NewGame() {
	s.id = uuid.New()
	s.flags.Restore(nil)
	s.quests.LoadSaveData(quest.SaveData{})
	s.player = s.defaultPlayer
	s.world.SetCurrent(s.bundle.StartLocation)

	s.logger.Info("New game started", "session_id", s.id, "title", s.bundle.Title)
	s.dialogue.Start()
}

// Snapshot captures the session as a save
func (s *Session) Snapshot() *state.GameSave {
	gs := &state.GameSave{
		ID:                    s.id,
		Version:               s.version,
		Timestamp:             s.now().UTC().Format(time.RFC3339),
		Player:                s.player,
		Flags:                 s.flags.Snapshot(),
		Quests:                s.quests.SaveData(),
		CurrentDialogueNodeID: s.dialogue.CurrentNodeID(),
	}
	if loc, ok := s.world.Current(); ok {
		gs.CurrentLocationID = loc.ID
	}
	return gs
}

// Restore replaces the session state with gs. An invalid save starts a new
// game instead and returns the validation error.
func (s *Session) Restore(gs *state.GameSave) error {
	if err := gs.Validate(); err != nil {
		s.logger.Warn("Invalid save, starting new game", "error", err)
		s.NewGame()
		return fmt.Errorf("failed to restore game: %w", err)
	}
	if gs.Version != s.version {
		s.logger.Warn("Save written by a different version", "save_version", gs.Version, "version", s.version)
	}

	s.id = gs.ID
	if s.id == uuid.Nil {
		s.id = uuid.New()
	}
	s.flags.Restore(gs.Flags)
	s.quests.LoadSaveData(gs.Quests)
	s.player = gs.Player
	s.world.SetCurrent(gs.CurrentLocationID)

	s.logger.Info("Game restored", "session_id", s.id, "node_id", gs.CurrentDialogueNodeID, "flags", len(gs.Flags))
	s.dialogue.LoadFromNodeID(gs.CurrentDialogueNodeID)
	return nil
}

// Save writes a snapshot to store under the session ID
func (s *Session) Save(ctx context.Context, store storage.SaveStore) error {
	gs := s.Snapshot()
	if err := store.SaveGame(ctx, gs.ID, gs); err != nil {
		s.logger.Error("Failed to save game", "session_id", gs.ID, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	s.logger.Info("Game saved", "session_id", gs.ID)
	return nil
}

// Load restores the save with the given ID. On any failure the session is
// left in the new-game state.
func (s *Session) Load(ctx context.Context, store storage.SaveStore, id uuid.UUID) error {
	gs, err := store.LoadGame(ctx, id)
	if err != nil {
		s.NewGame()
		return fmt.Errorf("failed to load game: %w", err)
	}
	if gs == nil {
		s.NewGame()
		return fmt.Errorf("%w: %s", ErrSaveNotFound, id)
	}
	if gs.ID == uuid.Nil {
		gs.ID = id
	}
	return s.Restore(gs)
}

// OnResetRequested registers fn for reload choices. The session does not
// reset itself; the host decides, usually by calling NewGame.
func (s *Session) OnResetRequested(fn func(dialogue.ResetRequest)) *notify.Subscription {
	return s.resets.Subscribe(fn)
}

// Close detaches all internal subscriptions
func (s *Session) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	s.triggers.Close()
	s.quests.Close()
}

func (s *Session) ID() uuid.UUID              { return s.id }
func (s *Session) Bundle() *content.Bundle    { return s.bundle }
func (s *Session) Flags() *flags.Store        { return s.flags }
func (s *Session) Dialogue() *dialogue.Engine { return s.dialogue }
func (s *Session) Quests() *quest.Engine      { return s.quests }
func (s *Session) Map() *navigation.Map       { return s.world }
func (s *Session) Player() state.PlayerData   { return s.player }

// SetPlayer replaces the player record
func (s *Session) SetPlayer(p state.PlayerData) {
	s.player = p
}
