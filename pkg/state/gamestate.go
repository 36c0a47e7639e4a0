package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/quest"
)

// CurrentVersion is written to saves that have no configured game version.
const CurrentVersion = "v1.1"

var ErrInvalidSave = errors.New("invalid game save")

// Vector3 is a world position.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlayerData is the persisted player record.
type PlayerData struct {
	Name     string  `json:"name"`
	Level    int     `json:"level"`
	Health   float64 `json:"health"`
	Position Vector3 `json:"position"`
}

// DefaultPlayer returns the player a new game starts with.
func DefaultPlayer() PlayerData {
	return PlayerData{
		Name:     "Player",
		Level:    1,
		Health:   10,
		Position: Vector3{X: 0, Y: 2, Z: 0},
	}
}

// GameSave is the persisted state of one game session.
type GameSave struct {
	ID                    uuid.UUID      `json:"id"`                       // Save slot ID, assigned by the session
	Version               string         `json:"version"`                  // Game version that wrote the save
	Timestamp             string         `json:"timestamp"`                // RFC3339 UTC
	Player                PlayerData     `json:"player"`
	Flags                 []string       `json:"flags"`
	Quests                quest.SaveData `json:"quests"`
	CurrentDialogueNodeID string         `json:"current_dialogue_node_id"` // Empty means the start node
	CurrentLocationID     string         `json:"current_location_id,omitempty"`
}

// NewGameSave returns the save of a fresh game.
func NewGameSave() *GameSave {
	return &GameSave{
		ID:      uuid.New(),
		Version: CurrentVersion,
		Player:  DefaultPlayer(),
		Flags:   []string{},
		Quests: quest.SaveData{
			Active:    []quest.Instance{},
			Completed: []string{},
		},
	}
}

// Validate checks the save can be restored. Unknown flags, quests and nodes
// are not errors; the engines degrade on those.
func (gs *GameSave) Validate() error {
	if gs == nil {
		return fmt.Errorf("%w: nil save", ErrInvalidSave)
	}
	if gs.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidSave)
	}
	if gs.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, gs.Timestamp); err != nil {
			return fmt.Errorf("%w: bad timestamp %q", ErrInvalidSave, gs.Timestamp)
		}
	}
	if gs.Player.Level < 0 {
		return fmt.Errorf("%w: negative player level %d", ErrInvalidSave, gs.Player.Level)
	}
	return nil
}

// SavedAt parses Timestamp. A save that was never written returns the zero time.
func (gs *GameSave) SavedAt() time.Time {
	t, err := time.Parse(time.RFC3339, gs.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
