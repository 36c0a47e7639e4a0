package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/quest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameSave_JSONFieldNames(t *testing.T) {
	gs := NewGameSave()
	gs.Timestamp = "2026-01-02T03:04:05Z"
	gs.Flags = []string{"met_elder"}
	gs.Quests = quest.SaveData{
		Active:    []quest.Instance{{QuestID: "q", Status: quest.StatusActive, CurrentStageID: "s1"}},
		Completed: []string{"done"},
	}
	gs.CurrentDialogueNodeID = "hub"

	data, err := json.Marshal(gs)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "version", "timestamp", "player", "flags", "quests", "current_dialogue_node_id"} {
		assert.Contains(t, raw, key)
	}

	player := raw["player"].(map[string]any)
	assert.Equal(t, "Player", player["name"])
	assert.Equal(t, float64(1), player["level"])
	assert.Equal(t, float64(10), player["health"])
	assert.Equal(t, map[string]any{"x": float64(0), "y": float64(2), "z": float64(0)}, player["position"])

	quests := raw["quests"].(map[string]any)
	active := quests["active"].([]any)[0].(map[string]any)
	assert.Equal(t, "q", active["quest_id"])
	assert.Equal(t, "active", active["status"])
	assert.Equal(t, "s1", active["current_stage_id"])
}

func TestGameSave_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(gs *GameSave) *GameSave
		wantErr bool
	}{
		{name: "new game", modify: func(gs *GameSave) *GameSave { return gs }},
		{name: "nil", modify: func(*GameSave) *GameSave { return nil }, wantErr: true},
		{name: "missing version", modify: func(gs *GameSave) *GameSave { gs.Version = ""; return gs }, wantErr: true},
		{name: "bad timestamp", modify: func(gs *GameSave) *GameSave { gs.Timestamp = "yesterday"; return gs }, wantErr: true},
		{name: "negative level", modify: func(gs *GameSave) *GameSave { gs.Player.Level = -1; return gs }, wantErr: true},
		{name: "unknown node is fine", modify: func(gs *GameSave) *GameSave { gs.CurrentDialogueNodeID = "gone"; return gs }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.modify(NewGameSave()).Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSave)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGameSave_SavedAt(t *testing.T) {
	gs := NewGameSave()
	assert.True(t, gs.SavedAt().IsZero())

	gs.Timestamp = "2026-01-02T03:04:05Z"
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), gs.SavedAt())
}
