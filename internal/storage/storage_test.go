package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/config"
	"github.com/jwebster45206/choice-engine/pkg/quest"
	"github.com/jwebster45206/choice-engine/pkg/state"
	"github.com/jwebster45206/choice-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleSave(timestamp string) *state.GameSave {
	gs := state.NewGameSave()
	gs.Timestamp = timestamp
	gs.Flags = []string{"accepted_errand", "met_elder"}
	gs.Quests = quest.SaveData{
		Active:    []quest.Instance{{QuestID: "elder_errand", Status: quest.StatusActive, CurrentStageID: "find_herb"}},
		Completed: []string{"tutorial"},
	}
	gs.CurrentDialogueNodeID = "hub"
	gs.Player.Health = 7.5
	return gs
}

// exerciseSaveStore runs the behavior every save backend shares.
func exerciseSaveStore(t *testing.T, s storage.SaveStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	missing, err := s.LoadGame(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing, "missing saves load as nil")

	older := sampleSave("2026-03-01T10:00:00Z")
	newer := sampleSave("2026-03-02T10:00:00Z")
	require.NoError(t, s.SaveGame(ctx, older.ID, older))
	require.NoError(t, s.SaveGame(ctx, newer.ID, newer))

	loaded, err := s.LoadGame(ctx, older.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(older, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	list, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, state.CurrentVersion, list[0].Version)

	// Overwrite keeps a single entry
	older.CurrentDialogueNodeID = "forest_edge"
	require.NoError(t, s.SaveGame(ctx, older.ID, older))
	loaded, err = s.LoadGame(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "forest_edge", loaded.CurrentDialogueNodeID)
	list, err = s.ListGames(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteGame(ctx, older.ID))
	loaded, err = s.LoadGame(ctx, older.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	require.NoError(t, s.DeleteGame(ctx, older.ID), "deleting twice is fine")

	list, err = s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	assert.Error(t, s.SaveGame(ctx, uuid.New(), nil))
}

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saves")
	fs, err := NewFileStorage(dir, testLogger())
	require.NoError(t, err)
	defer fs.Close()

	exerciseSaveStore(t, fs)

	// Stray files are ignored when listing
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, uuid.NewString()+".json"), []byte("not json"), 0o644))
	list, err := fs.ListGames(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFileStorage_CorruptSave(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir, testLogger())
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id.String()+".json"), []byte("{"), 0o644))

	_, err = fs.LoadGame(context.Background(), id)
	assert.Error(t, err)
}

func newMiniRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rs, err := NewRedisStorage("redis://"+mr.Addr(), 0, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return rs, mr
}

func TestRedisStorage(t *testing.T) {
	rs, mr := newMiniRedisStorage(t)
	exerciseSaveStore(t, rs)

	members, err := mr.Members(redisSaveIndex)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRedisStorage_TTLExpiryPrunesIndex(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rs, err := NewRedisStorage("redis://"+mr.Addr(), time.Hour, testLogger())
	require.NoError(t, err)
	defer rs.Close()
	ctx := context.Background()

	gs := sampleSave("2026-03-01T10:00:00Z")
	require.NoError(t, rs.SaveGame(ctx, gs.ID, gs))
	assert.Equal(t, time.Hour, mr.TTL(saveKey(gs.ID)))

	mr.FastForward(2 * time.Hour)

	loaded, err := rs.LoadGame(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	list, err := rs.ListGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, mr.Exists(redisSaveIndex), "stale index entries are pruned")
}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	rs, mr := newMiniRedisStorage(t)
	ctx := context.Background()
	require.NoError(t, rs.WaitForConnection(ctx, 1, time.Millisecond))

	mr.Close()
	assert.Error(t, rs.WaitForConnection(ctx, 2, time.Millisecond))
}

func TestNewRedisStorage_BadURL(t *testing.T) {
	_, err := NewRedisStorage("not a url", 0, testLogger())
	assert.Error(t, err)
}

func TestSQLiteStorage(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "saves.db")
	ss, err := NewSQLiteStorage(context.Background(), dsn, testLogger())
	require.NoError(t, err)
	defer ss.Close()

	exerciseSaveStore(t, ss)
}

func TestSQLiteStorage_ReopenKeepsSaves(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "saves.db")

	ss, err := NewSQLiteStorage(ctx, dsn, testLogger())
	require.NoError(t, err)
	gs := sampleSave("2026-03-01T10:00:00Z")
	require.NoError(t, ss.SaveGame(ctx, gs.ID, gs))
	require.NoError(t, ss.Close())

	ss, err = NewSQLiteStorage(ctx, dsn, testLogger())
	require.NoError(t, err)
	defer ss.Close()
	loaded, err := ss.LoadGame(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, gs.Flags, loaded.Flags)
}

func TestNew_SelectsBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	base := t.TempDir()
	tests := []struct {
		name string
		cfg  *config.Config
		want any
	}{
		{
			name: "file",
			cfg:  &config.Config{SaveBackend: config.BackendFile, SaveDir: filepath.Join(base, "saves")},
			want: &FileStorage{},
		},
		{
			name: "redis",
			cfg:  &config.Config{SaveBackend: config.BackendRedis, RedisURL: "redis://" + mr.Addr()},
			want: &RedisStorage{},
		},
		{
			name: "sqlite",
			cfg:  &config.Config{SaveBackend: config.BackendSQLite, SQLiteDSN: "file:" + filepath.Join(base, "saves.db")},
			want: &SQLiteStorage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ContentPath = filepath.Join("..", "..", "data", "content")
			store, err := New(context.Background(), tt.cfg, testLogger())
			require.NoError(t, err)
			defer store.Close()

			assert.IsType(t, tt.want, store.SaveStore)
			require.NoError(t, store.Ping(context.Background()))
		})
	}

	_, err = New(context.Background(), &config.Config{SaveBackend: "postgres"}, testLogger())
	assert.Error(t, err)
}
