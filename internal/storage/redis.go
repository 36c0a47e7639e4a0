package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/state"
	"github.com/jwebster45206/choice-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	redisSavePrefix = "save:"
	redisSaveIndex  = "saves"
)

// RedisStorage keeps saves as JSON strings under save:<uuid>, indexed by the
// saves set. A zero TTL keeps saves forever.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ storage.SaveStore = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis storage instance from a redis:// URL
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisStorage{
		client: redis.NewClient(opt),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func saveKey(id uuid.UUID) string {
	return redisSavePrefix + id.String()
}

func (r *RedisStorage) SaveGame(ctx context.Context, id uuid.UUID, gs *state.GameSave) error {
	if gs == nil {
		return errors.New("game save cannot be nil")
	}
	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal game save", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal game save: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, saveKey(id), data, r.ttl)
		pipe.SAdd(ctx, redisSaveIndex, id.String())
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save game", "uuid", id, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.GameSave, error) {
	data, err := r.client.Get(ctx, saveKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Game save not found", "uuid", id)
			return nil, nil
		}
		r.logger.Error("Failed to load game save", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load game save: %w", err)
	}

	var gs state.GameSave
	if err := json.Unmarshal(data, &gs); err != nil {
		r.logger.Error("Failed to unmarshal game save", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal game save: %w", err)
	}
	return &gs, nil
}

func (r *RedisStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, saveKey(id))
		pipe.SRem(ctx, redisSaveIndex, id.String())
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete game save", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete game save: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListGames(ctx context.Context) ([]storage.SaveSummary, error) {
	members, err := r.client.SMembers(ctx, redisSaveIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	if len(members) == 0 {
		return []storage.SaveSummary{}, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = redisSavePrefix + m
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load saves: %w", err)
	}

	out := make([]storage.SaveSummary, 0, len(members))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Key expired; the index entry is stale
			expired = append(expired, members[i])
			continue
		}
		id, err := uuid.Parse(members[i])
		if err != nil {
			continue
		}
		var gs state.GameSave
		if err := json.Unmarshal([]byte(raw), &gs); err != nil {
			r.logger.Warn("Skipping unreadable save", "uuid", id, "error", err)
			continue
		}
		out = append(out, storage.SaveSummary{ID: id, Version: gs.Version, SavedAt: gs.SavedAt()})
	}

	if len(expired) > 0 {
		if err := r.client.SRem(ctx, redisSaveIndex, expired...).Err(); err != nil {
			r.logger.Warn("Failed to prune expired saves", "error", err)
		}
	}

	storage.SortSummaries(out)
	return out, nil
}
