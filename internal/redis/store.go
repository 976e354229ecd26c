package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mossy-p/flowsync-signaling/internal/models"
	"github.com/redis/go-redis/v9"
)

// Store is the coordination service's view of the shared key-value store.
// Join tokens are written by the room API; this side only reads them and
// writes timer mirrors.
type Store struct {
	client *redis.Client
}

// NewStore wraps a connected client
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func tokenKey(roomCode, token string) string {
	return fmt.Sprintf("room:%s:token:%s", roomCode, token)
}

func timerKey(roomCode string) string {
	return fmt.Sprintf("room:%s:timer", roomCode)
}

// TokenValid reports whether a live join token exists for the room
func (s *Store) TokenValid(ctx context.Context, roomCode, token string) (bool, error) {
	val, err := s.client.Get(ctx, tokenKey(roomCode, token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("token lookup: %w", err)
	}
	return val != "", nil
}

// MirrorTimer records the room's timer fields. Unset timestamps are stored
// as empty strings so stale values from an earlier transition are cleared.
func (s *Store) MirrorTimer(ctx context.Context, roomCode string, st models.TimerState) error {
	fields := map[string]interface{}{
		"status":     string(st.Status),
		"type":       string(st.Type),
		"remaining":  st.Remaining,
		"started_at": millisField(st.StartedAt),
		"paused_at":  millisField(st.PausedAt),
	}
	if err := s.client.HSet(ctx, timerKey(roomCode), fields).Err(); err != nil {
		return fmt.Errorf("timer mirror: %w", err)
	}
	return nil
}

// Ping checks connectivity for the health endpoint
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

func millisField(ms *int64) string {
	if ms == nil {
		return ""
	}
	return strconv.FormatInt(*ms, 10)
}
