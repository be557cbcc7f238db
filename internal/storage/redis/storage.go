package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hardliner66/MageBattle/internal/model"
	"github.com/hardliner66/MageBattle/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface. The
// roster lives in a single hash so it can be listed in one round trip.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Save and refresh the roster TTL in one round trip
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, rosterKey(), string(player.ID), data)
	if s.cfg.RosterTTL > 0 {
		pipe.Expire(ctx, rosterKey(), s.cfg.RosterTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.HGet(ctx, rosterKey(), string(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.HDel(ctx, rosterKey(), string(id)).Err()
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	entries, err := s.client.HGetAll(ctx, rosterKey()).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(entries))
	for id, data := range entries {
		var player model.Player
		if err := json.Unmarshal([]byte(data), &player); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", id, err)
		}
		players = append(players, &player)
	}

	storage.SortByJoinTime(players)
	return players, nil
}

func (s *Storage) Reset(ctx context.Context) error {
	return s.client.Del(ctx, rosterKey()).Err()
}
