// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	fieldVolume        = "volume"
	fieldMuted         = "muted"
	fieldNotifications = "notifications_enabled"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Key      string // hash key holding the preferences
}

// Redis stores preferences as fields of a single hash.
type Redis struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis preferences store")

	return newRedisWithClient(client, cfg.Key, logger), nil
}

func newRedisWithClient(client *redis.Client, key string, logger zerolog.Logger) *Redis {
	if key == "" {
		key = "radiocore:prefs"
	}
	return &Redis{client: client, key: key, logger: logger}
}

// Load reads the hash. Missing fields keep their zero values.
func (r *Redis) Load(ctx context.Context) (Preferences, error) {
	vals, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}

	var p Preferences
	if v, ok := vals[fieldVolume]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.logger.Warn().Err(err).Str("value", v).Msg("ignoring malformed stored volume")
		} else {
			p.Volume = clampVolume(f)
			p.HasVolume = true
		}
	}
	p.Muted = vals[fieldMuted] == "1"
	p.NotificationsEnabled = vals[fieldNotifications] == "1"
	return p, nil
}

// Save writes all fields in one HSET.
func (r *Redis) Save(ctx context.Context, p Preferences) error {
	fields := map[string]any{
		fieldMuted:         boolField(p.Muted),
		fieldNotifications: boolField(p.NotificationsEnabled),
	}
	if p.HasVolume {
		fields[fieldVolume] = strconv.FormatFloat(clampVolume(p.Volume), 'f', -1, 64)
	}
	if err := r.client.HSet(ctx, r.key, fields).Err(); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
