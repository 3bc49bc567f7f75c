package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"satvault/internal/vault/models"
	"satvault/pkg/platform/sentinel"
)

const profileKeyPrefix = "satvault:profile:"

// RedisStore keeps profiles as JSON values under satvault:profile:<principal>.
// Profiles have no expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type profileRecord struct {
	Principal string `json:"principal"`
	Name      string `json:"name"`
	UpdatedAt int64  `json:"updated_at_unix_ms"`
}

func (s *RedisStore) Save(ctx context.Context, p *models.UserProfile) error {
	payload, err := json.Marshal(profileRecord{
		Principal: p.Principal,
		Name:      p.Name,
		UpdatedAt: p.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := s.client.Set(ctx, profileKeyPrefix+p.Principal, payload, 0).Err(); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, principal string) (*models.UserProfile, error) {
	raw, err := s.client.Get(ctx, profileKeyPrefix+principal).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var rec profileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &models.UserProfile{
		Principal: rec.Principal,
		Name:      rec.Name,
		UpdatedAt: time.UnixMilli(rec.UpdatedAt).UTC(),
	}, nil
}
