package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"ovation/internal/nomination/models"
	"ovation/internal/platform/redis"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

const nominationKeyPrefix = "ovation:nomination:draft:"

// Redis keeps in-progress drafts so they survive page reloads. No TTL:
// abandoned-draft expiry is a retention-policy concern, not the store's.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func nominationKey(nominationID id.NominationID) string {
	return nominationKeyPrefix + nominationID.String()
}

func (s *Redis) Load(ctx context.Context, nominationID id.NominationID) (models.Nomination, error) {
	raw, err := s.client.Get(ctx, nominationKey(nominationID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.Nomination{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Nomination{}, fmt.Errorf("load nomination: %w: %w", sentinel.ErrUnavailable, err)
	}
	var nomination models.Nomination
	if err := json.Unmarshal(raw, &nomination); err != nil {
		return models.Nomination{}, fmt.Errorf("decode nomination %s: %w", nominationID, err)
	}
	return nomination, nil
}

func (s *Redis) Save(ctx context.Context, nomination models.Nomination) error {
	raw, err := json.Marshal(nomination)
	if err != nil {
		return fmt.Errorf("encode nomination %s: %w", nomination.ID, err)
	}
	if err := s.client.Set(ctx, nominationKey(nomination.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save nomination: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Redis) Clear(ctx context.Context, nominationID id.NominationID) error {
	if err := s.client.Del(ctx, nominationKey(nominationID)).Err(); err != nil {
		return fmt.Errorf("clear nomination: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
