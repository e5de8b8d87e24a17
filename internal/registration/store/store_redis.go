package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"ovation/internal/platform/redis"
	"ovation/internal/registration/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

const registrationKeyPrefix = "ovation:registration:draft:"

// Redis keeps in-progress registration drafts across page reloads. It is a
// draft store only: the conditional paid transition lives in the record
// store, so Redis does not implement RecordStore.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func registrationKey(registrationID id.RegistrationID) string {
	return registrationKeyPrefix + registrationID.String()
}

func (s *Redis) Load(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error) {
	raw, err := s.client.Get(ctx, registrationKey(registrationID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.Registration{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Registration{}, fmt.Errorf("load registration: %w: %w", sentinel.ErrUnavailable, err)
	}
	var registration models.Registration
	if err := json.Unmarshal(raw, &registration); err != nil {
		return models.Registration{}, fmt.Errorf("decode registration %s: %w", registrationID, err)
	}
	return registration, nil
}

func (s *Redis) Save(ctx context.Context, registration models.Registration) error {
	raw, err := json.Marshal(registration)
	if err != nil {
		return fmt.Errorf("encode registration %s: %w", registration.ID, err)
	}
	if err := s.client.Set(ctx, registrationKey(registration.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save registration: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Redis) Clear(ctx context.Context, registrationID id.RegistrationID) error {
	if err := s.client.Del(ctx, registrationKey(registrationID)).Err(); err != nil {
		return fmt.Errorf("clear registration: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
