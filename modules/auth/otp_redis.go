package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOTPStore keeps pending codes in Redis so verification works across
// server restarts and multiple instances. Expiry is delegated to the key TTL.
type redisOTPStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisOTPStore creates an OTP store backed by the given Redis client.
func NewRedisOTPStore(client *redis.Client) OTPStore {
	return &redisOTPStore{
		client:    client,
		keyPrefix: "nook:otp:",
	}
}

func (s *redisOTPStore) Save(ctx context.Context, key string, record OTPRecord, ttl time.Duration) error {
	record.ExpiresAt = time.Now().Add(ttl)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode otp record: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp record: %w", err)
	}
	return nil
}

func (s *redisOTPStore) Get(ctx context.Context, key string) (OTPRecord, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return OTPRecord{}, ErrOTPNotFound
		}
		return OTPRecord{}, fmt.Errorf("failed to read otp record: %w", err)
	}

	var record OTPRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return OTPRecord{}, fmt.Errorf("failed to decode otp record: %w", err)
	}
	if time.Now().After(record.ExpiresAt) {
		// Key TTL should have removed it already; treat as expired anyway.
		_ = s.client.Del(ctx, s.keyPrefix+key).Err()
		return OTPRecord{}, ErrOTPExpired
	}
	return record, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}
