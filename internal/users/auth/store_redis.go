// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
)

// # OAuth State Store

// RedisStateStore implements [StateStore] using Redis.
type RedisStateStore struct {
	client *redis.Client
}

// NewStateStore creates a new Redis-backed StateStore.
func NewStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

/*
Save stores an OAuth state value with the provider that issued it.

Parameters:
  - context: context.Context
  - state: string
  - provider: string
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (repository *RedisStateStore) Save(context context.Context, state, provider string, ttl time.Duration) error {
	key := constants.RedisPrefixOAuthState + state

	if err := repository.client.Set(context, key, provider, ttl).Err(); err != nil {
		return fmt.Errorf("redis_oauth_state_set_failed: %w", err)
	}

	return nil
}

/*
Consume atomically reads and deletes a state value.

Description: GETDEL guarantees a state can complete at most one callback.

Parameters:
  - context: context.Context
  - state: string

Returns:
  - string: Provider key the state was issued for
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisStateStore) Consume(context context.Context, state string) (string, error) {
	key := constants.RedisPrefixOAuthState + state

	provider, err := repository.client.GetDel(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("OAuth state")
		}
		return "", fmt.Errorf("redis_oauth_state_consume_failed: %w", err)
	}

	return provider, nil
}

// # SSO Ledger

// RedisTokenLedger implements [TokenLedger] using Redis.
type RedisTokenLedger struct {
	client *redis.Client
}

// NewTokenLedger creates a new Redis-backed TokenLedger.
func NewTokenLedger(client *redis.Client) *RedisTokenLedger {
	return &RedisTokenLedger{client: client}
}

/*
Claim records tokenID as consumed.

Parameters:
  - context: context.Context
  - tokenID: string
  - ttl: time.Duration (should cover the token's remaining lifetime)

Returns:
  - bool: False if tokenID was already claimed
  - error: Connectivity errors
*/
func (repository *RedisTokenLedger) Claim(context context.Context, tokenID string, ttl time.Duration) (bool, error) {
	key := constants.RedisPrefixSSOUsed + tokenID

	claimed, err := repository.client.SetNX(context, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_sso_ledger_claim_failed: %w", err)
	}

	return claimed, nil
}
