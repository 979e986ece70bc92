package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldToken   = "token"
	fieldUserKey = "user_key"
)

// RedisStore keeps session credentials in a redis hash per session, refreshed on save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, cred Credential) error {
	key := sessionKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldToken, cred.Token, fieldUserKey, cred.UserKey)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save credential failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Credential, error) {
	values, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return Credential{}, fmt.Errorf("redis load credential failed: %w", err)
	}

	cred := Credential{
		Token:   values[fieldToken],
		UserKey: values[fieldUserKey],
	}
	if cred.Empty() {
		return Credential{}, ErrNoCredential
	}
	return cred, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis clear credential failed: %w", err)
	}
	return nil
}

// For binds the store to one session so it can be handed out as a Provider.
func (s *RedisStore) For(sessionID string) Provider {
	return sessionProvider{store: s, sessionID: sessionID}
}

type sessionProvider struct {
	store     *RedisStore
	sessionID string
}

func (p sessionProvider) Credential(ctx context.Context) (Credential, error) {
	return p.store.Load(ctx, p.sessionID)
}

func (p sessionProvider) Clear(ctx context.Context) error {
	return p.store.Clear(ctx, p.sessionID)
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:credential", sessionID)
}
