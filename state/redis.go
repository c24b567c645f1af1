// This code is in Public Domain. Take all the code you want, I'll just write more.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kjk/cynic/api"
)

const redisKeyPrefix = "cynic:state:"

// RedisStore keeps states in redis as json, so that they survive
// restarts and can be shared by several frontends
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a store. Every Save resets the key's expiry to
// ttl; 0 means no expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a redis:// url or treats s as host:port
func NewRedisClient(s string) (*redis.Client, error) {
	opts, err := redis.ParseURL(s)
	if err != nil {
		if s == "" {
			return nil, err
		}
		opts = &redis.Options{Addr: s}
	}
	return redis.NewClient(opts), nil
}

func redisKey(clientID string) string {
	return redisKeyPrefix + clientID
}

// Load returns the client's state or nil if there's none
func (s *RedisStore) Load(ctx context.Context, clientID string) (*State, error) {
	d, err := s.rdb.Get(ctx, redisKey(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: loading %s: %w", clientID, err)
	}
	st := New()
	if err = json.Unmarshal(d, st); err != nil {
		// a state we can't read is as good as no state
		return nil, nil
	}
	if st.Comments == nil {
		st.Comments = map[string][]api.Comment{}
	}
	return st, nil
}

// Save writes st. The last Save wins.
func (s *RedisStore) Save(ctx context.Context, clientID string, st *State) error {
	d, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: encoding %s: %w", clientID, err)
	}
	if err = s.rdb.Set(ctx, redisKey(clientID), d, s.ttl).Err(); err != nil {
		return fmt.Errorf("state: saving %s: %w", clientID, err)
	}
	return nil
}
