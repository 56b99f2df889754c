package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/redis/go-redis/v9"
)

// checkout:session:{id} -> JSONのCheckoutSession
const keyCheckoutSession = "checkout:session:%s"

// チェックアウトセッションのredis実装。
// TTLで勝手に消えるので明示的な放棄処理は不要。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, sess model.CheckoutSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err()
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (model.CheckoutSession, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.CheckoutSession{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CheckoutSession{}, err
	}

	var sess model.CheckoutSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return model.CheckoutSession{}, err
	}
	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return fmt.Sprintf(keyCheckoutSession, id)
}
