package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "auth:nonce:"

// NonceRepo keeps sign-in challenges keyed by wallet address.
type NonceRepo struct {
	rdb *redis.Client
}

func NewNonceRepo(rdb *redis.Client) *NonceRepo {
	return &NonceRepo{rdb: rdb}
}

func nonceKey(address string) string {
	return nonceKeyPrefix + strings.ToLower(address)
}

func (r *NonceRepo) Save(ctx context.Context, address, message string, ttl time.Duration) error {
	return r.rdb.Set(ctx, nonceKey(address), message, ttl).Err()
}

// Consume returns the pending challenge and deletes it, so each one verifies once.
func (r *NonceRepo) Consume(ctx context.Context, address string) (string, error) {
	msg, err := r.rdb.GetDel(ctx, nonceKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return msg, err
}
