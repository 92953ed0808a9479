package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore keeps OTP code hashes and verification attempt counts for the
// lifetime of one challenge.
type CodeStore interface {
	SaveCode(ctx context.Context, phone, codeHash string, ttl time.Duration) error
	GetCode(ctx context.Context, phone string) (string, error)
	DeleteCode(ctx context.Context, phone string) error
	IncrAttempts(ctx context.Context, phone string, ttl time.Duration) (int64, error)
}

// ErrNoCode means no OTP challenge is outstanding for the phone (never sent,
// expired, or already consumed).
var ErrNoCode = errors.New("no otp challenge outstanding")

type redisCodeStore struct {
	rdb *redis.Client
}

// NewRedisCodeStore returns a CodeStore backed by Redis with TTL-bound keys.
func NewRedisCodeStore(rdb *redis.Client) CodeStore {
	return &redisCodeStore{rdb: rdb}
}

func codeKey(phone string) string     { return fmt.Sprintf("otp:code:%s", phone) }
func attemptsKey(phone string) string { return fmt.Sprintf("otp:attempts:%s", phone) }

func (s *redisCodeStore) SaveCode(ctx context.Context, phone, codeHash string, ttl time.Duration) error {
	// A fresh code replaces any outstanding one and resets the attempt count.
	if err := s.rdb.Set(ctx, codeKey(phone), codeHash, ttl).Err(); err != nil {
		return err
	}
	return s.rdb.Del(ctx, attemptsKey(phone)).Err()
}

func (s *redisCodeStore) GetCode(ctx context.Context, phone string) (string, error) {
	hash, err := s.rdb.Get(ctx, codeKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoCode
	}
	return hash, err
}

func (s *redisCodeStore) DeleteCode(ctx context.Context, phone string) error {
	return s.rdb.Del(ctx, codeKey(phone), attemptsKey(phone)).Err()
}

func (s *redisCodeStore) IncrAttempts(ctx context.Context, phone string, ttl time.Duration) (int64, error) {
	key := attemptsKey(phone)
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
