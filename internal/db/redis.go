package db

import (
	"context"
	"errors"
	"time"
)

var errNoRedis = errors.New("redis not configured")

func (s *Storage) SetCache(ctx context.Context, key string, value []byte, exp time.Duration) error {
	if s.rds == nil {
		return errNoRedis
	}
	return s.rds.Set(ctx, key, value, exp).Err()
}

func (s *Storage) GetCache(ctx context.Context, key string) ([]byte, error) {
	if s.rds == nil {
		return nil, errNoRedis
	}
	return s.rds.Get(ctx, key).Bytes()
}
