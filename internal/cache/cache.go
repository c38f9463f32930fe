package cache

import (
	"context"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// 응답 본문 캐시. 실패는 캐시 미스로 취급한다.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type Memory struct {
	c *gocache.Cache
}

func NewMemory(defaultTTL, cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultTTL, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.c.Set(key, value, ttl)
}

func (m *Memory) Flush() {
	m.c.Flush()
}

// 원격 캐시. internal/db.Storage 가 redis 로 구현
type Remote interface {
	SetCache(ctx context.Context, key string, value []byte, exp time.Duration) error
	GetCache(ctx context.Context, key string) ([]byte, error)
}

// 메모리 우선, 없으면 원격 조회 후 메모리에 채움
type Layered struct {
	local  *Memory
	remote Remote
	lg     zerolog.Logger
}

func NewLayered(local *Memory, remote Remote) *Layered {
	return &Layered{
		local:  local,
		remote: remote,
		lg:     zerolog.New(os.Stdout).With().Str("Module", "Cache").Timestamp().Logger(),
	}
}

func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := l.local.Get(ctx, key); ok {
		return v, true
	}
	if l.remote == nil {
		return nil, false
	}

	v, err := l.remote.GetCache(ctx, key)
	if err != nil || v == nil {
		return nil, false
	}
	l.local.Set(ctx, key, v, gocache.DefaultExpiration)
	return v, true
}

func (l *Layered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	l.local.Set(ctx, key, value, ttl)
	if l.remote == nil {
		return
	}
	if err := l.remote.SetCache(ctx, key, value, ttl); err != nil {
		l.lg.Warn().Err(err).Str("key", key).Msg("remote cache set failed")
	}
}
