package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type remoteMock struct {
	store map[string][]byte
	err   error
	sets  int
}

func (r *remoteMock) SetCache(_ context.Context, key string, value []byte, _ time.Duration) error {
	r.sets++
	if r.err != nil {
		return r.err
	}
	r.store[key] = value
	return nil
}

func (r *remoteMock) GetCache(_ context.Context, key string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.store[key]
	if !ok {
		return nil, errors.New("nil")
	}
	return v, nil
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, time.Minute)

	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)

	m.Set(ctx, "a", []byte("body"), time.Minute)
	v, ok := m.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("body"), v)

	m.Set(ctx, "b", []byte("short"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok = m.Get(ctx, "b")
	assert.False(t, ok)

	m.Flush()
	_, ok = m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestLayered(t *testing.T) {
	ctx := context.Background()

	t.Run("원격 조회 후 메모리 적재", func(t *testing.T) {
		remote := &remoteMock{store: map[string][]byte{"k": []byte("v")}}
		local := NewMemory(time.Minute, time.Minute)
		l := NewLayered(local, remote)

		v, ok := l.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), v)

		v, ok = local.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), v)
	})

	t.Run("원격 오류는 미스", func(t *testing.T) {
		remote := &remoteMock{store: map[string][]byte{}, err: errors.New("down")}
		l := NewLayered(NewMemory(time.Minute, time.Minute), remote)

		_, ok := l.Get(ctx, "k")
		assert.False(t, ok)

		l.Set(ctx, "k", []byte("v"), time.Minute)
		assert.Equal(t, 1, remote.sets)
		v, ok := l.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), v)
	})

	t.Run("원격 없음", func(t *testing.T) {
		l := NewLayered(NewMemory(time.Minute, time.Minute), nil)
		_, ok := l.Get(ctx, "k")
		assert.False(t, ok)
		l.Set(ctx, "k", []byte("v"), time.Minute)
		_, ok = l.Get(ctx, "k")
		assert.True(t, ok)
	})
}
