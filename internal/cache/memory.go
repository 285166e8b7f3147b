package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/utils/collectionutils"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

type Memory struct {
	items *collectionutils.SafeMap[string, memoryItem]
	now   func() time.Time
}

var _ Cache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		items: collectionutils.New[string, memoryItem](),
		now:   time.Now,
	}
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	item, ok := m.items.Get(key)
	if !ok || item.expired(m.now()) {
		return "", xerrors.New(ErrMiss)
	}
	return item.value, nil
}

func (m *Memory) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.items.Store(key, memoryItem{value: value, expiresAt: m.expiry(ttl)})
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.items.Delete(key)
	}
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	item, ok := m.items.Get(key)
	return ok && !item.expired(m.now()), nil
}

func (m *Memory) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var count int64
	var parseErr error
	now := m.now()
	m.items.Update(key, func(item memoryItem, ok bool) memoryItem {
		if !ok || item.expired(now) {
			count = 1
			return memoryItem{value: "1", expiresAt: m.expiry(ttl)}
		}
		current, err := strconv.ParseInt(item.value, 10, 64)
		if err != nil {
			parseErr = err
			return item
		}
		count = current + 1
		item.value = strconv.FormatInt(count, 10)
		return item
	})
	if parseErr != nil {
		return 0, xerrors.Newf("value at %q is not a counter: %w", key, parseErr)
	}
	return count, nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	return m.items.DeleteIf(func(_ string, item memoryItem) bool {
		return item.expired(now)
	})
}
