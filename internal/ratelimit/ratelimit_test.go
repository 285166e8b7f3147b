package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/siahsang/inkwell/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeniesAfterLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(100)
	m.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		ok, err := m.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i+1)
	}
	ok, err := m.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = m.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "other clients keep their own budget")

	now = now.Add(time.Minute)
	ok, _ = m.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

func TestMemoryCapsSpreadOutRequests(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(100)
	m.now = func() time.Time { return now }

	allowed := 0
	for range 200 {
		ok, err := m.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		if ok {
			allowed++
		}
		now = now.Add(295 * time.Millisecond)
	}
	assert.Equal(t, 100, allowed, "200 requests across 59s")

	now = time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	ok, err := m.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "a new window opens after a minute")
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory(10)
	m.now = func() time.Time { return now }
	_, _ = m.Allow(ctx, "a")
	now = now.Add(11 * time.Minute)
	_, _ = m.Allow(ctx, "b")

	assert.Equal(t, 1, m.Sweep(10*time.Minute))
}

func TestWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	w := NewWindow(cache.NewMemory(), 3)
	w.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := w.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := w.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = w.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2", "X-Real-IP": "9.9.9.9"}, "1.1.1.1:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "1.1.1.1:80", "9.9.9.9"},
		{"remote addr", nil, "1.1.1.1:80", "1.1.1.1"},
		{"remote without port", nil, "1.1.1.1", "1.1.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
