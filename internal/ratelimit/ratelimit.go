// Package ratelimit throttles requests per client address.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/cache"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type windowInfo struct {
	count        int
	resetAt      time.Time
	lastAccessed time.Time
}

// Memory counts requests per key in a one-minute window that opens with the
// key's first request. At most requestsPerMinute pass per window.
type Memory struct {
	mu                sync.Mutex
	windows           map[string]*windowInfo
	requestsPerMinute int
	now               func() time.Time
}

func NewMemory(requestsPerMinute int) *Memory {
	return &Memory{
		windows:           make(map[string]*windowInfo),
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
	}
}

func (m *Memory) Allow(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	info, ok := m.windows[key]
	if !ok || !now.Before(info.resetAt) {
		info = &windowInfo{resetAt: now.Add(time.Minute)}
		m.windows[key] = info
	}
	info.lastAccessed = now
	if info.count >= m.requestsPerMinute {
		return false, nil
	}
	info.count++
	return true, nil
}

// Sweep forgets keys idle for longer than idle.
func (m *Memory) Sweep(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, info := range m.windows {
		if now.Sub(info.lastAccessed) > idle {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Window counts requests in fixed one-minute windows held in a shared cache,
// so several instances enforce one limit.
type Window struct {
	cache             cache.Cache
	requestsPerMinute int
	now               func() time.Time
}

func NewWindow(c cache.Cache, requestsPerMinute int) *Window {
	return &Window{
		cache:             c,
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
	}
}

func (w *Window) Allow(ctx context.Context, key string) (bool, error) {
	window := w.now().Unix() / 60
	count, err := w.cache.Increment(ctx, "ratelimit:"+key+":"+strconv.FormatInt(window, 10), time.Minute)
	if err != nil {
		return false, xerrors.New(err)
	}
	return count <= int64(w.requestsPerMinute), nil
}

// ClientIP picks the first X-Forwarded-For entry, then X-Real-IP, then the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
