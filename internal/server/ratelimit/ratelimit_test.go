package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.now = clock.Now
	return l, clock
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 3, DefaultWindow: time.Minute})

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("10.0.0.1", "/api/leads", http.MethodGet)
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("10.0.0.1", "/api/leads", http.MethodGet)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, 20, info.RetryAfter.Seconds(), 0.01)

	allowed, _ = l.Allow("10.0.0.2", "/api/leads", http.MethodGet)
	assert.True(t, allowed, "other clients have their own bucket")
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 2, DefaultWindow: 10 * time.Second})

	l.Allow("c", "/x", http.MethodGet)
	l.Allow("c", "/x", http.MethodGet)
	allowed, _ := l.Allow("c", "/x", http.MethodGet)
	require.False(t, allowed)

	clock.Advance(6 * time.Second)
	allowed, _ = l.Allow("c", "/x", http.MethodGet)
	assert.True(t, allowed, "one token regained after just over half the window")

	allowed, _ = l.Allow("c", "/x", http.MethodGet)
	assert.False(t, allowed)
}

func TestLimiter_AuthGroupSharedAcrossRoutes(t *testing.T) {
	cfg := &Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(5, 15*time.Minute),
	}
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("1.2.3.4", "/api/auth/send-otp", http.MethodPost)
		require.True(t, allowed)
	}
	for i := 0; i < 2; i++ {
		allowed, _ := l.Allow("1.2.3.4", "/api/auth/verify-otp", http.MethodPost)
		require.True(t, allowed)
	}

	allowed, info := l.Allow("1.2.3.4", "/api/auth/verify-otp", http.MethodPost)
	assert.False(t, allowed)
	assert.Equal(t, 5, info.Limit)

	allowed, info = l.Allow("1.2.3.4", "/api/leads", http.MethodGet)
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"good": true},
		Blacklist:     map[string]bool{"bad": true},
	})

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("good", "/api/leads", http.MethodGet)
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("bad", "/health", http.MethodGet)
	assert.False(t, allowed)
	assert.Equal(t, 0, l.Len())
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Minute})
	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("c", "/api/leads", http.MethodGet)
		assert.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("c", "/health", http.MethodGet)
		assert.True(t, allowed)
	}
}

func TestLimiter_Burst(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/leads/rescore", Method: http.MethodPost, Limit: 10, Window: time.Minute, Burst: 3},
		},
	})

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("c", "/api/leads/rescore", http.MethodPost)
		require.True(t, allowed)
	}
	allowed, info := l.Allow("c", "/api/leads/rescore", http.MethodPost)
	assert.False(t, allowed)
	assert.Equal(t, 10, info.Limit)
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Hour})

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/api/leads", http.MethodGet); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), allowed.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		IdleTTL:       time.Minute,
	})

	for i := 0; i < 4; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i), "/api/leads", http.MethodGet)
	}
	require.Equal(t, 4, l.Len())

	clock.Advance(45 * time.Second)
	l.Allow("10.0.0.0", "/api/leads", http.MethodGet)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 3, l.Cleanup())
	assert.Equal(t, 1, l.Len())
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	allowed, info := l.Allow("c", "/api/leads", http.MethodGet)
	assert.True(t, allowed)
	assert.Equal(t, DefaultLimit, info.Limit)
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(5, time.Minute)

	tests := []struct {
		name      string
		path      string
		method    string
		wantGroup string
	}{
		{"health", "/health", http.MethodGet, "unlimited"},
		{"send otp", "/api/auth/send-otp", http.MethodPost, "auth"},
		{"exact create lead", "/api/leads", http.MethodPost, "write"},
		{"prefix update lead", "/api/leads/lead_1", http.MethodPut, "write"},
		{"exact beats prefix", "/api/leads/duplicates/scan", http.MethodPost, "heavy"},
		{"export", "/api/leads/export", http.MethodGet, "heavy"},
		{"campaign start", "/api/campaigns/c1/start", http.MethodPost, "write"},
		{"read falls through", "/api/leads", http.MethodGet, ""},
		{"method must match", "/api/auth/send-otp", http.MethodGet, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantGroup == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantGroup, got.Group)
		})
	}
}

func TestMatchEndpoint_LongestPrefix(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/", Method: http.MethodGet, Group: "short"},
		{Path: "/api/leads/", Method: http.MethodGet, Group: "long"},
	}
	got := MatchEndpoint("/api/leads/x", http.MethodGet, configs)
	require.NotNil(t, got)
	assert.Equal(t, "long", got.Group)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "2m")
	t.Setenv("RATE_LIMIT_AUTH_LIMIT", "7")
	t.Setenv("RATE_LIMIT_AUTH_WINDOW", "600")
	t.Setenv("RATE_LIMIT_WHITELIST", " 127.0.0.1, ::1 ,")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, 2*time.Minute, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"127.0.0.1": true, "::1": true}, cfg.Whitelist)

	ep := MatchEndpoint("/api/auth/send-otp", http.MethodPost, cfg.EndpointConfigs)
	require.NotNil(t, ep)
	assert.Equal(t, 7, ep.Limit)
	assert.Equal(t, 10*time.Minute, ep.Window)
}

func TestLoadConfig_Disabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
