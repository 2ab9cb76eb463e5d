package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/benefit-optimizer/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(cfg *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.Now
	return l, clock
}

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  5,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{},
		Blacklist:     map[string]bool{},
		EndpointConfigs: []EndpointConfig{
			{Path: "/optimize", Method: "POST", Limit: 2, Window: time.Minute, Burst: 2},
			{Path: "/bundles/", Method: "PUT", Limit: 3, Window: time.Minute, Burst: 1},
		},
	}
}

func TestLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("1.2.3.4", "/plans/CA", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
		assert.Equal(t, 4-i, info.Remaining)
	}

	allowed, info := l.Allow("1.2.3.4", "/plans/CA", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 12*time.Second, info.RetryAfter)
	assert.True(t, info.ResetTime.After(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	// other clients have their own bucket
	allowed, _ = l.Allow("5.6.7.8", "/plans/CA", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 2; i++ {
		allowed, _ := l.Allow("c", "/optimize", "POST")
		require.True(t, allowed)
	}
	allowed, info := l.Allow("c", "/optimize", "POST")
	require.False(t, allowed)
	assert.Equal(t, 30*time.Second, info.RetryAfter)

	clock.Advance(31 * time.Second)
	allowed, _ = l.Allow("c", "/optimize", "POST")
	assert.True(t, allowed)
}

func TestLimiter_EndpointClassShared(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	allowed, info := l.Allow("c", "/bundles/a", "PUT")
	require.True(t, allowed)
	assert.Equal(t, 3, info.Limit)

	// same class, different id
	allowed, _ = l.Allow("c", "/bundles/b", "PUT")
	assert.False(t, allowed)

	// a GET on the same path uses the default class
	allowed, _ = l.Allow("c", "/bundles/b", "GET")
	assert.True(t, allowed)
}

func TestLimiter_UnlimitedEndpoints(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 1
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for _, path := range []string{"/health", "/metrics"} {
		for i := 0; i < 20; i++ {
			allowed, info := l.Allow("c", path, "GET")
			require.True(t, allowed)
			assert.Equal(t, 0, info.Limit)
		}
	}
	assert.Equal(t, 0, l.size())
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 1
	cfg.Whitelist["10.0.0.1"] = true
	cfg.Blacklist["10.0.0.2"] = true
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/plans/CA", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.2", "/health", "GET")
	assert.False(t, allowed)

	disabled := NewLimiter(&Config{Enabled: false})
	defer disabled.Stop()
	for i := 0; i < 10; i++ {
		allowed, _ := disabled.Allow("c", "/optimize", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 50
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	var allowedCount atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/plans/CA", "GET"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), allowedCount.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	l, clock := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("client-%d", i), "/plans/CA", "GET")
	}
	require.Equal(t, 3, l.size())

	clock.Advance(30 * time.Minute)
	l.Allow("client-0", "/plans/CA", "GET")
	clock.Advance(45 * time.Minute)

	l.cleanupBuckets()
	assert.Equal(t, 1, l.size())
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(60)

	tests := []struct {
		name     string
		path     string
		method   string
		wantPath string
		wantNil  bool
	}{
		{"optimize exact", "/optimize", "POST", "/optimize", false},
		{"batch exact before prefix", "/optimize/batch", "POST", "/optimize/batch", false},
		{"compare exact", "/bundles/compare", "POST", "/bundles/compare", false},
		{"bundle update prefix", "/bundles/abc", "PUT", "/bundles/", false},
		{"bundle status prefix", "/bundles/abc/status", "PATCH", "/bundles/", false},
		{"plans falls to default", "/plans/CA", "GET", "", true},
		{"health unlimited", "/health", "GET", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  1000,
		OptimizeLimit: 60,
		Whitelist:     []string{" 10.0.0.1 ", ""},
		Blacklist:     []string{"10.0.0.9"},
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1000, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"10.0.0.1": true}, cfg.Whitelist)
	assert.True(t, cfg.Blacklist["10.0.0.9"])

	optimize := MatchEndpoint("/optimize", "POST", cfg.EndpointConfigs)
	require.NotNil(t, optimize)
	assert.Equal(t, 60, optimize.Limit)
	assert.Equal(t, 10, optimize.Burst)

	assert.False(t, FromConfig(config.RateLimitConfig{Enabled: false}).Enabled)
}
