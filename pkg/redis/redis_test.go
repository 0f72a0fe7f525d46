package redis

import (
	"testing"

	"github.com/wonny/delphi/v2/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	limiter := NewRateLimiter(client, "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(nil, OddsRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != OddsRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", OddsRateLimit.Limit, remaining)
	}
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(nil, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "OddsKey",
			fn:       func() string { return OddsKey("nba-20260115-BOS-LAL") },
			expected: "odds:game:nba-20260115-BOS-LAL",
		},
		{
			name:     "TeamFormKey",
			fn:       func() string { return TeamFormKey("BOS") },
			expected: "form:team:BOS",
		},
		{
			name:     "NarrativeKey",
			fn:       func() string { return NarrativeKey("nba-20260115-BOS-LAL") },
			expected: "narrative:game:nba-20260115-BOS-LAL",
		},
		{
			name:     "SlateKey",
			fn:       func() string { return SlateKey("2026-01-15") },
			expected: "slate:2026-01-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
