package ratelimit

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"pgregory.net/rapid"
)

// =============================================================================
// Generators for property-based testing
// =============================================================================

func clientKeyGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`(10|192)\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}`)
}

// =============================================================================
// Property: Requests within burst succeed
// =============================================================================

func testRateLimiter_RequestsWithinBurst(t *rapid.T) {
	config := Config{
		RPS:             0.001, // effectively no refill during the test
		Burst:           rapid.IntRange(1, 100).Draw(t, "burst"),
		CleanupInterval: time.Hour,
	}
	rl := NewRateLimiter(config)
	defer rl.Stop()

	key := clientKeyGenerator().Draw(t, "key")
	n := rapid.IntRange(1, config.Burst).Draw(t, "n")
	for i := 0; i < n; i++ {
		if !rl.Allow(key) {
			t.Fatalf("request %d of %d rejected within burst %d", i+1, n, config.Burst)
		}
	}
}

func TestRateLimiter_RequestsWithinBurst(t *testing.T) {
	rapid.Check(t, testRateLimiter_RequestsWithinBurst)
}

// =============================================================================
// Property: Exceeding the burst is blocked
// =============================================================================

func testRateLimiter_ExceedingBurstBlocked(t *rapid.T) {
	config := Config{
		RPS:             0.001,
		Burst:           rapid.IntRange(1, 50).Draw(t, "burst"),
		CleanupInterval: time.Hour,
	}
	rl := NewRateLimiter(config)
	defer rl.Stop()

	key := clientKeyGenerator().Draw(t, "key")
	for i := 0; i < config.Burst; i++ {
		rl.Allow(key)
	}
	if rl.Allow(key) {
		t.Fatalf("request beyond burst %d was allowed", config.Burst)
	}
}

func TestRateLimiter_ExceedingBurstBlocked(t *testing.T) {
	rapid.Check(t, testRateLimiter_ExceedingBurstBlocked)
}

// =============================================================================
// Property: Clients are independent
// =============================================================================

func testRateLimiter_ClientIndependence(t *rapid.T) {
	config := Config{RPS: 0.001, Burst: 3, CleanupInterval: time.Hour}
	rl := NewRateLimiter(config)
	defer rl.Stop()

	a := clientKeyGenerator().Draw(t, "a")
	b := clientKeyGenerator().Filter(func(s string) bool { return s != a }).Draw(t, "b")

	for i := 0; i < config.Burst+2; i++ {
		rl.Allow(a)
	}
	if !rl.Allow(b) {
		t.Fatalf("client %q limited by traffic from %q", b, a)
	}
}

func TestRateLimiter_ClientIndependence(t *testing.T) {
	rapid.Check(t, testRateLimiter_ClientIndependence)
}

// =============================================================================
// Cleanup and lifecycle
// =============================================================================

func TestRateLimiter_IdleLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(Config{RPS: 1, Burst: 1, CleanupInterval: 50 * time.Millisecond})
	defer rl.Stop()

	rl.Allow("192.0.2.1")
	if rl.Len() != 1 {
		t.Fatalf("expected 1 limiter, got %d", rl.Len())
	}

	time.Sleep(60 * time.Millisecond)
	rl.Cleanup()
	if rl.Len() != 0 {
		t.Fatalf("expected idle limiter to be removed, got %d", rl.Len())
	}
}

func TestRateLimiter_GetLimiterConsistency(t *testing.T) {
	rl := NewRateLimiter(DefaultConfig)
	defer rl.Stop()

	if rl.GetLimiter("192.0.2.1") != rl.GetLimiter("192.0.2.1") {
		t.Fatal("GetLimiter returned different limiters for the same key")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(Config{RPS: 1000, Burst: 1000, CleanupInterval: time.Hour})
	defer rl.Stop()

	var wg sync.WaitGroup
	keys := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rl.Allow(keys[(i+j)%len(keys)])
			}
		}(i)
	}
	wg.Wait()

	if rl.Len() != len(keys) {
		t.Fatalf("expected %d limiters, got %d", len(keys), rl.Len())
	}
}

func TestRateLimiter_StopGracefulShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(Config{RPS: 1, Burst: 1, CleanupInterval: time.Millisecond})

	done := make(chan struct{})
	go func() {
		rl.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
