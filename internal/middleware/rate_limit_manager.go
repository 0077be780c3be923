package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL = 3 * time.Minute
	userIdleTTL    = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitManager owns the per-client limiters and evicts idle ones in the background.
type RateLimitManager struct {
	visitors   map[string]*visitor
	visitorsMu sync.Mutex
	users      map[string]*visitor
	usersMu    sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors: make(map[string]*visitor),
		users:    make(map[string]*visitor),
		ctx:      managerCtx,
		cancel:   cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// GetVisitor returns the general limiter for ip. A non-positive request count disables limiting.
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow int, windowSeconds int, burst int) *rate.Limiter {
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}
	return m.limiter(m.visitors, &m.visitorsMu, ip, requestsPerWindow, windowSeconds, burst)
}

// GetUserLimiter returns a per-user limiter for one action, keyed as "action:user:id".
func (m *RateLimitManager) GetUserLimiter(key string, requestsPerWindow int, windowSeconds int) *rate.Limiter {
	return m.limiter(m.users, &m.usersMu, key, requestsPerWindow, windowSeconds, requestsPerWindow)
}

func (m *RateLimitManager) limiter(visitors map[string]*visitor, mu *sync.Mutex, key string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	if v, ok := visitors[key]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}

	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerWindow)/float64(windowSeconds)), burst)
	visitors[key] = &visitor{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(time.Now())
		}
	}
}

func (m *RateLimitManager) cleanup(now time.Time) {
	evict := func(visitors map[string]*visitor, mu *sync.Mutex, ttl time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		for key, v := range visitors {
			if now.Sub(v.lastSeen) > ttl {
				delete(visitors, key)
			}
		}
	}

	evict(m.visitors, &m.visitorsMu, visitorIdleTTL)
	evict(m.users, &m.usersMu, userIdleTTL)
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
