package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool holds one limiter per client IP for a single limit.
type limiterPool struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	idle     time.Duration
}

func newLimiterPool(idle time.Duration) *limiterPool {
	return &limiterPool{visitors: make(map[string]*visitor), idle: idle}
}

func (p *limiterPool) get(ip string, now time.Time, create func() *rate.Limiter) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.visitors[ip]
	if !ok {
		v = &visitor{limiter: create()}
		p.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (p *limiterPool) prune(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ip, v := range p.visitors {
		if now.Sub(v.lastSeen) > p.idle {
			delete(p.visitors, ip)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.visitors)
}

// RateLimitManager owns the per-IP limiters and prunes idle ones in the background.
type RateLimitManager struct {
	general *limiterPool
	login   *limiterPool
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		general: newLimiterPool(3 * time.Minute),
		login:   newLimiterPool(15 * time.Minute),
		now:     time.Now,
		ctx:     managerCtx,
		cancel:  cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// newLimiter spreads requestsPerWindow over windowSeconds. A non-positive
// request count disables the limit.
func newLimiter(requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerWindow)/float64(windowSeconds)), burst)
}

// GetVisitor returns the general limiter for ip, or nil when limiting is off.
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}
	return m.general.get(ip, m.now(), func() *rate.Limiter {
		return newLimiter(requestsPerWindow, windowSeconds, burst)
	})
}

// GetLoginLimiter returns the stricter limiter guarding the admin login steps.
func (m *RateLimitManager) GetLoginLimiter(ip string, requestsPerWindow, windowSeconds int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}
	return m.login.get(ip, m.now(), func() *rate.Limiter {
		return newLimiter(requestsPerWindow, windowSeconds, requestsPerWindow)
	})
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
			m.cleanup()
		}
	}
}

func (m *RateLimitManager) cleanup() {
	now := m.now()
	m.general.prune(now)
	m.login.prune(now)
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
