package adminauth

import (
	"context"
	"sync"
	"time"
)

// Ticker is the subset of time.Ticker the cooldown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func newRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// Cooldown counts down whole seconds after an OTP request. Resend is allowed
// once it reaches zero. Each Start replaces the previous countdown; Stop
// returns only after the countdown goroutine has exited.
type Cooldown struct {
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	onTick    func(remaining int)

	mu        sync.Mutex
	remaining int
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewCooldown(interval time.Duration, newTicker func(time.Duration) Ticker, onTick func(int)) *Cooldown {
	if interval <= 0 {
		interval = time.Second
	}
	if newTicker == nil {
		newTicker = newRealTicker
	}
	return &Cooldown{
		interval:  interval,
		newTicker: newTicker,
		onTick:    onTick,
	}
}

// Start restarts the countdown at seconds.
func (c *Cooldown) Start(seconds int) {
	c.Stop()

	if seconds <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := c.newTicker(c.interval)

	c.mu.Lock()
	c.remaining = seconds
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(ctx, ticker, done)
}

func (c *Cooldown) run(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.mu.Lock()
			if c.remaining > 0 {
				c.remaining--
			}
			remaining := c.remaining
			c.mu.Unlock()

			if c.onTick != nil {
				c.onTick(remaining)
			}
			if remaining == 0 {
				return
			}
		}
	}
}

// Stop cancels the countdown and zeroes it.
func (c *Cooldown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.remaining = 0
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Cooldown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Cooldown) Ready() bool {
	return c.Remaining() == 0
}
