// Package ratelimit limits requests per client key, either in process or
// shared through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Policy allows Max requests per Window.
type Policy struct {
	Name   string
	Window time.Duration
	Max    int
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, p Policy, key string) (Decision, error)
}

// Memory is a token-bucket limiter local to the process. Buckets refill
// at Max per Window with a burst of Max. A bucket idle for a whole window
// is full again and is dropped by the next sweep.
type Memory struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// sweepInterval bounds how often Allow scans for idle buckets.
const sweepInterval = time.Minute

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]*bucket), now: time.Now}
}

func (m *Memory) Allow(_ context.Context, p Policy, key string) (Decision, error) {
	if p.Max <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := m.now()
	m.mu.Lock()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	id := p.Name + ":" + key
	b, ok := m.buckets[id]
	if !ok {
		b = &bucket{
			lim:    rate.NewLimiter(rate.Every(p.Window/time.Duration(p.Max)), p.Max),
			window: p.Window,
		}
		m.buckets[id] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Limit: p.Max, RetryAfter: delay}, nil
	}
	remaining := int(b.lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: p.Max, Remaining: remaining}, nil
}

// sweep drops buckets that have refilled completely. m.mu must be held.
func (m *Memory) sweep(now time.Time) {
	for id, b := range m.buckets {
		if now.Sub(b.lastSeen) >= b.window {
			delete(m.buckets, id)
		}
	}
	m.lastSweep = now
}

// Redis is a fixed-window counter shared by every instance using the
// same Redis.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "ratelimit"}
}

func (l *Redis) Allow(ctx context.Context, p Policy, key string) (Decision, error) {
	if p.Max <= 0 {
		return Decision{Allowed: true}, nil
	}

	rkey := fmt.Sprintf("%s:%s:%s", l.prefix, p.Name, key)
	count, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", p.Name, err)
	}
	ttl, err := l.client.PTTL(ctx, rkey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", p.Name, err)
	}
	// A key without expiry starts its window now.
	if count == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, rkey, p.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit %s: %w", p.Name, err)
		}
		ttl = p.Window
	}

	d := Decision{Limit: p.Max, Remaining: p.Max - int(count)}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if int(count) <= p.Max {
		d.Allowed = true
		return d, nil
	}
	d.RetryAfter = ttl
	return d, nil
}
