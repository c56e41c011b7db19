package middleware

import (
	"context"
	"errors"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the rate limiter interceptor.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
	// Procedures limits the interceptor to these procedures. Empty means all.
	Procedures []string
}

var errRateLimited = errors.New("rate limit exceeded")

// clientLimiter tracks a per-client rate limiter and when it was last seen.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-client token bucket. Token guessing against
// ResolveInvite is the main thing it slows down. Rejected calls fail with
// CodeResourceExhausted and a Retry-After hint.
type RateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Interceptor returns the Connect interceptor.
func (l *RateLimiter) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if len(l.cfg.Procedures) > 0 && !slices.Contains(l.cfg.Procedures, req.Spec().Procedure) {
				return next(ctx, req)
			}

			reservation := l.limiter(clientHost(req.Peer().Addr)).Reserve()
			if !reservation.OK() {
				return nil, connect.NewError(connect.CodeResourceExhausted, errRateLimited)
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				cerr := connect.NewError(connect.CodeResourceExhausted, errRateLimited)
				cerr.Meta().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				return nil, cerr
			}
			return next(ctx, req)
		}
	}
}

func (l *RateLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cl, ok := l.clients[host]; ok {
		cl.lastSeen = now
		return cl.limiter
	}
	cl := &clientLimiter{
		limiter:  rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst),
		lastSeen: now,
	}
	l.clients[host] = cl
	return cl.limiter
}

// Sweep drops clients not seen within idle.
func (l *RateLimiter) Sweep(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	for host, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, host)
		}
	}
}

// Run sweeps idle clients every interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(2 * interval)
		}
	}
}

// clientHost strips the port from a peer address. Forwarded headers are
// ignored so clients cannot spoof their way past the limit.
func clientHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
