package middleware

import (
	"connectrpc.com/connect"

	"github.com/mmynk/villagebank/internal/auth"
	"github.com/mmynk/villagebank/internal/metrics"
)

// ChainConfig selects the interceptors the server runs.
type ChainConfig struct {
	JWT *auth.JWTManager
	// OptionalAuth lists procedures that also accept anonymous callers.
	OptionalAuth []string
	// Metrics and Limiter are skipped when nil.
	Metrics *metrics.Metrics
	Limiter *RateLimiter
}

// Chain returns the interceptors in serving order: logging outermost so it
// sees every outcome, auth innermost.
func Chain(cfg ChainConfig) []connect.Interceptor {
	chain := []connect.Interceptor{LoggingInterceptor()}
	if cfg.Metrics != nil {
		chain = append(chain, MetricsInterceptor(cfg.Metrics))
	}
	if cfg.Limiter != nil {
		chain = append(chain, cfg.Limiter.Interceptor())
	}
	return append(chain, RequireAuth(cfg.JWT, cfg.OptionalAuth...))
}
