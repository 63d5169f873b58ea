package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/regpay-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/regpay-backend/pkg/redis"
)

// OrderCreation guards the create-order endpoint. Stored idempotent responses are
// replayed before the rate limiter runs, so a client retrying with the same key
// does not spend its quota.
func OrderCreation(policy OrderRateLimitPolicy, limiter rateLimiterStore, store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	idempotency := Idempotency(store, ttl, logg)
	rateLimit := OrderRateLimit(policy, limiter, logg)
	return func(next http.Handler) http.Handler {
		return idempotency(rateLimit(next))
	}
}
