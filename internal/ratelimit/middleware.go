package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/af-corp/aegis-modelplan/internal/auth"
	"github.com/af-corp/aegis-modelplan/internal/httputil"
	"github.com/af-corp/aegis-modelplan/internal/telemetry"
)

const (
	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerReset      = "X-RateLimit-Reset"
	headerRetryAfter = "Retry-After"
)

// Middleware limits authenticated admin callers. A key's own RPM wins over
// defaultRPM; a non-positive budget turns limiting off for that key.
// Requests without auth info pass through.
func Middleware(limiter *Limiter, defaultRPM int, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := auth.AuthFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			rpm := budget(info, defaultRPM)
			if rpm <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			d, _ := limiter.Allow(r.Context(), "admin:"+info.KeyID, PerMinute(rpm))

			h := w.Header()
			h.Set(headerLimit, strconv.Itoa(rpm))
			h.Set(headerRemaining, strconv.FormatInt(d.Remaining, 10))
			h.Set(headerReset, strconv.FormatInt(d.ResetAt.Unix(), 10))

			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			slog.Warn("admin rate limit exceeded",
				"request_id", h.Get("X-Request-ID"),
				"key_id", info.KeyID,
				"path", r.URL.Path,
				"rpm", rpm,
			)
			if metrics != nil {
				metrics.RecordRateLimitHit(r.URL.Path)
			}
			h.Set(headerRetryAfter, strconv.Itoa(int(d.RetryAfter.Seconds())))
			httputil.WriteRateLimitError(w, h.Get("X-Request-ID"),
				fmt.Sprintf("admin key %s is limited to %d requests per minute", info.Name, rpm))
		})
	}
}

func budget(info *auth.AuthInfo, defaultRPM int) int {
	if info.RPMLimit != nil {
		return *info.RPMLimit
	}
	return defaultRPM
}
