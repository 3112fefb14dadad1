package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/af-corp/aegis-modelplan/internal/httputil"
)

const bearerUsage = "Use: Authorization: Bearer <admin-key>"

var (
	errMissingHeader = errors.New("Missing Authorization header. " + bearerUsage)
	errNotBearer     = errors.New("Invalid Authorization format. " + bearerUsage)
	errEmptyKey      = errors.New("Empty admin key")
	errUnknownKey    = errors.New("Invalid admin key")
	errExpiredKey    = errors.New("Admin key expired")
)

// Middleware authenticates admin requests by bearer key and stores the
// key's AuthInfo in the request context.
func Middleware(store KeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				httputil.WriteAuthError(w, reqID, err.Error())
				return
			}

			info, err := authenticate(r.Context(), store, token, time.Now())
			switch {
			case errors.Is(err, errUnknownKey), errors.Is(err, errExpiredKey):
				slog.Warn("admin auth failed", "request_id", reqID, "key_prefix", KeyPrefix(token), "reason", err)
				httputil.WriteAuthError(w, reqID, err.Error())
				return
			case err != nil:
				slog.Error("admin key lookup failed", "request_id", reqID, "key_prefix", KeyPrefix(token), "error", err)
				httputil.WriteInternalError(w, reqID, "Internal error during authentication")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAuth(r.Context(), info)))
		})
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errNotBearer
	}
	if token == "" {
		return "", errEmptyKey
	}
	return token, nil
}

// authenticate resolves token to its key. Cached metadata can outlive the
// key.
func authenticate(ctx context.Context, store KeyStore, token string, now time.Time) (*AuthInfo, error) {
	meta, err := store.Lookup(ctx, HashKey(token))
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errUnknownKey
	}
	if meta.Expired(now) {
		return nil, errExpiredKey
	}
	return &AuthInfo{KeyID: meta.ID, Name: meta.Name, RPMLimit: meta.RPMLimit}, nil
}
