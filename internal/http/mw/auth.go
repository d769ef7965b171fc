package mw

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/oelohome/oelod/internal/apikey"
)

// HumaAuth returns a Huma middleware that enforces API key auth on every
// operation whose Security field is set. Public operations (health, version,
// OpenAPI spec) carry no Security and pass through.
func HumaAuth(api huma.API, logger *slog.Logger, keys *apikey.Manager) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if len(ctx.Operation().Security) == 0 {
			next(ctx)
			return
		}

		key := ctx.Header("Authorization")
		const bearerPrefix = "Bearer "
		if strings.HasPrefix(key, bearerPrefix) {
			key = key[len(bearerPrefix):]
		} else {
			key = ctx.Header("X-API-Key")
		}

		if key == "" {
			logger.Warn("API key missing",
				"method", ctx.Method(),
				"path", ctx.URL().Path,
			)
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "API key required")
			return
		}

		validKey, err := keys.ValidateAPIKey(key)
		if err != nil {
			logger.Warn("invalid API key used",
				"key_prefix", keyPrefix(key),
				"error", err,
				"method", ctx.Method(),
				"path", ctx.URL().Path,
			)
			huma.WriteErr(api, ctx, http.StatusUnauthorized, err.Error())
			return
		}

		logger.Debug("authenticated API key", "name", validKey.Name)
		next(ctx)
	}
}

// APIKeyAuth returns a chi middleware that validates API keys on every
// request. It checks the Authorization: Bearer header first, then falls back
// to the X-API-Key header. It runs at the router level so it covers all
// routes uniformly; the Huma security annotations in routes/ exist for
// OpenAPI documentation only.
func APIKeyAuth(logger *slog.Logger, keys *apikey.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if strings.HasPrefix(key, bearerPrefix) {
				key = key[len(bearerPrefix):]
			} else {
				key = r.Header.Get("X-API-Key")
			}

			if key == "" {
				logger.Warn("API key missing",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}

			validKey, err := keys.ValidateAPIKey(key)
			if err != nil {
				logger.Warn("invalid API key used",
					"key_prefix", keyPrefix(key),
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, fmt.Sprintf("Unauthorized: %s", err.Error()), http.StatusUnauthorized)
				return
			}

			logger.Debug("authenticated API key",
				"name", validKey.Name,
				"key_prefix", keyPrefix(validKey.Key),
			)
			next.ServeHTTP(w, r)
		})
	}
}

// keyPrefix returns the first 4 characters of a key for safe logging.
func keyPrefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
