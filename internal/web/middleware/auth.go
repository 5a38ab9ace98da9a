package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sellybase/importer/internal/core"
)

var errInvalidAPIKey = errors.New("invalid api key")

// APIKey is one accepted key and the actor name requests made with it are
// attributed to.
type APIKey struct {
	Name string
	Key  string
}

// ParseAPIKeys reads configured keys in "name:key" or bare "key" form. Bare
// keys are named by position.
func ParseAPIKeys(raw []string) []APIKey {
	keys := make([]APIKey, 0, len(raw))
	for i, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, key, ok := strings.Cut(entry, ":")
		if !ok {
			name, key = "key-"+strconv.Itoa(i+1), entry
		}
		keys = append(keys, APIKey{Name: strings.TrimSpace(name), Key: strings.TrimSpace(key)})
	}
	return keys
}

// APIKeyAuth returns middleware that validates the X-API-Key header against
// the configured keys. When required is false all requests pass through.
// Authenticated requests carry "api-key:<name>" as the actor, which becomes
// the uploadedBy of jobs they create.
func APIKeyAuth(required bool, keys []APIKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r)
				return
			}

			name, ok := matchAPIKey(r.Header.Get("X-API-Key"), keys)
			if !ok {
				slog.Warn("auth: rejected API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"key_present", r.Header.Get("X-API-Key") != "",
				)
				writeErrorJSON(w, http.StatusUnauthorized, errInvalidAPIKey)
				return
			}

			ctx := core.ContextWithActor(r.Context(), "api-key:"+name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchAPIKey compares against every configured key in constant time and
// returns the matching key's name.
func matchAPIKey(key string, keys []APIKey) (string, bool) {
	if key == "" {
		return "", false
	}
	matched := ""
	found := 0
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k.Key)) == 1 {
			matched = k.Name
			found = 1
		}
	}
	return matched, found == 1
}

// writeErrorJSON writes the same error body the handlers use.
func writeErrorJSON(w http.ResponseWriter, status int, err error) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
