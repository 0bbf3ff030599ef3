package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iho/tradeledger/internal/adapter/http/dto"
	"github.com/iho/tradeledger/internal/domain"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// ActorContextKey is the context key for the calling actor
	ActorContextKey ContextKey = "actor"

	// Headers set by the authenticating gateway in front of this service.
	UserIDHeader   = "X-User-ID"
	TenantIDHeader = "X-Tenant-ID"
)

// Actor reads the caller identity forwarded by the gateway and rejects
// requests that carry none.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := domain.Actor{
			UserID:   strings.TrimSpace(r.Header.Get(UserIDHeader)),
			TenantID: strings.TrimSpace(r.Header.Get(TenantIDHeader)),
		}
		if err := actor.Validate(); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "missing actor", err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ActorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext extracts the calling actor from context.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(domain.Actor)
	return actor, ok
}

func writeJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message, Message: details})
}
