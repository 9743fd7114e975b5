package rbac

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Header names set by the upstream identity gateway. The engine trusts this
// boundary completely.
const (
	HeaderUserID = "X-User-ID"
	HeaderRoles  = "X-User-Roles"
)

// Middleware wires capability authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// Actor resolves the caller from gateway headers and stores it in context.
func (m Middleware) Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := shared.Actor{}
		if id, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64); err == nil {
			actor.UserID = id
		}
		if raw := r.Header.Get(HeaderRoles); raw != "" {
			for _, role := range strings.Split(raw, ",") {
				if role = strings.TrimSpace(strings.ToLower(role)); role != "" {
					actor.Roles = append(actor.Roles, role)
				}
			}
		}
		ctx := shared.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require ensures the current actor holds all listed capabilities.
func (m Middleware) Require(caps ...Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor.UserID == 0 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			granted := CapabilitiesFor(actor.Roles)
			for _, c := range caps {
				if !granted[c] {
					if m.Logger != nil {
						m.Logger.Warn("capability denied", slog.Int64("user", actor.UserID), slog.String("capability", string(c)))
					}
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
