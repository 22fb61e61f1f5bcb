package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	"github.com/tempora-hr/timesheet-backend-go/internal/handler/http/response"
)

type contextKey string

const actorContextKey contextKey = "actor"

func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.Unauthorized(w, "Missing token")
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}
			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.Unauthorized(w, "Invalid token type")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// WithActor resolves the verified token into an Actor and stamps request
// provenance for the audit trail. Runs after AuthRequired.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, "Failed to extract claims from context")
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			response.Unauthorized(w, "sub claim is missing or invalid")
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok || roleStr == "" {
			response.Unauthorized(w, "role claim is missing or invalid")
			return
		}

		role, ok := user.ParseRole(roleStr)
		if !ok {
			response.Forbidden(w, user.ErrUnknownRole.Error())
			return
		}

		ctx := context.WithValue(r.Context(), actorContextKey, user.Actor{ID: sub, Role: role})
		ctx = context.WithValue(ctx, "client_ip", clientIP(r))
		ctx = context.WithValue(ctx, "user_agent", r.UserAgent())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the authenticated actor set by WithActor.
func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(user.Actor)
	return actor, ok
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
