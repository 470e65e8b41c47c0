package http

import (
	"context"
	"net/http"
	"strings"

	"modreview/internal/domain"
	"modreview/internal/service"
)

type authContextKey string

const (
	ctxKeyUser  authContextKey = "modreview-user"
	ctxKeyToken authContextKey = "modreview-token"
)

// requireAuth resolves the presented auth token to a user and stores both on
// the request context.
func requireAuth(creds service.CredentialService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, r, domain.ErrUnauthorized, "")
				return
			}
			user, err := creds.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, err, "")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			ctx = context.WithValue(ctx, ctxKeyToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromHeader accepts "Bearer <token>" or the bare token.
func tokenFromHeader(h string) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return ""
	}
	if scheme, rest, ok := strings.Cut(h, " "); ok {
		if !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(rest)
	}
	return h
}

func userFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(ctxKeyUser).(*domain.User)
	return u
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(ctxKeyToken).(string)
	return t
}
