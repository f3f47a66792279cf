package server

import (
	"context"
	"net/http"
	"strings"

	"planquarter/internal/i18n"
)

type ctxKey string

const accountIDContextKey ctxKey = "accountID"

// requireAuth validates the bearer access credential and stores the account
// id in the request context. The credential is stateless: no store lookup,
// no revocation check.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		accountID, err := s.Issuer.Parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), accountIDContextKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLocale resolves the Accept-Language header once and carries the
// normalized locale in the context for notice rendering.
func requestLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := i18n.WithLocale(r.Context(), i18n.LocaleFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountIDFromContext(ctx context.Context) string {
	if val, ok := ctx.Value(accountIDContextKey).(string); ok {
		return val
	}
	return ""
}
