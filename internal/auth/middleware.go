package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/AbogiC/kostum-resonanz/internal/apperror"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/rs/zerolog/log"
)

// AccountResolver maps a bearer token to the account it names.
type AccountResolver interface {
	ResolveCurrentAccount(ctx context.Context, token string) (models.Account, error)
}

type contextKey string

// AccountKey is the context key for the resolved account.
const AccountKey = contextKey("account")

// TokenCookieName is the cookie consulted when no Authorization header is sent.
const TokenCookieName = "token"

// WithAccount returns a copy of ctx carrying account.
func WithAccount(ctx context.Context, account models.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

// AccountFromContext returns the account stored by Middleware.
func AccountFromContext(ctx context.Context) (models.Account, bool) {
	account, ok := ctx.Value(AccountKey).(models.Account)
	return account, ok
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the token cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware resolves the caller's account for every request and rejects
// requests without a valid token.
func Middleware(resolver AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := TokenFromRequest(r)
			if tokenStr == "" {
				apperror.WriteHTTP(w, apperror.Unauthenticated("missing auth token"))
				return
			}

			account, err := resolver.ResolveCurrentAccount(r.Context(), tokenStr)
			if err != nil {
				if apperror.KindOf(err) == apperror.KindInternal {
					log.Error().Err(err).Msg("Failed to resolve account from token")
				} else {
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected auth token")
				}
				apperror.WriteHTTP(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// RequireRoleMiddleware rejects callers whose resolved account lacks role.
// It must run after Middleware.
func RequireRoleMiddleware(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok {
				apperror.WriteHTTP(w, apperror.Unauthenticated("missing auth token"))
				return
			}
			if _, err := RequireRole(account, role); err != nil {
				log.Warn().Str("email", account.Email).Str("path", r.URL.Path).Msg("Forbidden role for route")
				apperror.WriteHTTP(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
