package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"carmarket/internal/shared/logger"
)

// Resolver превращает bearer токен в Principal
type Resolver interface {
	Resolve(token string) (Principal, error)
}

// Middleware создает middleware проверки JWT; principal кладется в контекст запроса
func Middleware(resolver Resolver, log *logger.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn(logger.Entry{
					Action:  "auth_missing_header",
					Message: "missing authorization header",
				})
				respondAuthError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondAuthError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			p, err := resolver.Resolve(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Warn(logger.Entry{
					Action:  "jwt_validation_failed",
					Message: err.Error(),
					Error:   &logger.ErrObj{Msg: err.Error()},
				})
				if errors.Is(err, ErrExpired) {
					respondAuthError(w, http.StatusUnauthorized, "token expired")
					return
				}
				respondAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		}
	}
}

// RequireDealer пропускает только principal с правами дилера
func RequireDealer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			respondAuthError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		if !p.IsDealer() {
			respondAuthError(w, http.StatusForbidden, "dealer role required")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
