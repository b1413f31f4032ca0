package handler

import (
	"net/http"

	"cloudvault/internal/auth"
)

// Authenticator закрывает маршруты интроспекцией токена: членство
// в реестре, затем подпись и срок действия. Принципал кладется
// в контекст запроса.
func Authenticator(introspector *auth.Introspector, tokenHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenValue, err := auth.TokenFromRequest(r, tokenHeader)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			principal, err := introspector.Introspect(r.Context(), tokenValue)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
