package auth

import (
	"context"
	"log"
	"net/http"
)

type contextKey struct{}

// ResumeMiddleware validates an optional resume token sent with the
// connection request and stores its claims in the request context. A bad
// token is logged and ignored; the client then joins a fresh room.
func ResumeMiddleware(issuer *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := issuer.Validate(tokenString)
			if err != nil {
				log.Printf("Token validation error from %s: %v", r.RemoteAddr, err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
		})
	}
}

// ClaimsFromContext returns the claims ResumeMiddleware accepted, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

// tokenFromRequest reads the Authorization header, falling back to the
// token query parameter browsers use for WebSocket upgrades.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, err := ExtractTokenFromHeader(header)
		if err != nil {
			log.Printf("Ignoring authorization header from %s: %v", r.RemoteAddr, err)
			return ""
		}
		return token
	}
	return r.URL.Query().Get("token")
}
