package middleware

import (
	"net/http"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/auth"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
)

// UpstreamTokens copies the shopper's backend and POS tokens onto the request
// context. Nothing is verified here; upstreams reject bad tokens themselves.
func UpstreamTokens(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokens := auth.FromRequest(r)
			ctx := auth.WithTokens(r.Context(), tokens)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"has_access_token": tokens.Access != "",
					"has_pos_token":    tokens.POS != "",
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
