package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/config"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
)

const defaultCheckoutCookie = "checkout_session"

// CheckoutSession resolves the browser's checkout session id from its cookie,
// issuing a fresh uuid cookie when the cookie is missing or malformed.
func CheckoutSession(cfg config.CheckoutConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = defaultCheckoutCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(name); err == nil {
				if parsed, err := uuid.Parse(strings.TrimSpace(cookie.Value)); err == nil {
					sid = parsed.String()
				}
			}
			ctx := r.Context()
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, sessionCookie(name, sid, cfg))
				ctx = withSessionIssued(ctx)
			}

			ctx = WithCheckoutSession(ctx, sid)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionCookie(name, value string, cfg config.CheckoutConfig) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.SessionTTL > 0 {
		cookie.MaxAge = int(cfg.SessionTTL / time.Second)
		cookie.Expires = time.Now().Add(cfg.SessionTTL).UTC()
	}
	return cookie
}
