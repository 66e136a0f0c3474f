// Package auth carries the upstream credentials a storefront request arrives with.
package auth

import (
	"context"
	"net/http"
	"strings"
)

const (
	// AccessTokenCookie holds the bearer token for the catalog backend.
	AccessTokenCookie = "accessToken"
	// POSTokenCookie holds the token for the POS/inventory provider.
	POSTokenCookie = "pos_token"
)

type ctxKey int

const (
	ctxAccessToken ctxKey = iota
	ctxPOSToken
)

// Tokens are the upstream credentials found on a request.
type Tokens struct {
	Access string
	POS    string
}

// FromRequest extracts tokens from cookies, falling back to the Authorization header for the access token.
func FromRequest(r *http.Request) Tokens {
	var tokens Tokens
	if r == nil {
		return tokens
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		tokens.Access = strings.TrimSpace(c.Value)
	}
	if tokens.Access == "" {
		tokens.Access = BearerFromHeader(r.Header.Get("Authorization"))
	}
	if c, err := r.Cookie(POSTokenCookie); err == nil {
		tokens.POS = strings.TrimSpace(c.Value)
	}
	return tokens
}

// BearerFromHeader strips an optional "Bearer " prefix.
func BearerFromHeader(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// WithTokens stores the request tokens on ctx.
func WithTokens(ctx context.Context, tokens Tokens) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccessToken, tokens.Access)
	return context.WithValue(ctx, ctxPOSToken, tokens.POS)
}

func AccessToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessToken).(string); ok {
		return v
	}
	return ""
}

func POSToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPOSToken).(string); ok {
		return v
	}
	return ""
}

// SetBearer attaches the token as an Authorization header when present.
func SetBearer(req *http.Request, token string) {
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
