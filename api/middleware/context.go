package middleware

import "context"

type contextKey string

const (
	ctxRequestID       contextKey = "request_id"
	ctxCheckoutSession contextKey = "checkout_session"
	ctxSessionIssued   contextKey = "checkout_session_issued"
)

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

// CheckoutSessionFromContext returns the browser's checkout session id set by CheckoutSession.
func CheckoutSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCheckoutSession).(string); ok {
		return v
	}
	return ""
}

// WithCheckoutSession injects the session id; controllers tests use it directly.
func WithCheckoutSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCheckoutSession, sessionID)
}

func withRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestID, requestID)
}

// CheckoutSessionIssued reports whether CheckoutSession minted the id on this
// request because the browser sent no usable cookie.
func CheckoutSessionIssued(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	issued, _ := ctx.Value(ctxSessionIssued).(bool)
	return issued
}

func withSessionIssued(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxSessionIssued, true)
}
