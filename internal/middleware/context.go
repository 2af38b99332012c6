package middleware

import "context"

type ctxKey string

const (
	ctxCorrelationID ctxKey = "correlation_id"
	ctxSessionID     ctxKey = "session_id"
)

func GetCorrelationID(ctx context.Context) string {
	if v := ctx.Value(ctxCorrelationID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, ctxCorrelationID, cid)
}

// GetSessionID returns the anonymous cart session carried by the request, if
// any.
func GetSessionID(ctx context.Context) string {
	if v := ctx.Value(ctxSessionID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxSessionID, sid)
}
