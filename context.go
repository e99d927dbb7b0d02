package authflow

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a correlation identifier to ctx. The Transport
// reuses it for the outgoing request-ID header instead of minting a new
// one, and audit events carry it so a request and its refresh-triggered
// replay can be tied together.
//
//	Docs: docs/transport.md, docs/audit.md
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}
