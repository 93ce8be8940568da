package context

import (
	"context"

	"github.com/google/uuid"
)

// maxIDLength bounds ids accepted from request headers.
const maxIDLength = 128

// TraceContext identifies one request across logs, errors and replies.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

// WithTrace stores tc in ctx.
func WithTrace(ctx context.Context, tc *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// GetTrace returns the TraceContext of ctx, or nil.
func GetTrace(ctx context.Context) *TraceContext {
	tc, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return tc
}

// NewTraceContext keeps the incoming ids when they are safe to log and
// generates the missing ones.
func NewTraceContext(traceID, requestID string) *TraceContext {
	return &TraceContext{TraceID: acceptID(traceID), RequestID: acceptID(requestID)}
}

// acceptID returns id if it is short printable ASCII, else a fresh uuid.
func acceptID(id string) string {
	if id == "" || len(id) > maxIDLength {
		return uuid.NewString()
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return uuid.NewString()
		}
	}
	return id
}
