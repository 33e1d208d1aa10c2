package tracing

import (
	"context"

	"github.com/bwise1/querydesk/util/values"
)

// Context identifies one request across log lines.
type Context struct {
	RequestID     string
	RequestSource string
}

// FromContext returns the tracing context stored by the RequestTracing
// middleware, or a zero Context.
func FromContext(ctx context.Context) Context {
	if ctx == nil {
		return Context{}
	}
	tc, _ := ctx.Value(values.ContextTracingKey).(Context)
	return tc
}

func WithContext(ctx context.Context, tc Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, values.ContextTracingKey, tc)
}
