// Package logger carries structured logging fields through a context so that
// every line logged while answering one question shares the same identifiers.
package logger

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const fieldsKey contextKey = iota

// Field names shared by all packages.
const (
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldRole      = "role"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
)

type fields map[string]any

func fieldsFrom(ctx context.Context) fields {
	if f, ok := ctx.Value(fieldsKey).(fields); ok {
		return f
	}
	return nil
}

// WithFields returns a copy of ctx carrying the given key-value pairs.
// Non-string keys and a trailing key without a value are ignored.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}

	old := fieldsFrom(ctx)
	f := make(fields, len(old)+len(keysAndValues)/2)
	for k, v := range old {
		f[k] = v
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok && key != "" {
			f[key] = keysAndValues[i+1]
		}
	}
	return context.WithValue(ctx, fieldsKey, f)
}

func withString(ctx context.Context, key, value string) context.Context {
	if value == "" {
		return ctx
	}
	return WithFields(ctx, key, value)
}

// WithRequestID adds request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, FieldRequestID, requestID)
}

// WithSessionID adds session_id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withString(ctx, FieldSessionID, sessionID)
}

// WithRole adds role.
func WithRole(ctx context.Context, role string) context.Context {
	return withString(ctx, FieldRole, role)
}

// WithSpan copies trace_id and span_id from the active OpenTelemetry span.
func WithSpan(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return WithFields(ctx, FieldTraceID, sc.TraceID().String(), FieldSpanID, sc.SpanID().String())
}

// Fields returns the context fields as a key-value slice sorted by key.
func Fields(ctx context.Context) []any {
	f := fieldsFrom(ctx)
	if len(f) == 0 {
		return nil
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}

// FromContext returns the global logger decorated with the context fields.
func FromContext(ctx context.Context) core.Logger {
	base := logger.Global()
	if f := Fields(ctx); len(f) > 0 {
		return base.With(f...)
	}
	return base
}
