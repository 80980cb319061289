package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey int

const (
	queryIDKey contextKey = iota
	workflowIDKey
	requestIDKey
)

// WithQueryID returns a new context with the given query ID stored.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey, id)
}

// QueryID extracts the query ID from the context.
// Returns an empty string if no query ID is set.
func QueryID(ctx context.Context) string {
	id, _ := ctx.Value(queryIDKey).(string)
	return id
}

// WithWorkflowID returns a new context with the given workflow ID stored.
func WithWorkflowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workflowIDKey, id)
}

// WorkflowID extracts the workflow ID from the context.
func WorkflowID(ctx context.Context) string {
	id, _ := ctx.Value(workflowIDKey).(string)
	return id
}

// WithRequestID returns a new context carrying the HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the HTTP request ID from the context.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// contextAttrs returns the correlation attributes present on ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id := QueryID(ctx); id != "" {
		attrs = append(attrs, slog.String("query_id", id))
	}
	if id := WorkflowID(ctx); id != "" {
		attrs = append(attrs, slog.String("workflow_id", id))
	}
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	return attrs
}

// contextHandler stamps correlation IDs from the record's context.
type contextHandler struct {
	inner slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		rec = rec.Clone()
		rec.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name)}
}
