package middleware

import (
	"context"
	"time"

	"github.com/shrek82/jrecord/core"
	"github.com/shrek82/jrecord/logger"
)

type ctxKey string

const (
	// RequestIDKey is the context key read for the request id.
	RequestIDKey ctxKey = "request_id"
	// UserIPKey is the context key read for the caller address.
	UserIPKey ctxKey = "user_ip"
)

// WithRequestID returns a context carrying the request id read by TracingMiddleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithUserIP returns a context carrying the caller address read by TracingMiddleware.
func WithUserIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, UserIPKey, ip)
}

// TracingMiddleware logs every store operation with the tracing information
// found in its context, such as a request id or the caller address.
type TracingMiddleware struct {
	logger logger.Logger
}

func NewTracing() *TracingMiddleware {
	return &TracingMiddleware{}
}

func (m *TracingMiddleware) Name() string {
	return "Tracing"
}

func (m *TracingMiddleware) Init(e *core.Engine) error {
	if m.logger == nil {
		m.logger = e.Logger()
	}
	return nil
}

// SetLogger overrides the engine logger.
func (m *TracingMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}

func (m *TracingMiddleware) Shutdown() error {
	return nil
}

func (m *TracingMiddleware) Process(ctx context.Context, op *core.Operation, next core.OpFunc) (*core.OpResult, error) {
	fields := map[string]any{
		"op":         string(op.Kind),
		"collection": op.Collection,
	}
	if reqID := ctx.Value(RequestIDKey); reqID != nil {
		fields["request_id"] = reqID
	}
	if userIP := ctx.Value(UserIPKey); userIP != nil {
		fields["user_ip"] = userIP
	}

	start := time.Now()
	res, err := next(ctx, op)
	l := m.logger.WithFields(fields)
	if err != nil {
		l.Warn("store %s failed after %v: %v", op.Kind, time.Since(start), err)
	} else {
		l.Info("store %s %v in %v", op.Kind, resultID(op, res), time.Since(start))
	}
	return res, err
}
