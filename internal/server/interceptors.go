package server

import (
	"context"
	"path"
	"time"

	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/pietroferretti/ctftools/internal/observability/metrics"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const component = "analyzer"

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// requestID returns the identifier assigned to the current RPC, if any.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// newLimiter returns a token bucket for the server. A non-positive rate
// disables limiting.
func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

func throttled(audit *logging.AuditLogger, limiter *rate.Limiter, fullMethod string) error {
	if limiter.Allow() {
		return nil
	}
	method := path.Base(fullMethod)
	metrics.RecordRPCThrottled(method)
	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventRPCDenied,
		Decision:  logging.DecisionDeny,
		Reason:    "rate limit exceeded",
		Metadata:  map[string]any{"method": method},
	})
	return status.Error(codes.ResourceExhausted, "rate limit exceeded")
}

func record(audit *logging.AuditLogger, id, fullMethod string, start time.Time, err error) {
	method := path.Base(fullMethod)
	code := status.Code(err)
	metrics.ObserveRPCLatency(component, method, code.String(), time.Since(start))
	if err != nil {
		metrics.RecordRPCError(component, method, code.String())
	}
	decision := logging.DecisionAllow
	reason := ""
	if err != nil {
		decision = logging.DecisionDeny
		reason = status.Convert(err).Message()
	}
	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventRPCCall,
		SessionID: id,
		Decision:  decision,
		Reason:    reason,
		Metadata: map[string]any{
			"method":      method,
			"code":        code.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		},
	})
}

// UnaryInterceptor rate limits, measures and audits unary calls.
func UnaryInterceptor(audit *logging.AuditLogger, limiter *rate.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := throttled(audit, limiter, info.FullMethod); err != nil {
			return nil, err
		}
		metrics.RecordRPCRequest(component, path.Base(info.FullMethod))
		id := logging.NewSessionID()
		start := time.Now()
		resp, err := handler(withRequestID(ctx, id), req)
		record(audit, id, info.FullMethod, start, err)
		return resp, err
	}
}

type requestStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *requestStream) Context() context.Context { return s.ctx }

// StreamInterceptor is the streaming counterpart of UnaryInterceptor.
func StreamInterceptor(audit *logging.AuditLogger, limiter *rate.Limiter) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := throttled(audit, limiter, info.FullMethod); err != nil {
			return err
		}
		metrics.RecordRPCRequest(component, path.Base(info.FullMethod))
		id := logging.NewSessionID()
		start := time.Now()
		err := handler(srv, &requestStream{ServerStream: ss, ctx: withRequestID(ss.Context(), id)})
		record(audit, id, info.FullMethod, start, err)
		return err
	}
}
