package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
)

// ServiceName is the name the evaluator reports under in the gRPC health service.
const ServiceName = "claims.v1.ClaimsEvaluator"

// NewGRPCServer builds the gRPC server: standard health service, reflection
// and request logging. The returned health server lets the caller flip
// serving status on shutdown.
func NewGRPCServer(log *logger.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor(log.Component("grpc"))))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv) // Enable reflection for debugging
	return srv, hs
}

// UnaryLoggingInterceptor logs every unary call with its status code. The
// caller's x-request-id metadata, when present, is carried into the log line.
func UnaryLoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		evt := log.Debug()
		if err != nil {
			evt = log.Warn().Err(err)
		}
		evt.
			Str("method", info.FullMethod).
			Str("request_id", requestID(ctx)).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC request")
		return resp, err
	}
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get("x-request-id"); len(v) > 0 {
		return v[0]
	}
	return ""
}
