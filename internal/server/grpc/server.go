package grpc

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/pkg/errorbank"
)

// ServiceName is the health-check name reported for the order service.
const ServiceName = "restaurant.orders"

var Module = fx.Module("grpc_server",
	fx.Provide(health.NewServer, NewServer),
	fx.Invoke(Run),
)

// NewServer returns a server exposing health and reflection. Every call is
// logged and any error leaving a handler is rendered as a gRPC status.
func NewServer(logger *zap.Logger, hs *health.Server) *grpc.Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			start := time.Now()
			resp, err := handler(ctx, req)
			err = toStatus(err)
			logCall(logger, "unary", info.FullMethod, time.Since(start), err)
			return resp, err
		}),
		grpc.ChainStreamInterceptor(func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
			start := time.Now()
			err := toStatus(handler(srv, ss))
			logCall(logger, "stream", info.FullMethod, time.Since(start), err)
			return err
		}),
	)
	setServing(hs, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)
	return server
}

func setServing(hs *health.Server, st healthpb.HealthCheckResponse_ServingStatus) {
	for _, name := range []string{"", ServiceName} {
		hs.SetServingStatus(name, st)
	}
}

func logCall(logger *zap.Logger, kind, method string, took time.Duration, err error) {
	fields := []zap.Field{zap.String("kind", kind), zap.String("method", method), zap.Duration("duration", took)}
	if err != nil {
		logger.Warn("grpc call finished", append(fields, zap.Stringer("code", status.Code(err)), zap.Error(err))...)
		return
	}
	logger.Info("grpc call finished", fields...)
}

// toStatus renders an error as a gRPC status. Status errors pass through; an
// AppError keeps its message and recorded field, never its cause.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	appErr := errorbank.From(err)
	st := status.New(appErr.GRPCCode(), appErr.Message())
	field := appErr.Field()
	if field == "" {
		return st.Err()
	}
	detailed, derr := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: field, Description: appErr.Message()}},
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// Run serves on the configured address between start and stop. A stop whose
// context expires before in-flight calls finish closes them forcibly.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, hs *health.Server, logger *zap.Logger) {
	if !cfg.GRPC.Enabled {
		logger.Info("grpc server disabled")
		return
	}
	addr := net.JoinHostPort(cfg.GRPC.Host, strconv.Itoa(cfg.GRPC.Port))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc %s: %w", addr, err)
			}
			logger.Info("starting gRPC server", zap.String("addr", lis.Addr().String()))
			go func() {
				if err := server.Serve(lis); err != nil {
					logger.Fatal("grpc server failed", zap.Error(err))
				}
			}()
			hs.Resume()
			setServing(hs, healthpb.HealthCheckResponse_SERVING)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			hs.Shutdown()

			stopped := make(chan struct{})
			go func() {
				defer close(stopped)
				server.GracefulStop()
			}()
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			}
		},
	})
}
