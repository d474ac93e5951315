package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName - имя сервиса в grpc.health.v1
const ServiceName = "scribe.Chat"

var serverLogger = slog.With("component", "grpc-server")

// Server - административный gRPC сервер: health и reflection
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New создает сервер в состоянии NOT_SERVING
func New() *Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(loggingInterceptor),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// reflection для grpcurl
	reflection.Register(grpcServer)

	s := &Server{grpc: grpcServer, health: healthServer}
	s.SetServing(false)
	return s
}

// SetServing переключает статус "" и ServiceName
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve блокируется, пока сервер не остановлен
func (s *Server) Serve(lis net.Listener) error {
	serverLogger.Info("gRPC server is listening", "address", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop переводит health в NOT_SERVING и ждет завершения вызовов,
// а по истечении timeout останавливает сервер принудительно
func (s *Server) Stop(timeout time.Duration) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		serverLogger.Info("gRPC server stopped gracefully")
	case <-timer.C:
		serverLogger.Warn("Force stopping gRPC server")
		s.grpc.Stop()
	}
}

// loggingInterceptor логирует все gRPC запросы
func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	duration := time.Since(start)
	if err != nil {
		serverLogger.Error("gRPC request failed",
			"method", info.FullMethod,
			"duration", duration,
			"error", err)
	} else {
		serverLogger.Debug("gRPC request completed",
			"method", info.FullMethod,
			"duration", duration)
	}
	return resp, err
}
