// Package grpc runs a health-check-only gRPC endpoint so orchestrators and
// sibling services can probe the analysis backend without speaking HTTP.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/faultmap/faultmap-backend/internal/graph"
)

// Server wraps the gRPC listener and its health service.
type Server struct {
	server       *grpc.Server
	healthServer *health.Server
	gateway      graph.QueryGateway
	port         int
	log          *slog.Logger
}

// NewServer creates a new gRPC server instance.
func NewServer(port int, gw graph.QueryGateway, log *slog.Logger) *Server {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(4 * 1024 * 1024),
		grpc.MaxSendMsgSize(4 * 1024 * 1024),
		grpc.ConnectionTimeout(30 * time.Second),
	}

	s := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	// Reflection for grpcurl during development
	reflection.Register(s)

	return &Server{
		server:       s,
		healthServer: healthServer,
		gateway:      gw,
		port:         port,
		log:          log,
	}
}

// Start starts the gRPC server and a background loop that mirrors graph
// availability into the health status.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.log.Info("gRPC server starting", "address", addr)

	go func() {
		if err := s.server.Serve(listener); err != nil {
			s.log.Error("gRPC server failed", "error", err)
		}
	}()
	go s.watchGraph(ctx)

	return nil
}

// watchGraph flips the health status to NOT_SERVING while the graph store is
// unreachable.
func (s *Server) watchGraph(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			_, err := s.gateway.Version(checkCtx)
			cancel()
			if err != nil {
				s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			} else {
				s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
			}
		}
	}
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.log.Info("Stopping gRPC server")
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.log.Info("gRPC server stopped gracefully")
	case <-time.After(5 * time.Second):
		s.log.Warn("gRPC server forced to stop after timeout")
		s.server.Stop()
	}
}
