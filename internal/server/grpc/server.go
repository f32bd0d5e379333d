// Package grpc runs the gRPC health service of the backend. The serving
// status follows a periodic check of the database.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/weightlog/weightlog/internal/logging"
)

// ServiceName is the health service name reported for the backend.
const ServiceName = "weightlog.Backend"

// CheckFunc reports whether the backend can serve requests.
type CheckFunc func(ctx context.Context) error

type HealthServer struct {
	address  string
	logger   logging.Logger
	check    CheckFunc
	interval time.Duration
	health   *health.Server
}

func NewHealthServer(a string, l logging.Logger, check CheckFunc, interval time.Duration) *HealthServer {
	return &HealthServer{
		address:  a,
		logger:   l.With("module", "grpc_health"),
		check:    check,
		interval: interval,
		health:   health.NewServer(),
	}
}

// update runs the check once and publishes the result.
func (s *HealthServer) update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.check(ctx); err != nil {
		s.logger.Warn(ctx, "health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

func (s *HealthServer) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.update(ctx)
		}
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.health)

	s.update(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
