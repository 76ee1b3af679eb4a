// Package health exposes the standard gRPC health service, driven by
// periodic pings of the backing store.
package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name reported for the HTTP API in health responses.
const Service = "mwas.api"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	srv    *health.Server
	db     Pinger
	logger *slog.Logger
}

func New(db Pinger, logger *slog.Logger) *Checker {
	return &Checker{srv: health.NewServer(), db: db, logger: logger}
}

// Probe pings the store once and publishes the result for both the
// overall server and Service.
func (c *Checker) Probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := c.db.Ping(ctx); err != nil {
		c.logger.Warn("store ping failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.srv.SetServingStatus("", st)
	c.srv.SetServingStatus(Service, st)
}

// Run probes every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	c.Probe(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Probe(ctx)
		}
	}
}

// Shutdown marks everything NOT_SERVING so clients drain before exit.
func (c *Checker) Shutdown() {
	c.srv.Shutdown()
}

// NewServer returns a gRPC server with the health service registered.
func NewServer(c *Checker, logger *slog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(logCalls(logger)))
	healthpb.RegisterHealthServer(s, c.srv)
	return s
}

func logCalls(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		if err != nil {
			logger.Warn("grpc call failed", "method", info.FullMethod, "error", err, "latency", time.Since(start))
		} else {
			logger.Debug("grpc call", "method", info.FullMethod, "latency", time.Since(start))
		}
		return resp, err
	}
}
