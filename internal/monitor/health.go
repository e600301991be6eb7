package monitor

import (
	"context"
	"net"
	"time"

	logs "github.com/danmuck/groupctl/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer publishes readiness over the standard gRPC health protocol.
// The service name is the group id; the empty service mirrors it.
type HealthServer struct {
	id       string
	addr     string
	reporter Reporter
	interval time.Duration
	health   *health.Server
}

func NewHealthServer(id, addr string, reporter Reporter, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = time.Second
	}
	return &HealthServer{
		id:       id,
		addr:     addr,
		reporter: reporter,
		interval: interval,
		health:   health.NewServer(),
	}
}

func (h *HealthServer) Name() string {
	return "monitor_grpc_health"
}

// Sync copies the current readiness into the health server.
func (h *HealthServer) Sync() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if h.reporter.Report().Ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(h.id, status)
	return status
}

func (h *HealthServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h.health)
	h.Sync()
	logs.Infof("monitor.HealthServer.Run listening addr=%q", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			h.Sync()
		case <-ctx.Done():
			h.health.Shutdown()
			srv.GracefulStop()
			<-errCh
			return nil
		}
	}
}
