// Package api provides the HTTP service surface for rfcoord.
//
// It exposes the coordinator's service calls (fan parameter reads and
// writes, device binding, raw packet transmission, forced discovery)
// and read access to the entity registry.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quietmesh/rfcoord/internal/coordinator"
	"github.com/quietmesh/rfcoord/internal/infrastructure/config"
	"github.com/quietmesh/rfcoord/internal/infrastructure/logging"
	"github.com/quietmesh/rfcoord/internal/ramses"
	"github.com/quietmesh/rfcoord/internal/registry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Service is the coordinator surface the API exposes.
type Service interface {
	GetFanParam(ctx context.Context, req *coordinator.ParamRequest) error
	SetFanParam(ctx context.Context, req *coordinator.SetParamRequest) error
	UpdateFanParams(ctx context.Context, req *coordinator.ParamRequest) error
	BindDevice(ctx context.Context, req *coordinator.BindRequest) error
	SendPacket(ctx context.Context, req *coordinator.SendPacketRequest) error
	ForceUpdate(ctx context.Context) error
}

// Directory is the registry read/assign surface the API exposes.
type Directory interface {
	List(ctx context.Context) ([]registry.Record, error)
	Get(ctx context.Context, id string) (*registry.Record, error)
	AssignArea(ctx context.Context, deviceID ramses.DeviceID, areaID string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Service  Service
	Registry Directory
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	service  Service
	registry Directory
	version  string
	server   *http.Server
}

// New creates an API server with the given dependencies. The server is
// not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("coordinator service is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		service:  deps.Service,
		registry: deps.Registry,
		version:  deps.Version,
	}, nil
}

// Start launches the HTTP listener in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server, waiting for in-flight
// requests up to the shutdown timeout.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
