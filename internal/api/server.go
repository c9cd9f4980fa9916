package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/minergate/internal/audit"
	"github.com/nerrad567/minergate/internal/bridges/fleetmqtt"
	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/infrastructure/config"
	"github.com/nerrad567/minergate/internal/infrastructure/database"
	"github.com/nerrad567/minergate/internal/infrastructure/logging"
	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/targets"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// FleetService is the gateway surface the handlers call; *fleet.Service
// implements it.
type FleetService interface {
	Query(ctx context.Context, spec targets.Spec, selector []string) (*fleet.QueryResult, error)
	Telemetry(ctx context.Context, host string) (*telemetry.Record, error)
	Errors(ctx context.Context, host string) ([]string, error)
	Hostname(ctx context.Context, host string) (string, error)
	Model(ctx context.Context, host string) (string, error)
	SetLight(ctx context.Context, host string, mode miner.LightMode, source string) (bool, error)
}

// ConnectionStatus reports whether an optional backend is connected.
type ConnectionStatus interface {
	IsConnected() bool
}

// BridgeStats reports MQTT bridge counters; *fleetmqtt.Bridge implements
// it.
type BridgeStats interface {
	Metrics() fleetmqtt.Metrics
}

// Deps holds the API server's collaborators. Fleet and Logger are required.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Fleet   FleetService
	Version string

	// Events receives the WebSocket hub so it sees fleet events.
	Events *fleet.Dispatcher

	// Audit serves GET /audit; nil when the database is disabled.
	Audit audit.Repository

	// Optional, reported by /metrics.
	DB       *database.DB
	MQTT       ConnectionStatus
	MQTTBridge BridgeStats
	InfluxDB   ConnectionStatus
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	fleet     FleetService
	auditRepo audit.Repository
	db        *database.DB
	mqtt      ConnectionStatus
	bridge    BridgeStats
	influx    ConnectionStatus
	version   string
	startTime time.Time

	hub    *Hub
	server *http.Server
	cancel context.CancelFunc
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Fleet == nil {
		return nil, fmt.Errorf("fleet service is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		fleet:     deps.Fleet,
		auditRepo: deps.Audit,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		bridge:    deps.MQTTBridge,
		influx:    deps.InfluxDB,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Logger),
	}
	if deps.Events != nil {
		deps.Events.Add(s.hub)
	}
	return s, nil
}

// Hub returns the WebSocket event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the configured address and serves in the background.
// The listener is bound before Start returns, so a port conflict is
// reported here.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
		BaseContext:       func(net.Listener) context.Context { return srvCtx },
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close drains in-flight requests, then closes the listener and hub.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
