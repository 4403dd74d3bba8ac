package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/audit"
	"github.com/nerrad567/gray-logic-device/internal/credentials"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-device/internal/notification"
	"github.com/nerrad567/gray-logic-device/internal/panel"
	"github.com/nerrad567/gray-logic-device/internal/property"
	"github.com/nerrad567/gray-logic-device/internal/provisioning"
	"github.com/nerrad567/gray-logic-device/internal/rpc"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Provisioning is the provisioning service as seen by the API.
type Provisioning interface {
	provisioning.Requester
	Status() provisioning.Status
	History(ctx context.Context, limit int) ([]provisioning.Event, error)
}

// LinkStatus reports the cloud link state.
type LinkStatus interface {
	IsConnected() bool
	QueueLen() int
}

// Runtime reports main loop state.
type Runtime interface {
	Identity() *credentials.Identity
	Stats() (ticks, overruns uint64)
}

// AuditTrail records and lists remote requests.
type AuditTrail interface {
	Record(e audit.Entry)
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
	Dropped() uint64
}

// Telemetry reports the telemetry mirror's write counters.
type Telemetry interface {
	Stats() influxdb.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WS            config.WebSocketConfig
	Logger        *logging.Logger
	Properties    *property.Registry
	Notifications *notification.Registry
	RPC           *rpc.Registry
	Provisioning  Provisioning
	Link          LinkStatus   // optional
	Runtime       Runtime      // optional
	DB            *database.DB // optional
	Audit         AuditTrail   // optional
	Telemetry     Telemetry    // optional
	Hub           *Hub         // If set, the server uses this hub instead of creating its own
	Version       string
}

// Server is the local diagnostics HTTP server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	properties    *property.Registry
	notifications *notification.Registry
	rpc           *rpc.Registry
	provisioning  Provisioning
	link          LinkStatus
	runtime       Runtime
	db            *database.DB
	audit         AuditTrail
	telemetry     Telemetry
	version       string
	startTime     time.Time
	server        *http.Server
	hub           *Hub
	panel         http.Handler
	cancel        context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Properties == nil || deps.Notifications == nil || deps.RPC == nil {
		return nil, fmt.Errorf("property, notification and rpc registries are required")
	}
	if deps.Provisioning == nil {
		return nil, fmt.Errorf("provisioning service is required")
	}

	s := &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger,
		properties:    deps.Properties,
		notifications: deps.Notifications,
		rpc:           deps.RPC,
		provisioning:  deps.Provisioning,
		link:          deps.Link,
		runtime:       deps.Runtime,
		db:            deps.DB,
		audit:         deps.Audit,
		telemetry:     deps.Telemetry,
		version:       deps.Version,
		startTime:     time.Now(),
		hub:           deps.Hub,
	}

	if deps.Config.Panel.Enabled {
		page, err := panel.New(panel.Options{
			Dir:     deps.Config.Panel.Dir,
			WSPath:  s.wsPath(),
			Version: deps.Version,
		})
		if err != nil {
			return nil, fmt.Errorf("building maintenance page: %w", err)
		}
		s.panel = page
	}

	return s, nil
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub if none was injected and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Hub returns the WebSocket hub. Nil before Start unless one was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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
