// Package monitor serves the group process status over HTTP and the gRPC
// health protocol.
package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/groupctl/internal/auth"
	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/danmuck/groupctl/internal/observability"
	"github.com/danmuck/groupctl/internal/params"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.3.0"

// Report is the registry view served to operators.
type Report struct {
	Status   string            `json:"status"`
	Ready    bool              `json:"ready"`
	Instance string            `json:"instance,omitempty"`
	Active   []string          `json:"active"`
	Failures map[string]string `json:"failures,omitempty"`
}

// Reporter supplies the current registry view.
type Reporter interface {
	Report() Report
}

// Server is the HTTP monitor component.
type Server struct {
	id       string
	addr     string
	reporter Reporter
	started  time.Time
	router   *gin.Engine
	srv      *http.Server
}

// ServerConfig configures the HTTP monitor.
type ServerConfig struct {
	ID   string
	Addr string
	// Store is served under /parameters when non-nil.
	Store       *params.Store
	CORSOrigins []string
	// ParamToken, when set, is required as a bearer token on /parameters.
	ParamToken string
}

// NewServer builds the monitor router.
func NewServer(cfg ServerConfig, reporter Reporter) *Server {
	id, addr, corsOrigins := cfg.ID, cfg.Addr, cfg.CORSOrigins
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.Middleware(id, logs.With("monitor")))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: allowHeaders(cfg.ParamToken),
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		id:       id,
		addr:     addr,
		reporter: reporter,
		started:  time.Now(),
		router:   r,
	}
	s.routes(cfg.Store, cfg.ParamToken)
	return s
}

func (s *Server) Name() string {
	return "monitor_http"
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(store *params.Store, token string) {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"group":   s.id,
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		rep := s.reporter.Report()
		code := http.StatusOK
		if !rep.Ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"ready":  rep.Ready,
			"status": rep.Status,
			"group":  s.id,
		})
	})

	s.router.GET("/capabilities", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.reporter.Report())
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if store != nil {
		var guard []gin.HandlerFunc
		if token != "" {
			guard = append(guard, auth.Require(auth.StaticToken{Token: token}))
		}
		params.Routes(s.router, store, guard...)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	logs.Infof("monitor.Server.Run listening addr=%q", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logs.Warnf("monitor.Server.Run shutdown err=%v", err)
		}
		<-errCh
		return nil
	}
}

func allowHeaders(token string) []string {
	headers := []string{"Origin", "Content-Type"}
	if token != "" {
		headers = append(headers, "Authorization")
	}
	return headers
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
