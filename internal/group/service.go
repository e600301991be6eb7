package group

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/groupctl/internal/capability"
	"github.com/danmuck/groupctl/internal/execution"
	"github.com/danmuck/groupctl/internal/host"
	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/danmuck/groupctl/internal/monitor"
	"github.com/danmuck/groupctl/internal/params"
	"github.com/danmuck/groupctl/internal/plugins"
	"github.com/danmuck/groupctl/internal/scene"
)

var (
	ErrSceneNotConfigured       = errors.New("group: planning scene not configured")
	ErrSceneNotReady            = errors.New("group: planning scene never became ready")
	ErrNotBootstrapped          = errors.New("group: service not bootstrapped")
	ErrAlreadyBootstrapped      = errors.New("group: service already bootstrapped")
	ErrInvalidHeartbeatInterval = errors.New("group: invalid heartbeat interval")
	ErrInvalidParamSource       = errors.New("group: invalid parameter source")
)

const (
	ParamSourceHTTP   = "http"
	ParamSourceRedis  = "redis"
	ParamSourceStatic = "static"

	ParamDescriptionSemantic = "robot_description_semantic"
)

// ServiceConfig holds everything the group process needs at startup.
type ServiceConfig struct {
	GroupID                  string
	AllowTrajectoryExecution bool
	Capabilities             []capability.Name
	DisableCapabilities      []capability.Name
	Debug                    bool

	DescriptionPeer  string
	DescriptionParam string
	SemanticFile     string
	PollInterval     time.Duration
	ParamSource      string
	PeerAddress      string
	RedisURL         string
	// ParamToken is sent to the description peer and required from peers
	// reading this process's parameters.
	ParamToken string
	// Parameters seed the local store. With the static source they also
	// stand in for the description peer.
	Parameters map[string]string

	MonitorListenAddr   string
	HealthListenAddr    string
	CORSOrigins         []string
	HeartbeatInterval   time.Duration
	SceneUpdateInterval time.Duration
	ControllerPoll      time.Duration

	HostAPIVersion string
	// Catalog defaults to plugins.Default().
	Catalog *plugins.Catalog
	// Source overrides ParamSource when set.
	Source params.Source
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		GroupID:                  "group",
		AllowTrajectoryExecution: true,
		DescriptionPeer:          "robot_state_publisher",
		DescriptionParam:         "robot_description",
		PollInterval:             params.DefaultPollInterval,
		ParamSource:              ParamSourceHTTP,
		PeerAddress:              "http://127.0.0.1:7420",
		RedisURL:                 "redis://127.0.0.1:6379/0",
		MonitorListenAddr:        "127.0.0.1:7421",
		HealthListenAddr:         "127.0.0.1:7422",
		HeartbeatInterval:        5 * time.Second,
		SceneUpdateInterval:      time.Second,
		ControllerPoll:           time.Second,
		HostAPIVersion:           plugins.HostAPIVersion,
	}
}

// Service is the group process: it fetches the robot description, builds
// the shared context, configures the registry and then serves until
// shutdown.
type Service struct {
	cfg      ServiceConfig
	store    *params.Store
	registry *Registry

	source params.Source
	redis  *params.RedisSource

	scene     *scene.Monitor
	execution *execution.Manager
	gc        *capability.Context

	mu           sync.Mutex
	bootstrapped bool
	closeOnce    sync.Once
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.GroupID) == "" {
		cfg.GroupID = "group"
	}
	if cfg.Catalog == nil {
		cfg.Catalog = plugins.Default()
	}
	return &Service{
		cfg:      cfg,
		store:    params.NewStore(),
		registry: NewRegistry(cfg.Catalog, cfg.HostAPIVersion),
	}
}

func (s *Service) Config() ServiceConfig {
	return s.cfg
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) Store() *params.Store {
	return s.store
}

// Context returns the shared context, nil before Bootstrap builds it.
func (s *Service) Context() *capability.Context {
	return s.gc
}

// Bootstrap performs the startup sequence. It returns context.Canceled when
// ctx is cancelled while waiting for the description peer, and an error
// wrapping ErrFatalStartup when the process cannot continue.
func (s *Service) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bootstrapped {
		return ErrAlreadyBootstrapped
	}
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	src, err := s.buildSource()
	if err != nil {
		return err
	}
	s.source = src

	res := params.Fetch(ctx, src, params.Request{
		Peer:     s.cfg.DescriptionPeer,
		Name:     s.cfg.DescriptionParam,
		Interval: s.cfg.PollInterval,
		Kind:     params.KindString,
	})
	if res.Cancelled() {
		return context.Canceled
	}
	description := res.Value.String()
	logs.Debugf("group.Service.Bootstrap fetched %s from %s polls=%d bytes=%d",
		s.cfg.DescriptionParam, s.cfg.DescriptionPeer, res.Polls, len(description))

	for name, value := range s.cfg.Parameters {
		s.store.Set(name, value)
	}
	semantic := s.readSemantic()
	s.store.Set(s.cfg.DescriptionParam, description)
	s.store.Set(ParamDescriptionSemantic, semantic)

	s.scene = scene.NewMonitor(scene.MonitorConfig{
		Description:    description,
		Semantic:       semantic,
		UpdateInterval: s.cfg.SceneUpdateInterval,
	})
	if s.scene.Scene() == nil {
		logs.Errorf("group.Service.Bootstrap planning scene not configured")
		return fmt.Errorf("%w: %w", ErrFatalStartup, ErrSceneNotConfigured)
	}
	s.scene.StartSceneMonitor()
	s.scene.StartWorldGeometryMonitor()
	s.scene.StartStateMonitor()

	if s.cfg.Debug {
		logs.Infof("group.Service debug mode is ON")
	} else {
		logs.Infof("group.Service debug mode is OFF")
	}

	if s.cfg.AllowTrajectoryExecution {
		s.execution = execution.NewManager(s.cfg.ControllerPoll)
	}
	gc, err := capability.NewContext(s.scene, s.execution, s.cfg.AllowTrajectoryExecution, s.cfg.Debug)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFatalStartup, err)
	}
	if !gc.Status() {
		return fmt.Errorf("%w: %w", ErrFatalStartup, ErrSceneNotReady)
	}
	s.gc = gc

	spec := capability.Spec{
		Defaults:  capability.DefaultNames(),
		Additions: s.cfg.Capabilities,
		Removals:  s.cfg.DisableCapabilities,
	}
	if _, err := s.registry.Configure(ctx, spec, gc); err != nil {
		return err
	}

	s.scene.PublishDebugInformation(s.cfg.Debug)
	if s.registry.Len() > 0 {
		logs.Infof("group.Service %s context initialization complete", s.cfg.GroupID)
		logs.Infof("You can start planning now!")
	} else {
		logs.Warnf("group.Service %s is running but no capabilities are loaded", s.cfg.GroupID)
	}

	if s.redis != nil {
		if err := s.redis.Publish(ctx, s.cfg.GroupID, s.store.Snapshot()); err != nil {
			logs.Warnf("group.Service.Bootstrap publish parameters err=%v", err)
		}
	}
	s.bootstrapped = true
	return nil
}

func (s *Service) buildSource() (params.Source, error) {
	if s.cfg.Source != nil {
		return s.cfg.Source, nil
	}
	switch strings.ToLower(strings.TrimSpace(s.cfg.ParamSource)) {
	case "", ParamSourceHTTP:
		src := params.NewHTTPSource(map[string]string{s.cfg.DescriptionPeer: s.cfg.PeerAddress}, nil)
		return src.WithToken(s.cfg.ParamToken), nil
	case ParamSourceRedis:
		src, err := params.NewRedisSource(s.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.redis = src
		return src, nil
	case ParamSourceStatic:
		peer := params.NewStore()
		for name, value := range s.cfg.Parameters {
			peer.Set(name, value)
		}
		src := params.NewMapSource()
		src.Attach(s.cfg.DescriptionPeer, peer)
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidParamSource, s.cfg.ParamSource)
	}
}

func (s *Service) readSemantic() string {
	path := strings.TrimSpace(s.cfg.SemanticFile)
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logs.Warnf("group.Service.Bootstrap semantic description unavailable path=%q err=%v", path, err)
		return ""
	}
	return string(raw)
}

// Serve runs the group process and its collaborators on an execution host
// until ctx is cancelled or a component fails.
func (s *Service) Serve(ctx context.Context) error {
	s.mu.Lock()
	if !s.bootstrapped {
		s.mu.Unlock()
		return ErrNotBootstrapped
	}
	s.mu.Unlock()

	h := host.New()
	if cm := s.execution.ControllerManager(); cm != nil {
		if err := h.Add(cm); err != nil {
			return err
		}
	}
	if s.cfg.MonitorListenAddr != "" {
		srv := monitor.NewServer(monitor.ServerConfig{
			ID:          s.cfg.GroupID,
			Addr:        s.cfg.MonitorListenAddr,
			Store:       s.store,
			CORSOrigins: s.cfg.CORSOrigins,
			ParamToken:  s.cfg.ParamToken,
		}, s)
		if err := h.Add(srv); err != nil {
			return err
		}
	}
	if s.cfg.HealthListenAddr != "" {
		if err := h.Add(monitor.NewHealthServer(s.cfg.GroupID, s.cfg.HealthListenAddr, s, s.cfg.HeartbeatInterval)); err != nil {
			return err
		}
	}
	if err := h.Add(s.scene, host.Func{ID: s.cfg.GroupID, Fn: s.heartbeat}); err != nil {
		return err
	}

	logs.Infof("group.Service.Serve components=%v", h.Names())
	return h.Run(ctx)
}

func (s *Service) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logs.Debugf("group.Service.heartbeat status=%q", s.registry.Status())
		}
	}
}

// Status reports the registry status line.
func (s *Service) Status() string {
	return s.registry.Status()
}

// Report implements monitor.Reporter.
func (s *Service) Report() monitor.Report {
	rep := monitor.Report{
		Status: s.registry.Status(),
		Ready:  s.registry.Ready(),
		Active: capability.Strings(s.registry.Active()),
	}
	if gc := s.gc; gc != nil {
		rep.Instance = gc.InstanceID()
	}
	if failures := s.registry.Failures(); len(failures) > 0 {
		rep.Failures = make(map[string]string, len(failures))
		for _, f := range failures {
			rep.Failures[string(f.Name)] = f.Err.Error()
		}
	}
	return rep
}

// Close tears down capabilities before the shared context they reference.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.registry.Close()
		if s.scene != nil {
			s.scene.Stop()
		}
		if s.redis != nil {
			if cerr := s.redis.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		logs.Infof("group.Service.Close done group=%s", s.cfg.GroupID)
	})
	return err
}

// Run bootstraps and serves until SIGINT or SIGTERM. A shutdown signal
// during startup is a clean exit.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Bootstrap(ctx); err != nil {
		_ = s.Close()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	defer s.Close()
	return s.Serve(ctx)
}
