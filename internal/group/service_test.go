package group

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/groupctl/internal/capability"
	"github.com/danmuck/groupctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unreachable struct{}

func (unreachable) Available(context.Context, string) bool { return false }

func (unreachable) Get(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

func staticConfig(t *testing.T, f *fixture) ServiceConfig {
	t.Helper()
	cfg := DefaultServiceConfig()
	cfg.ParamSource = ParamSourceStatic
	cfg.Parameters = map[string]string{"robot_description": "<robot name=\"arm\"/>"}
	cfg.MonitorListenAddr = ""
	cfg.HealthListenAddr = ""
	cfg.PollInterval = 5 * time.Millisecond
	cfg.HeartbeatInterval = 10 * time.Millisecond
	cfg.SceneUpdateInterval = 10 * time.Millisecond
	cfg.ControllerPoll = 10 * time.Millisecond
	cfg.Catalog = f.catalog
	return cfg
}

func TestBootstrapConfiguresRegistry(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, capability.DefaultNames(), "group/ClearOctomapService")
	cfg := staticConfig(t, f)
	cfg.DisableCapabilities = []capability.Name{"group/MoveAction"}

	semantic := filepath.Join(t.TempDir(), "arm.srdf")
	require.NoError(t, os.WriteFile(semantic, []byte("<robot name=\"arm\"><group name=\"arm\"/></robot>"), 0o600))
	cfg.SemanticFile = semantic

	s := NewServiceWithConfig(cfg)
	require.NoError(t, s.Bootstrap(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "ready, 8 capabilities active", s.Status())
	rep := s.Report()
	assert.True(t, rep.Ready)
	assert.NotEmpty(t, rep.Instance)
	assert.NotContains(t, rep.Active, "group/MoveAction")
	assert.Contains(t, rep.Failures, "group/ClearOctomapService")

	got, ok := s.Store().Get(ParamDescriptionSemantic)
	require.True(t, ok)
	assert.Contains(t, got, "group name")
	assert.NotNil(t, s.Context().Execution())

	require.ErrorIs(t, s.Bootstrap(context.Background()), ErrAlreadyBootstrapped)
}

func TestBootstrapCancelledWhileWaitingForPeer(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, capability.DefaultNames())
	cfg := staticConfig(t, f)
	cfg.Source = unreachable{}

	s := NewServiceWithConfig(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Bootstrap(ctx), context.Canceled)
	assert.Zero(t, f.built.Load())
	assert.Nil(t, s.Context())
}

func TestBootstrapFatalWithoutDescription(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, capability.DefaultNames())
	cfg := staticConfig(t, f)
	cfg.Parameters = nil

	s := NewServiceWithConfig(cfg)
	err := s.Bootstrap(context.Background())
	require.ErrorIs(t, err, ErrFatalStartup)
	require.ErrorIs(t, err, ErrSceneNotConfigured)
	assert.Zero(t, f.built.Load())
	require.NoError(t, s.Close())
}

func TestBootstrapMissingSemanticFileIsNotFatal(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, capability.DefaultNames())
	cfg := staticConfig(t, f)
	cfg.SemanticFile = filepath.Join(t.TempDir(), "missing.srdf")
	cfg.AllowTrajectoryExecution = false

	s := NewServiceWithConfig(cfg)
	require.NoError(t, s.Bootstrap(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	got, ok := s.Store().Get(ParamDescriptionSemantic)
	require.True(t, ok)
	assert.Empty(t, got)
	assert.Nil(t, s.Context().Execution())
}

func TestBootstrapRejectsBadConfig(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, capability.DefaultNames())

	cfg := staticConfig(t, f)
	cfg.ParamSource = "carrier-pigeon"
	require.ErrorIs(t, NewServiceWithConfig(cfg).Bootstrap(context.Background()), ErrInvalidParamSource)

	cfg = staticConfig(t, f)
	cfg.HeartbeatInterval = 0
	require.ErrorIs(t, NewServiceWithConfig(cfg).Bootstrap(context.Background()), ErrInvalidHeartbeatInterval)
}

func TestServeRunsUntilCancelledThenCloses(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, capability.DefaultNames())
	s := NewServiceWithConfig(staticConfig(t, f))
	require.ErrorIs(t, s.Serve(context.Background()), ErrNotBootstrapped)
	require.NoError(t, s.Bootstrap(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	time.Sleep(40 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}

	require.NoError(t, s.Close())
	assert.EqualValues(t, len(capability.DefaultNames()), f.released.Load())
	assert.Equal(t, StatusNotReady, s.Status())
	require.NoError(t, s.Close())
}

func TestBootstrapLogMessagesAreSingleLine(t *testing.T) {
	logs := testlog.Capture(t)
	f := newFixture(t, capability.DefaultNames())
	s := NewServiceWithConfig(staticConfig(t, f))
	require.NoError(t, s.Bootstrap(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	var sawReady bool
	sc := bufio.NewScanner(strings.NewReader(logs.String()))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var line struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line), sc.Text())
		if line.Message == "You can start planning now!" {
			sawReady = true
			continue
		}
		if strings.HasPrefix(line.Message, "group.Service") {
			assert.NotContains(t, line.Message, "\n", line.Message)
		}
	}
	assert.True(t, sawReady, "expected a standalone ready line")
}
