package params

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/groupctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	unavailableFor int32
	value          string
	missing        bool
	getErrs        int32

	probes atomic.Int32
	gets   atomic.Int32
}

func (f *flakySource) Available(context.Context, string) bool {
	return f.probes.Add(1) > f.unavailableFor
}

func (f *flakySource) Get(context.Context, string, string) (string, bool, error) {
	n := f.gets.Add(1)
	if n <= f.getErrs {
		return "", false, errors.New("transient read failure")
	}
	if f.missing {
		return "", false, nil
	}
	return f.value, true, nil
}

func TestFetchImmediateSuccess(t *testing.T) {
	testlog.Start(t)
	src := &flakySource{value: "<robot/>"}
	res := Fetch(context.Background(), src, Request{Peer: "robot_state_publisher", Name: "robot_description", Interval: time.Millisecond})
	require.Equal(t, StateSuccess, res.State)
	assert.True(t, res.Value.Present())
	assert.Equal(t, "<robot/>", res.Value.String())
	assert.Equal(t, 1, res.Polls)
}

func TestFetchSucceedsAfterFailedPolls(t *testing.T) {
	testlog.Start(t)
	src := &flakySource{unavailableFor: 3, value: "42"}
	res := Fetch(context.Background(), src, Request{Peer: "p", Name: "n", Interval: time.Millisecond, Kind: KindInt})
	require.Equal(t, StateSuccess, res.State)
	assert.Equal(t, 4, res.Polls)
	assert.Equal(t, int64(42), res.Value.Int())
}

func TestFetchKeepsPollingOnReadError(t *testing.T) {
	testlog.Start(t)
	src := &flakySource{value: "v", getErrs: 2}
	res := Fetch(context.Background(), src, Request{Peer: "p", Name: "n", Interval: time.Millisecond})
	require.Equal(t, StateSuccess, res.State)
	assert.Equal(t, 3, res.Polls)
	assert.Equal(t, "v", res.Value.String())
}

func TestFetchMissingParameterReturnsDefault(t *testing.T) {
	testlog.Start(t)
	src := &flakySource{missing: true}
	res := Fetch(context.Background(), src, Request{Peer: "p", Name: "n", Interval: time.Millisecond, Kind: KindBool})
	require.Equal(t, StateSuccess, res.State)
	assert.False(t, res.Value.Present())
	assert.False(t, res.Value.Bool())
	assert.Equal(t, KindBool, res.Value.Kind())
}

func TestFetchCancelledBeforeFirstTickContactsNoPeer(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &flakySource{value: "v"}
	res := Fetch(ctx, src, Request{Peer: "p", Name: "n", Interval: time.Hour})
	assert.True(t, res.Cancelled())
	assert.Equal(t, 0, res.Polls)
	assert.Equal(t, "", res.Value.String())
	assert.Equal(t, int32(0), src.probes.Load())
}

func TestFetchReturnsWithinOneIntervalOfCancellation(t *testing.T) {
	testlog.Start(t)
	const interval = 50 * time.Millisecond
	src := &flakySource{unavailableFor: 1 << 30}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		done <- Fetch(ctx, src, Request{Peer: "p", Name: "n", Interval: interval})
	}()

	time.Sleep(3 * interval)
	cancelledAt := time.Now()
	cancel()

	select {
	case res := <-done:
		assert.True(t, res.Cancelled())
		assert.GreaterOrEqual(t, res.Polls, 1)
		assert.LessOrEqual(t, time.Since(cancelledAt), interval)
	case <-time.After(2 * interval):
		t.Fatalf("fetch did not return after cancellation")
	}
}

func TestValueAccessorsDefaultOnGarbage(t *testing.T) {
	testlog.Start(t)
	v := NewValue("nope", KindFloat)
	assert.Equal(t, 0.0, v.Float())
	assert.Equal(t, int64(0), v.Int())
	assert.False(t, v.Bool())
	assert.Equal(t, 1.5, NewValue(" 1.5 ", KindFloat).Float())
	assert.True(t, NewValue("true", KindBool).Bool())
	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
}
