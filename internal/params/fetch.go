// Package params retrieves parameters from peer processes and serves this
// process's own parameters.
//
// Fetch blocks startup until the peer answers. It has no attempt limit and
// no backoff: the only way out other than success is cancellation of ctx,
// which is observed before and after every attempt and during every wait.
package params

import (
	"context"
	"time"

	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/danmuck/groupctl/internal/observability"
)

// Source reaches the parameter services of peer processes.
type Source interface {
	// Available reports whether peer's parameter service answers.
	Available(ctx context.Context, peer string) bool
	// Get reads one parameter. ok is false when the peer has no such
	// parameter.
	Get(ctx context.Context, peer, name string) (value string, ok bool, err error)
}

// Request names one remote parameter.
type Request struct {
	Peer     string
	Name     string
	Interval time.Duration
	// Timeout bounds one probe and read. Zero means DefaultAttemptTimeout.
	Timeout time.Duration
	Kind     Kind
}

type State int

const (
	StatePolling State = iota
	StateSuccess
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateCancelled:
		return "cancelled"
	default:
		return "polling"
	}
}

// Result is the terminal state of a fetch. Value is the default for
// req.Kind unless State is StateSuccess and the peer had the parameter.
type Result struct {
	State State
	Value Value
	Polls int
}

func (r Result) Cancelled() bool { return r.State == StateCancelled }

// Fetch polls src until the peer answers or ctx is cancelled.
func Fetch(ctx context.Context, src Source, req Request) Result {
	interval := req.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	res := Result{State: StatePolling, Value: Value{kind: req.Kind}}

	for res.State == StatePolling {
		if ctx.Err() != nil {
			res.State = StateCancelled
			break
		}
		res.Polls++
		raw, ok, reached := attempt(ctx, src, req)
		if ctx.Err() != nil {
			res.State = StateCancelled
			break
		}
		if reached {
			observability.RecordParamPoll(req.Peer, req.Name, "success")
			res.State = StateSuccess
			if ok {
				res.Value = NewValue(raw, req.Kind)
			} else {
				logs.Warnf("params.Fetch peer=%q param=%q missing, using default %s", req.Peer, req.Name, req.Kind)
			}
			break
		}

		observability.RecordParamPoll(req.Peer, req.Name, "unavailable")
		logs.Infof("service not available, waiting again... peer=%q param=%q poll=%d", req.Peer, req.Name, res.Polls)
		if !wait(ctx, interval) {
			res.State = StateCancelled
		}
	}

	if res.State == StateCancelled {
		observability.RecordParamPoll(req.Peer, req.Name, "cancelled")
		logs.Errorf("Interrupted while waiting for the service. Exiting. peer=%q param=%q polls=%d", req.Peer, req.Name, res.Polls)
	}
	return res
}

// attempt bounds one availability probe and read by req.Timeout, never by
// the poll interval.
func attempt(ctx context.Context, src Source, req Request) (string, bool, bool) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !src.Available(actx, req.Peer) {
		return "", false, false
	}
	raw, ok, err := src.Get(actx, req.Peer, req.Name)
	if err != nil {
		logs.Warnf("params.Fetch read failed peer=%q param=%q err=%v", req.Peer, req.Name, err)
		return "", false, false
	}
	return raw, ok, true
}

func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
