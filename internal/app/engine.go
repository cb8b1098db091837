package app

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/lucidlabs/arbot/internal/exchange"
	"github.com/lucidlabs/arbot/internal/executor"
	"github.com/lucidlabs/arbot/internal/stats"
)

// Status is a point-in-time snapshot of the running engine.
type Status struct {
	Running      bool
	Mode         string
	Venues       []string
	ActiveTrades int
	Uptime       time.Duration
	Metrics      stats.Metrics
}

// Engine exposes runtime state for the active mode. The executor is nil in
// monitor mode.
type Engine struct {
	mode      string
	venues    []string
	exec      *executor.Executor
	tracker   *stats.Tracker
	startedAt time.Time
	running   atomic.Bool
}

func newEngine(mode string, adapters map[string]exchange.Adapter, exec *executor.Executor, tracker *stats.Tracker) *Engine {
	venues := make([]string, 0, len(adapters))
	for name := range adapters {
		venues = append(venues, name)
	}
	sort.Strings(venues)

	e := &Engine{
		mode:      mode,
		venues:    venues,
		exec:      exec,
		tracker:   tracker,
		startedAt: time.Now().UTC(),
	}
	e.running.Store(true)
	return e
}

func (e *Engine) stop() {
	e.running.Store(false)
}

// Status returns the current engine snapshot.
func (e *Engine) Status() Status {
	st := Status{
		Running: e.running.Load(),
		Mode:    e.mode,
		Venues:  append([]string(nil), e.venues...),
		Uptime:  time.Since(e.startedAt),
		Metrics: e.tracker.Snapshot(),
	}
	if e.exec != nil {
		st.ActiveTrades = len(e.exec.ActiveTrades())
	}
	return st
}
