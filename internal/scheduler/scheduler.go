// Package scheduler runs the check schedule: a single decision loop
// pops due checks from a time-ordered queue, enforces at most one
// in-flight execution per check, applies dependency gating and feeds
// results through the state machine. Probes and notifications are the
// only blocking work and run on a bounded worker pool.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fletchck/fletchck/internal/check"
	"github.com/fletchck/fletchck/internal/domain"
	"github.com/fletchck/fletchck/internal/notify"
	"github.com/fletchck/fletchck/internal/registry"
)

// HistorySink receives every recorded execution attempt, typically for
// durable storage. Sink errors are logged and otherwise ignored.
type HistorySink interface {
	Append(ctx context.Context, checkName string, rec domain.Result) error
}

// Config tunes the scheduler.
type Config struct {
	Workers     int           // bound on concurrent probe executions
	Timeout     time.Duration // default per-check execution timeout
	Grace       time.Duration // shutdown grace before aborting in-flight runs
	HistorySize int           // per-check history capacity
}

type execDone struct {
	name string
	res  check.Result
	at   time.Time
}

// Scheduler owns the run queue and all per-check runtime state.
type Scheduler struct {
	log  *zap.Logger
	cfg  Config
	sink HistorySink

	mu         sync.Mutex
	reg        *registry.Registry
	dispatcher *notify.Dispatcher
	states     map[string]*domain.RuntimeState
	queue      runQueue
	inflight   map[string]struct{}

	sem  chan struct{}
	done chan execDone
	wake chan struct{}

	execCtx    context.Context
	execCancel context.CancelFunc
	wg         sync.WaitGroup

	onTransition func(notify.Event)

	// newProber is swappable for tests.
	newProber func(*domain.CheckDefinition, check.Lookup) (check.Prober, error)
}

// New creates a scheduler with no checks loaded; call Reload before
// Run to install a configuration.
func New(log *zap.Logger, cfg Config, sink HistorySink) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 15 * time.Second
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = domain.DefaultHistorySize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		log:        log,
		cfg:        cfg,
		sink:       sink,
		states:     make(map[string]*domain.RuntimeState),
		inflight:   make(map[string]struct{}),
		sem:        make(chan struct{}, cfg.Workers),
		done:       make(chan execDone, cfg.Workers*4),
		wake:       make(chan struct{}, 1),
		execCtx:    ctx,
		execCancel: cancel,
		newProber:  check.New,
	}
}

// SetTransitionHook installs fn, invoked off the decision loop for
// every Passing/Failing transition. Must be set before Run.
func (s *Scheduler) SetTransitionHook(fn func(notify.Event)) {
	s.onTransition = fn
}

// Reload installs a validated registry and dispatcher, preserving
// runtime state for checks whose name survives, seeding new checks
// from persisted data, and discarding state for removed checks. The
// run queue is rebuilt from the new triggers.
func (s *Scheduler) Reload(reg *registry.Registry, disp *notify.Dispatcher, seed map[string]domain.StateData) {
	now := time.Now()
	s.mu.Lock()
	s.reg = reg
	s.dispatcher = disp

	states := make(map[string]*domain.RuntimeState, len(reg.CheckNames()))
	for _, name := range reg.CheckNames() {
		if st, ok := s.states[name]; ok {
			states[name] = st
		} else if data, ok := seed[name]; ok {
			states[name] = domain.StateFromData(data, s.cfg.HistorySize)
		} else {
			states[name] = domain.NewRuntimeState(s.cfg.HistorySize)
		}
	}
	s.states = states

	s.queue = s.queue[:0]
	for _, name := range reg.CheckNames() {
		def, _ := reg.Check(name)
		if def.Trigger == nil {
			continue
		}
		if at, ok := def.Trigger.NextFire(now, time.Time{}); ok {
			heap.Push(&s.queue, &entry{name: name, at: at})
			s.log.Debug("check_scheduled",
				zap.String("check", name),
				zap.Time("next", at),
			)
		}
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the decision loop until ctx is cancelled, then drains
// in-flight executions within the grace period.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler_started",
		zap.Int("workers", s.cfg.Workers),
		zap.Duration("timeout", s.cfg.Timeout),
	)
	for {
		s.mu.Lock()
		wait := time.Hour
		if len(s.queue) > 0 {
			wait = time.Until(s.queue[0].at)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.shutdown()
			return
		case <-s.wake:
			timer.Stop()
		case d := <-s.done:
			timer.Stop()
			s.finish(d)
		case <-timer.C:
			s.fireDue(time.Now())
		}
	}
}

// fireDue pops and fires every entry that is due at now.
func (s *Scheduler) fireDue(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 && !s.queue[0].at.After(now) {
		e := heap.Pop(&s.queue).(*entry)
		s.fire(e.name, now, true)
	}
}

// fire evaluates one due firing. Caller holds s.mu.
func (s *Scheduler) fire(name string, now time.Time, reschedule bool) {
	def, ok := s.reg.Check(name)
	if !ok {
		return
	}
	resched := func() {
		if reschedule && def.Trigger != nil {
			if at, ok := def.Trigger.NextFire(now, now); ok {
				heap.Push(&s.queue, &entry{name: name, at: at})
			}
		}
	}
	st := s.states[name]

	if _, busy := s.inflight[name]; busy {
		rec := domain.Result{
			Time:    now,
			Success: st.Status != domain.StatusFailing,
			Status:  st.Status,
			Message: "missed: previous run still in progress",
		}
		st.AppendHistory(rec)
		s.record(name, rec)
		s.log.Warn("check_overrun", zap.String("check", name))
		resched()
		return
	}

	for _, dep := range def.DependsOn {
		ds, ok := s.states[dep]
		if !ok || ds.Status != domain.StatusFailing {
			continue
		}
		if st.Status != domain.StatusFailing {
			st.Status = domain.StatusBlocked
		}
		rec := domain.Result{
			Time:    now,
			Success: false,
			Status:  domain.StatusBlocked,
			Message: "blocked by dependency " + dep,
		}
		st.LastResult = &rec
		st.AppendHistory(rec)
		s.record(name, rec)
		s.log.Info("check_blocked",
			zap.String("check", name),
			zap.String("dependency", dep),
		)
		resched()
		return
	}

	prober, err := s.newProber(def, s.lookup)
	if err != nil {
		s.log.Error("check_prober", zap.String("check", name), zap.Error(err))
		resched()
		return
	}
	prober = check.WithRetries(prober, def.Retries)
	timeout := time.Duration(def.Options.Int("timeout", 0)) * time.Second
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	s.inflight[name] = struct{}{}
	resched()
	s.wg.Add(1)
	go s.execute(name, prober, timeout)
}

// lookup resolves check definitions for sequence members against the
// current registry.
func (s *Scheduler) lookup(name string) (*domain.CheckDefinition, bool) {
	return s.reg.Check(name)
}

// execute runs one probe on the worker pool and reports the result
// back to the decision loop.
func (s *Scheduler) execute(name string, p check.Prober, timeout time.Duration) {
	defer s.wg.Done()
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx, cancel := context.WithTimeout(s.execCtx, timeout)
	defer cancel()
	res := p.Probe(ctx)
	if res.Success && ctx.Err() != nil {
		res = check.Result{Success: false, Message: "aborted: " + ctx.Err().Error()}
	}
	s.done <- execDone{name: name, res: res, at: time.Now()}
}

// finish applies a completed execution to the state machine and
// dispatches notifications on a qualifying transition.
func (s *Scheduler) finish(d execDone) {
	s.mu.Lock()
	delete(s.inflight, d.name)
	def, ok := s.reg.Check(d.name)
	if !ok {
		// Check was removed while running; drop the result.
		s.mu.Unlock()
		return
	}
	st := s.states[d.name]
	changed, wantNotify, rec := applyResult(def, st, d.res, d.at)
	s.record(d.name, rec)
	disp := s.dispatcher
	refs := def.ActionRefs
	s.mu.Unlock()

	s.log.Info("check_result",
		zap.String("check", d.name),
		zap.Bool("success", d.res.Success),
		zap.String("status", string(rec.Status)),
		zap.String("message", d.res.Message),
	)
	if !changed {
		return
	}
	ev := notify.Event{Check: d.name, Status: rec.Status, Time: d.at, Message: d.res.Message}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.onTransition != nil {
			s.onTransition(ev)
		}
		if wantNotify && disp != nil {
			disp.Dispatch(s.execCtx, refs, ev)
		}
	}()
}

// record forwards one history entry to the durable sink.
func (s *Scheduler) record(name string, rec domain.Result) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Append(s.execCtx, name, rec); err != nil {
		s.log.Warn("history_sink", zap.String("check", name), zap.Error(err))
	}
}

// RunNow fires the named check immediately, outside its schedule. The
// in-flight and dependency rules still apply.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg == nil {
		return errors.New("no configuration loaded")
	}
	if _, ok := s.reg.Check(name); !ok {
		return errors.New("unknown check " + name)
	}
	if _, busy := s.inflight[name]; busy {
		return errors.New("check already running: " + name)
	}
	s.fire(name, time.Now(), false)
	return nil
}

// Snapshot exports the runtime data of every check.
func (s *Scheduler) Snapshot() map[string]domain.StateData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.StateData, len(s.states))
	for name, st := range s.states {
		out[name] = st.Data()
	}
	return out
}

// CheckData returns the runtime data for one check.
func (s *Scheduler) CheckData(name string) (domain.StateData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[name]
	if !ok {
		return domain.StateData{}, false
	}
	return st.Data(), true
}

// Registry returns the current registry.
func (s *Scheduler) Registry() *registry.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg
}

// shutdown stops admitting firings, waits out the grace period for
// in-flight executions, then aborts stragglers.
func (s *Scheduler) shutdown() {
	s.log.Info("scheduler_stopping")
	grace := time.After(s.cfg.Grace)
	hard := time.After(s.cfg.Grace + 10*time.Second)
	for {
		s.mu.Lock()
		n := len(s.inflight)
		s.mu.Unlock()
		if n == 0 {
			break
		}
		select {
		case d := <-s.done:
			s.finish(d)
		case <-grace:
			s.log.Warn("shutdown_grace_expired", zap.Int("inflight", n))
			s.execCancel()
			grace = nil
		case <-hard:
			s.log.Error("shutdown_aborted", zap.Int("inflight", n))
			s.execCancel()
			return
		}
	}
	s.execCancel()
	s.wg.Wait()
	s.log.Info("scheduler_stopped")
}
