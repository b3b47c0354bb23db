// Package batch implements the background aggregation scheduler: a registry
// of named tasks, one goroutine loop per task with normal/backoff cadence,
// and a synchronous on-demand invocation path sharing the same run funcs.
package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"skillpulse/internal/domain"
)

// RunFunc executes one aggregation pass. A non-nil error puts the scheduled
// loop on its backoff interval; the result is what callers of RunNow see.
type RunFunc func(ctx context.Context) (domain.TaskResult, error)

// Task describes one registered batch task. Immutable after Register.
type Task struct {
	// Name keys the registry and the status map.
	Name string
	// Alias is the short name accepted by RunNow (the control surface's
	// batch_type), e.g. "engagement" for "engagement_metrics".
	Alias    string
	Interval time.Duration
	Backoff  time.Duration
	Run      RunFunc
}

type TaskStatus struct {
	Alive     bool       `json:"alive"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type Status struct {
	Running bool                  `json:"running"`
	Tasks   map[string]TaskStatus `json:"tasks"`
}

type taskEntry struct {
	Task

	mu      sync.Mutex
	alive   int // counter: an abandoned loop may still be draining when a new one starts
	lastRun time.Time
	lastErr string

	// done is the current generation's exit signal, guarded by Processor.mu.
	// Each loop closes the channel it was launched with, never this field.
	done chan struct{}
}

func (e *taskEntry) setAlive(delta int) {
	e.mu.Lock()
	e.alive += delta
	e.mu.Unlock()
}

func (e *taskEntry) record(at time.Time, err error) {
	e.mu.Lock()
	e.lastRun = at
	if err != nil {
		e.lastErr = err.Error()
	} else {
		e.lastErr = ""
	}
	e.mu.Unlock()
}

func (e *taskEntry) status() TaskStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := TaskStatus{Alive: e.alive > 0, LastError: e.lastErr}
	if !e.lastRun.IsZero() {
		t := e.lastRun
		st.LastRun = &t
	}
	return st
}

// Processor owns the task registry and the running/stopped lifecycle.
type Processor struct {
	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	entries     []*taskEntry
	byName      map[string]*taskEntry
	byAlias     map[string]*taskEntry
	joinTimeout time.Duration
}

func NewProcessor(joinTimeout time.Duration) *Processor {
	if joinTimeout <= 0 {
		joinTimeout = 10 * time.Second
	}
	return &Processor{
		byName:      map[string]*taskEntry{},
		byAlias:     map[string]*taskEntry{},
		joinTimeout: joinTimeout,
	}
}

// Register adds a task to the registry. Registration happens at wiring time,
// before Start.
func (p *Processor) Register(t Task) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("task needs a name and a run func")
	}
	if t.Interval <= 0 || t.Backoff <= 0 {
		return fmt.Errorf("task %s: interval and backoff must be > 0", t.Name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byName[t.Name]; ok {
		return fmt.Errorf("task %s already registered", t.Name)
	}
	e := &taskEntry{Task: t}
	p.entries = append(p.entries, e)
	p.byName[t.Name] = e
	if t.Alias != "" {
		p.byAlias[t.Alias] = e
	}
	return nil
}

// Start launches one loop per registered task. Calling Start while running
// is a logged no-op. The done channels are created and the loops launched
// under the lock so a concurrent Stop always waits on this generation's
// channels.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		log.Warn().Msg("batch processing already running")
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	for _, e := range p.entries {
		e.done = make(chan struct{})
		go p.loop(e, p.stopCh, e.done)
	}
	log.Info().Int("tasks", len(p.entries)).Msg("batch processing started")
}

// Stop flips the running flag and waits up to the join timeout per task.
// Loops check the flag between iterations only, so an in-flight aggregation
// pass finishes (or is abandoned, never interrupted).
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		log.Warn().Msg("batch processing not running")
		return
	}
	p.running = false
	close(p.stopCh)
	entries := p.entries
	dones := make([]chan struct{}, len(entries))
	for i, e := range entries {
		dones[i] = e.done
	}
	p.mu.Unlock()

	log.Info().Msg("stopping batch processing")
	for i, e := range entries {
		select {
		case <-dones[i]:
		case <-time.After(p.joinTimeout):
			log.Warn().Str("task", e.Name).Dur("timeout", p.joinTimeout).Msg("task did not stop in time; abandoning")
		}
	}
	log.Info().Msg("batch processing stopped")
}

func (p *Processor) Status() Status {
	p.mu.Lock()
	running := p.running
	entries := p.entries
	p.mu.Unlock()

	st := Status{Running: running, Tasks: make(map[string]TaskStatus, len(entries))}
	for _, e := range entries {
		st.Tasks[e.Name] = e.status()
	}
	return st
}

// RunNow invokes a task's run func synchronously on the caller's goroutine,
// outside its scheduled loop. It accepts the task's alias or full name;
// unknown names yield a failure result, never an error.
func (p *Processor) RunNow(ctx context.Context, name string) domain.TaskResult {
	p.mu.Lock()
	e, ok := p.byAlias[name]
	if !ok {
		e, ok = p.byName[name]
	}
	p.mu.Unlock()
	if !ok {
		return domain.TaskResult{Success: false, Message: fmt.Sprintf("unknown batch type: %s", name)}
	}

	res, err := runSafe(ctx, e.Task)
	if err != nil {
		return domain.TaskResult{Success: false, Message: fmt.Sprintf("%s failed: %v", e.Name, err)}
	}
	return res
}

func (p *Processor) loop(e *taskEntry, stopCh <-chan struct{}, done chan struct{}) {
	defer close(done)
	e.setAlive(1)
	defer e.setAlive(-1)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		_, err := runSafe(context.Background(), e.Task)
		e.record(time.Now(), err)

		delay := e.Interval
		if err != nil {
			delay = e.Backoff
			log.Error().Err(err).Str("task", e.Name).Dur("backoff", delay).Msg("task iteration failed")
		}

		timer := time.NewTimer(delay)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runSafe keeps a panicking task from taking down its loop or siblings.
func runSafe(ctx context.Context, t Task) (res domain.TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", t.Name).Any("panic", r).Str("stack", string(debug.Stack())).Msg("panic in batch task")
			res = domain.TaskResult{}
			err = fmt.Errorf("panic in task %s: %v", t.Name, r)
		}
	}()
	return t.Run(ctx)
}
