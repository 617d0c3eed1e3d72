package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/agentcore/internal/event"
	"github.com/dshills/agentcore/internal/event/events"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/status"
)

// Policy decides what happens when a task that is already running is run
// again.
type Policy string

const (
	// PolicySerialize makes the second run wait for the first to finish.
	PolicySerialize Policy = "serialize"
	// PolicyReject fails the second run with ErrTaskBusy.
	PolicyReject Policy = "reject"
)

// ParsePolicy converts a string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicySerialize:
		return PolicySerialize, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown concurrency policy %q", s)
	}
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	// DefaultTimeout applies when RunOptions.Timeout is zero.
	DefaultTimeout time.Duration

	// StepDelay and StepJitter shape the wait between steps:
	// StepDelay + rand*StepJitter. Both zero disables the wait.
	StepDelay  time.Duration
	StepJitter time.Duration

	Policy Policy
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultTimeout: 30 * time.Second,
		StepDelay:      200 * time.Millisecond,
		StepJitter:     800 * time.Millisecond,
		Policy:         PolicySerialize,
	}
}

// ExecutorOption configures optional collaborators.
type ExecutorOption func(*Executor)

// WithClock sets the time source.
func WithClock(c Clock) ExecutorOption {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRandom sets the jitter source.
func WithRandom(r RandomSource) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.random = r
		}
	}
}

// WithBus publishes status, progress and log events on bus.
func WithBus(bus event.Bus) ExecutorOption {
	return func(e *Executor) {
		e.bus = bus
	}
}

// WithStepFunc sets the work performed for every step.
func WithStepFunc(fn StepFunc) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.step = fn
		}
	}
}

// WithKindStepFunc sets the work performed for steps of one kind, taking
// precedence over WithStepFunc.
func WithKindStepFunc(kind Kind, fn StepFunc) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.kindStep[kind] = fn
		}
	}
}

// run is the handle of an active run.
type run struct {
	id        string
	task      Task
	startedAt time.Time
	cancel    context.CancelCauseFunc
}

// Executor runs tasks and owns their status.
type Executor struct {
	config   ExecutorConfig
	registry Registry
	statuses *status.Table
	logs     *logstore.Store
	bus      event.Bus
	clock    Clock
	random   RandomSource

	step     StepFunc
	kindStep map[Kind]StepFunc

	mu      sync.Mutex
	active  map[string]*run
	slots   map[string]chan struct{}
	results map[string]Result

	wg sync.WaitGroup
}

// NewExecutor creates an executor. registry resolves task ids, statuses is
// written only by the executor, and logs receives every run's entries.
func NewExecutor(config ExecutorConfig, registry Registry, statuses *status.Table, logs *logstore.Store, opts ...ExecutorOption) *Executor {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultExecutorConfig().DefaultTimeout
	}
	if config.Policy == "" {
		config.Policy = PolicySerialize
	}

	e := &Executor{
		config:   config,
		registry: registry,
		statuses: statuses,
		logs:     logs,
		clock:    SystemClock{},
		random:   DefaultRandom,
		step:     noopStep,
		kindStep: make(map[Kind]StepFunc),
		active:   make(map[string]*run),
		slots:    make(map[string]chan struct{}),
		results:  make(map[string]Result),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Statuses returns the read-only status view.
func (e *Executor) Statuses() status.Reader {
	return e.statuses
}

// Run executes task and blocks until it finishes. Only a *ValidationError
// is returned as an error; every runtime failure, cancellation and timeout
// is reported through the Result.
func (e *Executor) Run(ctx context.Context, task Task, input string, opts RunOptions) (Result, error) {
	if task.ID == "" {
		return Result{}, &ValidationError{TaskID: task.ID, Err: ErrUnknownTask}
	}
	if _, ok := e.registry.Lookup(task.ID); !ok {
		return Result{}, &ValidationError{TaskID: task.ID, Err: ErrUnknownTask}
	}

	e.wg.Add(1)
	defer e.wg.Done()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.config.DefaultTimeout
	}

	// The deadline covers the wait for a previous run of the same task.
	deadlineCtx, cancelDeadline := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer cancelDeadline()

	release, err := e.acquire(deadlineCtx, task.ID)
	if err != nil {
		if errors.Is(err, ErrTaskBusy) {
			return Result{}, &ValidationError{TaskID: task.ID, Err: err}
		}
		return Result{Error: stopCause(deadlineCtx).Error()}, nil
	}
	defer release()

	runCtx, cancel := context.WithCancelCause(deadlineCtx)
	defer cancel(nil)

	r := &run{
		id:        uuid.New().String(),
		task:      task,
		startedAt: e.clock.Now(),
		cancel:    cancel,
	}

	e.mu.Lock()
	e.active[task.ID] = r
	e.mu.Unlock()

	e.setStatus(task.ID, status.Running)
	e.log(logstore.LevelInfo, fmt.Sprintf("Agent %s started", task.DisplayName()), task.ID, nil, opts.OnLog)

	result, failure := e.execute(runCtx, r, input, opts)
	return e.finish(runCtx, r, result, failure, opts), nil
}

// acquire claims the per-task slot according to the policy.
func (e *Executor) acquire(ctx context.Context, taskID string) (release func(), err error) {
	e.mu.Lock()
	slot, ok := e.slots[taskID]
	if !ok {
		slot = make(chan struct{}, 1)
		e.slots[taskID] = slot
	}
	e.mu.Unlock()

	release = func() { <-slot }

	if e.config.Policy == PolicyReject {
		select {
		case slot <- struct{}{}:
			return release, nil
		default:
			return nil, ErrTaskBusy
		}
	}

	select {
	case slot <- struct{}{}:
		return release, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// execute walks the steps. It returns a successful Result or one whose
// Error describes why the run stopped, plus the step failure if any.
func (e *Executor) execute(ctx context.Context, r *run, input string, opts RunOptions) (Result, *ExecutionError) {
	steps := Steps(r.task.Kind)
	work := e.stepFunc(r.task.Kind)

	for i := 0; ; i++ {
		if cause := stopCause(ctx); cause != nil {
			return Result{Error: cause.Error()}, nil
		}
		if i == len(steps) {
			break
		}

		sc := StepContext{
			Task:   r.task,
			RunID:  r.id,
			Index:  i,
			Total:  len(steps),
			Label:  steps[i],
			Input:  input,
			Params: opts.Params,
		}
		// A step in flight runs to completion; cancellation is only observed
		// between steps.
		if err := runStep(context.WithoutCancel(ctx), work, sc); err != nil {
			return Result{Error: err.Err.Error()}, err
		}

		progress := progressAt(i, len(steps))
		e.callProgress(opts.OnProgress, progress, steps[i])
		e.publish(events.Progress{TaskID: r.task.ID, RunID: r.id, Value: progress, Label: steps[i]})
		e.log(logstore.LevelInfo, steps[i], r.task.ID, nil, opts.OnLog)

		if i < len(steps)-1 {
			e.wait(ctx)
		}
	}

	return Result{
		Success: true,
		Output:  Render(r.task.Kind, input) + footer(r.task, e.clock.Now()),
		Metadata: map[string]any{
			"stepsCompleted": len(steps),
			"kind":           string(r.task.Kind),
			"params":         opts.Params,
			"runId":          r.id,
		},
	}, nil
}

// finish retires the run, records its Result and moves the task to its
// terminal status.
func (e *Executor) finish(ctx context.Context, r *run, result Result, failure *ExecutionError, opts RunOptions) Result {
	e.mu.Lock()
	delete(e.active, r.task.ID)
	e.mu.Unlock()

	// A Cancel that landed after the last step still wins: once the run is
	// out of the active map no further Cancel can reach it.
	if result.Success && errors.Is(context.Cause(ctx), ErrAborted) {
		result = Result{Error: ErrAborted.Error()}
	}
	result.ExecutionTime = e.clock.Now().Sub(r.startedAt)

	name := r.task.DisplayName()

	switch {
	case failure != nil:
		e.setStatus(r.task.ID, status.Error)
		e.log(logstore.LevelError, fmt.Sprintf("Agent %s failed", name), r.task.ID, map[string]any{
			"error":     result.Error,
			"step":      failure.Step,
			"stepIndex": failure.Index,
			"panicked":  failure.Panicked,
		}, opts.OnLog)

	case result.Success:
		e.setStatus(r.task.ID, status.Completed)
		e.log(logstore.LevelSuccess, fmt.Sprintf("Agent %s completed", name), r.task.ID, map[string]any{
			"executionTimeMs": result.ExecutionTime.Milliseconds(),
			"output":          result.Output,
		}, opts.OnLog)

	case errors.Is(stopCause(ctx), ErrTimeout):
		e.setStatus(r.task.ID, status.Idle)
		e.log(logstore.LevelWarn, fmt.Sprintf("Agent %s timed out", name), r.task.ID, map[string]any{
			"executionTimeMs": result.ExecutionTime.Milliseconds(),
		}, opts.OnLog)

	default:
		e.setStatus(r.task.ID, status.Idle)
		e.log(logstore.LevelWarn, fmt.Sprintf("Agent %s aborted", name), r.task.ID, nil, opts.OnLog)
	}

	e.mu.Lock()
	e.results[r.task.ID] = result
	e.mu.Unlock()
	return result
}

func (e *Executor) stepFunc(kind Kind) StepFunc {
	if fn, ok := e.kindStep[kind]; ok {
		return fn
	}
	return e.step
}

// runStep runs one unit of work, converting a returned error or a panic
// into an *ExecutionError.
func runStep(ctx context.Context, fn StepFunc, sc StepContext) (err *ExecutionError) {
	defer func() {
		if v := recover(); v != nil {
			err = &ExecutionError{
				TaskID:   sc.Task.ID,
				Step:     sc.Label,
				Index:    sc.Index,
				Err:      fmt.Errorf("panic: %v", v),
				Panicked: true,
				Stack:    string(debug.Stack()),
			}
		}
	}()

	if err := fn(ctx, sc); err != nil {
		var ee *ExecutionError
		if errors.As(err, &ee) {
			return ee
		}
		return &ExecutionError{TaskID: sc.Task.ID, Step: sc.Label, Index: sc.Index, Err: err}
	}
	return nil
}

// stopCause returns ErrAborted or ErrTimeout once ctx is done.
func stopCause(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrTimeout) || errors.Is(cause, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrAborted
}

func progressAt(i, n int) int {
	return (200*(i+1) + n) / (2 * n)
}

// wait sleeps for the jittered inter-step delay or until ctx is done.
func (e *Executor) wait(ctx context.Context) {
	d := e.config.StepDelay + time.Duration(e.random.Float64()*float64(e.config.StepJitter))
	if d <= 0 {
		return
	}
	select {
	case <-e.clock.After(d):
	case <-ctx.Done():
	}
}

// Cancel stops the active run of taskID and sets its status to idle. It is
// a no-op when the task is not running.
func (e *Executor) Cancel(taskID string) {
	e.mu.Lock()
	r, ok := e.active[taskID]
	if ok {
		r.cancel(ErrAborted)
	}
	e.mu.Unlock()

	if ok {
		e.setStatus(taskID, status.Idle)
	}
}

// CancelAll cancels every active run and returns how many there were.
func (e *Executor) CancelAll() int {
	ids := e.Active()
	for _, id := range ids {
		e.Cancel(id)
	}
	return len(ids)
}

// Wait blocks until every in-flight Run has returned or ctx is done.
func (e *Executor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the ids of running tasks, sorted.
func (e *Executor) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LastResult returns the Result of the most recent finished run of taskID.
func (e *Executor) LastResult(taskID string) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.results[taskID]
	return r, ok
}

func (e *Executor) setStatus(taskID string, s status.Status) {
	prev, changed := e.statuses.Set(taskID, s)
	if changed {
		e.publish(events.StatusChanged{TaskID: taskID, Previous: prev, Status: s})
	}
}

func (e *Executor) publish(ev events.Event) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(context.Background(), ev)
}

func (e *Executor) log(level logstore.Level, msg, taskID string, details map[string]any, onLog func(logstore.Entry)) {
	entry, ok := e.logs.Append(level, msg, logstore.SourceAgent, details, taskID)
	if !ok || onLog == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			e.logs.Error(fmt.Sprintf("log callback panicked: %v", v), logstore.SourceAgent, nil)
		}
	}()
	onLog(entry)
}

func (e *Executor) callProgress(fn func(int, string), progress int, label string) {
	if fn == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			e.logs.Error(fmt.Sprintf("progress callback panicked: %v", v), logstore.SourceAgent, nil)
		}
	}()
	fn(progress, label)
}
