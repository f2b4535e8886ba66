package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"drone-dispatch/internal/logger"
)

const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusCancelled = "CANCELLED"
	StatusFailed    = "FAILED"
)

var ErrAlreadyRan = errors.New("supervisor already ran")

// Task is a named, cancellable unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type TaskStatus struct {
	Name  string
	State string
}

// MonitorError is a task failure that was not a cancellation.
type MonitorError struct {
	Task string
	Err  error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("monitor %s failed: %v", e.Task, e.Err)
}

func (e *MonitorError) Unwrap() error { return e.Err }

// Supervisor runs one completion task alongside any number of monitors.
// It is the only writer of its task registry.
type Supervisor struct {
	mu    sync.Mutex
	tasks []*TaskStatus
	ran   bool
}

func New() *Supervisor {
	return &Supervisor{}
}

// Run starts every task and blocks until completion returns. Only then are
// the monitors cancelled, and Run waits for all of them to stop before it
// returns. Monitors that stop because they were cancelled are not errors.
//
// If a monitor fails, the completion task is cancelled and joined, and the
// failure is returned as a *MonitorError. If ctx ends first, every task is
// stopped and joined and the context error is returned.
func (s *Supervisor) Run(ctx context.Context, completion Task, monitors ...Task) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return ErrAlreadyRan
	}
	s.ran = true
	s.mu.Unlock()

	completionCtx, cancelCompletion := context.WithCancel(ctx)
	defer cancelCompletion()
	monitorCtx, cancelMonitors := context.WithCancel(ctx)
	defer cancelMonitors()

	g, gctx := errgroup.WithContext(monitorCtx)
	for _, m := range monitors {
		st := s.register(m.Name)
		g.Go(func() error {
			return s.runMonitor(gctx, st, m)
		})
	}

	compStatus := s.register(completion.Name)
	compDone := make(chan error, 1)
	go func() {
		s.setState(compStatus, StatusRunning)
		compDone <- guard(completionCtx, completion)
	}()

	var compErr error
	select {
	case compErr = <-compDone:
	case <-gctx.Done():
		// a monitor failed or ctx ended
		cancelCompletion()
		compErr = <-compDone
	}
	s.finishCompletion(completionCtx, compStatus, compErr)

	cancelMonitors()
	monErr := g.Wait()

	switch {
	case monErr != nil:
		logger.Log.Error("supervision failed", slog.String("error", monErr.Error()))
		return monErr
	case compErr != nil && ctx.Err() != nil && errors.Is(compErr, ctx.Err()):
		logger.Log.Warn("supervision interrupted", slog.String("error", ctx.Err().Error()))
		return fmt.Errorf("supervision interrupted: %w", ctx.Err())
	case compErr != nil:
		return &MonitorError{Task: completion.Name, Err: compErr}
	}
	logger.Log.Info("supervision finished", slog.String("task", completion.Name))
	return nil
}

func (s *Supervisor) runMonitor(ctx context.Context, st *TaskStatus, t Task) error {
	s.setState(st, StatusRunning)
	err := guard(ctx, t)

	switch {
	case err == nil && ctx.Err() == nil:
		s.setState(st, StatusSucceeded)
		return nil
	case err == nil, ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, ctx.Err())):
		s.setState(st, StatusCancelled)
		return nil
	default:
		s.setState(st, StatusFailed)
		return &MonitorError{Task: t.Name, Err: err}
	}
}

func (s *Supervisor) finishCompletion(ctx context.Context, st *TaskStatus, err error) {
	switch {
	case err == nil:
		s.setState(st, StatusSucceeded)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		s.setState(st, StatusCancelled)
	default:
		s.setState(st, StatusFailed)
	}
}

// Panic safety -> convert to error so the group cancels cleanly
func guard(ctx context.Context, t Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in task %s: %v", t.Name, rec)
		}
	}()
	return t.Run(ctx)
}

func (s *Supervisor) register(name string) *TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &TaskStatus{Name: name, State: StatusPending}
	s.tasks = append(s.tasks, st)
	return st
}

func (s *Supervisor) setState(st *TaskStatus, state string) {
	s.mu.Lock()
	st.State = state
	s.mu.Unlock()
	logger.Log.Debug("task state", slog.String("task", st.Name), slog.String("state", state))
}

// Tasks returns a snapshot of every task the supervisor started, monitors
// first, then the completion task.
func (s *Supervisor) Tasks() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}
