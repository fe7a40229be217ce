package service

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/ludo-technologies/connscan/domain"
	"golang.org/x/sync/errgroup"
)

// TaskError represents a single task failure
type TaskError struct {
	TaskName string
	Err      error

	order int
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects all task failures in task order
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tasks failed:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap returns the first error for errors.Is/As compatibility
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// ParallelExecutorImpl implements domain.ParallelExecutor on a bounded errgroup
type ParallelExecutorImpl struct {
	maxConcurrency int
	progress       domain.ProgressManager
	mu             sync.RWMutex
}

// NewParallelExecutor creates a new parallel executor with one worker per CPU
func NewParallelExecutor() *ParallelExecutorImpl {
	return &ParallelExecutorImpl{maxConcurrency: runtime.NumCPU()}
}

// NewParallelExecutorWithProgress creates a parallel executor reporting to pm.
// Zero workers means one per CPU.
func NewParallelExecutorWithProgress(workers int, pm domain.ProgressManager) *ParallelExecutorImpl {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(workers)
	executor.progress = pm
	return executor
}

// Execute runs every enabled task with at most MaxConcurrency in flight.
// A failing or panicking task never stops its siblings; failures come back
// as one AggregatedError. Tasks not yet started when ctx is done are skipped
// and Execute returns ctx's error.
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	enabled := e.filterEnabledTasks(tasks)
	if len(enabled) == 0 {
		return nil
	}

	var progress domain.TaskProgress = &NoOpTaskProgress{}
	if e.progress != nil {
		progress = e.progress.StartTask("Analyzing files", len(enabled))
	}
	defer progress.Complete()

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []TaskError
	)
	g.SetLimit(e.MaxConcurrency())

	for i, task := range enabled {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			progress.Describe(filepath.Base(task.Name()))
			if err := runTask(ctx, task); err != nil {
				mu.Lock()
				failed = append(failed, TaskError{TaskName: task.Name(), Err: err, order: i})
				mu.Unlock()
			}
			progress.Increment(1)
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		sort.Slice(failed, func(a, b int) bool { return failed[a].order < failed[b].order })
		return &AggregatedError{Errors: failed}
	}
	return ctx.Err()
}

// runTask executes one task, turning a panic into an error
func runTask(ctx context.Context, task domain.ExecutableTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = task.Execute(ctx)
	return err
}

// SetMaxConcurrency sets the maximum number of concurrent tasks.
// Values below one are ignored.
func (e *ParallelExecutorImpl) SetMaxConcurrency(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if max > 0 {
		e.maxConcurrency = max
	}
}

// MaxConcurrency returns the configured worker count
func (e *ParallelExecutorImpl) MaxConcurrency() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxConcurrency
}

func (e *ParallelExecutorImpl) filterEnabledTasks(tasks []domain.ExecutableTask) []domain.ExecutableTask {
	enabled := make([]domain.ExecutableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEnabled() {
			enabled = append(enabled, t)
		}
	}
	return enabled
}
