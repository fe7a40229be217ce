package service

import (
	"io"
	"os"
	"sync"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/schollz/progressbar/v3"
)

const progressBarWidth = 18

// IsInteractiveEnvironment reports whether stderr is a terminal outside CI
func IsInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// NewProgressManager returns a bar on stderr when enabled and attached to a
// terminal, otherwise a no-op manager
func NewProgressManager(enabled bool) domain.ProgressManager {
	if enabled && IsInteractiveEnvironment() {
		return NewBarProgressManager(os.Stderr)
	}
	return &NoOpProgressManager{}
}

// BarProgressManager draws one progress bar per task
type BarProgressManager struct {
	mu    sync.Mutex
	out   io.Writer
	tasks []*barTask
}

// NewBarProgressManager creates a manager drawing to out
func NewBarProgressManager(out io.Writer) *BarProgressManager {
	return &BarProgressManager{out: out}
}

func (pm *BarProgressManager) StartTask(description string, total int) domain.TaskProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(pm.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	task := &barTask{bar: bar, label: description}
	pm.mu.Lock()
	pm.tasks = append(pm.tasks, task)
	pm.mu.Unlock()
	return task
}

func (pm *BarProgressManager) IsInteractive() bool { return true }

// Close finishes any bar still running
func (pm *BarProgressManager) Close() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, task := range pm.tasks {
		task.Complete()
	}
	pm.tasks = nil
}

// barTask keeps the task label in front of the current item
type barTask struct {
	bar   *progressbar.ProgressBar
	label string
	done  sync.Once
}

func (t *barTask) Increment(n int) { _ = t.bar.Add(n) }

func (t *barTask) Describe(item string) {
	if item == "" {
		t.bar.Describe(t.label)
		return
	}
	t.bar.Describe(t.label + ": " + item)
}

func (t *barTask) Complete() {
	t.done.Do(func() {
		t.bar.Describe(t.label)
		_ = t.bar.Finish()
	})
}

// NoOpProgressManager discards all progress
type NoOpProgressManager struct{}

func (pm *NoOpProgressManager) StartTask(string, int) domain.TaskProgress {
	return &NoOpTaskProgress{}
}

func (pm *NoOpProgressManager) IsInteractive() bool { return false }

func (pm *NoOpProgressManager) Close() {}

// NoOpTaskProgress discards all updates
type NoOpTaskProgress struct{}

func (tp *NoOpTaskProgress) Increment(int) {}

func (tp *NoOpTaskProgress) Describe(string) {}

func (tp *NoOpTaskProgress) Complete() {}
