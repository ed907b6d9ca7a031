package cost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rollupops/disputedash/config/types"
	"github.com/rollupops/disputedash/events"
	"github.com/rollupops/disputedash/log"
)

const eventBuffer = 1024

// Config represents the configuration of the cost estimator runner.
type Config struct {
	// OpSuccinctPath is the checkout of op-succinct containing the
	// cost-estimator just recipe. "~" expands to the home directory.
	OpSuccinctPath string `mapstructure:"OpSuccinctPath"`
	// Timeout bounds a single estimator run.
	Timeout types.Duration `mapstructure:"Timeout"`
}

// Estimator runs the op-succinct cost-estimator CLI and parses its output.
type Estimator struct {
	logger *log.Logger
	cfg    Config
}

// NewEstimator returns an Estimator.
func NewEstimator(logger *log.Logger, cfg Config) *Estimator {
	return &Estimator{logger: logger, cfg: cfg}
}

// Run estimates the proving cost of blocks [blockStart, blockEnd] and returns
// the progress event stream. The external process may take several minutes;
// the terminal event carries either the parsed Estimate or an error message.
func (e *Estimator) Run(ctx context.Context, blockStart, blockEnd uint64) <-chan events.Event {
	ch := make(chan events.Event, eventBuffer)
	go func() {
		defer close(ch)
		e.run(ctx, blockStart, blockEnd, ch)
	}()
	return ch
}

func (e *Estimator) run(ctx context.Context, blockStart, blockEnd uint64, ch chan events.Event) {
	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step:    "started",
		Message: fmt.Sprintf("Running cost-estimator for blocks %d -> %d...", blockStart, blockEnd),
	}))
	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step:    "info",
		Message: "This may take several minutes. Please wait...",
	}))

	if e.cfg.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout.Duration)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "just", "cost-estimator",
		"--start", strconv.FormatUint(blockStart, 10),
		"--end", strconv.FormatUint(blockEnd, 10),
	)
	cmd.Dir = expandHome(e.cfg.OpSuccinctPath)

	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		events.Emit(ch, events.NewError(
			fmt.Sprintf("cost-estimator timed out (%s limit)", e.cfg.Timeout.Duration)))
		return
	}
	if err != nil && len(output) == 0 {
		if errors.Is(err, exec.ErrNotFound) {
			events.Emit(ch, events.NewError("just command not found. Is OP Succinct installed?"))
			return
		}
		events.Emit(ch, events.NewError(fmt.Sprintf("cost-estimator failed: %v", err)))
		return
	}

	e.emitOutput(string(output), ch)
}

// emitOutput forwards the raw process output to the consumer line by line and
// terminates the stream with the parsed Estimate or an error.
func (e *Estimator) emitOutput(output string, ch chan events.Event) {
	e.logger.Debugf("cost-estimator output:\n%s", output)
	lines := strings.Split(output, "\n")
	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step:    "log",
		Message: fmt.Sprintf("Process finished. Output lines: %d", len(lines)),
	}))
	for i, line := range lines {
		events.Emit(ch, events.NewProgress(events.ProgressData{
			Step:    "debug",
			Message: fmt.Sprintf("[%d] %s", i, line),
		}))
	}

	estimate, err := ParseEstimatorOutput(output)
	if err != nil {
		events.Emit(ch, events.NewError("Failed to parse. Check debug output above."))
		return
	}

	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step: "parsed",
		Message: fmt.Sprintf("Parsed: PGU=%d, Blocks=%d",
			estimate.TotalPgu, estimate.NumBlocks),
	}))
	events.Emit(ch, events.NewComplete(estimate))
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
