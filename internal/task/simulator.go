package task

import (
	"context"
	"fmt"
	"time"
)

// simulationPhases is the number of fixed progress steps a simulated run
// goes through before completing; each phase advances progress by an equal
// share up to 100.
const simulationPhases = 4

// Update is one progress observation produced by an Executor. The final
// update carries Done=true together with the synthetic result payload.
type Update struct {
	Progress int
	Result   any
	Done     bool
}

// Executor produces a time-phased progress sequence for a command without
// any external dependency. It is used exclusively as a fallback when remote
// submission fails, so the rest of the system stays exercisable without a
// live backend. Implementations must close the returned channel when the
// sequence ends or the context is cancelled.
type Executor interface {
	Execute(ctx context.Context, command string) <-chan Update
}

// SimulatedExecutor is the default Executor: four phases of 25% progress at
// a fixed interval, terminating with a synthetic result derived from the
// command text.
type SimulatedExecutor struct {
	interval time.Duration
}

// NewSimulatedExecutor creates a SimulatedExecutor ticking at the given
// interval.
func NewSimulatedExecutor(interval time.Duration) *SimulatedExecutor {
	return &SimulatedExecutor{interval: interval}
}

// Execute implements Executor.
func (e *SimulatedExecutor) Execute(ctx context.Context, command string) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for phase := 1; phase <= simulationPhases; phase++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			update := Update{Progress: phase * (100 / simulationPhases)}
			if phase == simulationPhases {
				update.Progress = 100
				update.Done = true
				update.Result = syntheticResult(command)
			}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates
}

// syntheticResult builds the terminal payload for a simulated run: exactly
// two items derived from the command text, marked as simulated so exports
// and displays can tell them apart from real executor output.
func syntheticResult(command string) map[string]any {
	return map[string]any{
		"simulated": true,
		"items": []any{
			map[string]any{
				"title":   "Simulated result 1",
				"summary": fmt.Sprintf("First synthetic outcome for %q", command),
			},
			map[string]any{
				"title":   "Simulated result 2",
				"summary": fmt.Sprintf("Second synthetic outcome for %q", command),
			},
		},
	}
}
