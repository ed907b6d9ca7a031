package cost

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollupops/disputedash/events"
	"github.com/rollupops/disputedash/log"
)

func newTestEstimator() *Estimator {
	return NewEstimator(log.WithFields("module", "cost-test"), Config{})
}

func collectEmitted(e *Estimator, output string) []events.Event {
	ch := make(chan events.Event, eventBuffer)
	e.emitOutput(output, ch)
	close(ch)

	collected := []events.Event{}
	for ev := range ch {
		collected = append(collected, ev)
	}
	return collected
}

func TestEmitOutputStreamsEveryLine(t *testing.T) {
	collected := collectEmitted(newTestEstimator(), sampleOutput)

	lines := strings.Split(sampleOutput, "\n")
	// log + one debug per output line + parsed + complete
	require.Len(t, collected, len(lines)+3)

	logData, ok := collected[0].Data.(events.ProgressData)
	require.True(t, ok)
	require.Equal(t, "log", logData.Step)
	require.Equal(t, fmt.Sprintf("Process finished. Output lines: %d", len(lines)), logData.Message)

	for i, line := range lines {
		data, ok := collected[1+i].Data.(events.ProgressData)
		require.True(t, ok)
		require.Equal(t, "debug", data.Step)
		require.Equal(t, fmt.Sprintf("[%d] %s", i, line), data.Message)
	}

	terminal := collected[len(collected)-1]
	require.Equal(t, events.Complete, terminal.Name)
	estimate, ok := terminal.Data.(*Estimate)
	require.True(t, ok)
	require.Equal(t, uint64(612_345_678), estimate.TotalPgu)
}

func TestEmitOutputParseFailure(t *testing.T) {
	collected := collectEmitted(newTestEstimator(), "error: chain not synced\n")

	// the raw lines still reach the consumer before the failure
	data, ok := collected[1].Data.(events.ProgressData)
	require.True(t, ok)
	require.Equal(t, "debug", data.Step)
	require.Equal(t, "[0] error: chain not synced", data.Message)

	terminal := collected[len(collected)-1]
	require.Equal(t, events.Error, terminal.Name)
	require.Equal(t, "Failed to parse. Check debug output above.",
		terminal.Data.(events.ErrorData).Message)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, filepath.Join(home, "Downloads/op-succinct"),
		expandHome("~/Downloads/op-succinct"))
	require.Equal(t, home, expandHome("~"))
	require.Equal(t, "/opt/op-succinct", expandHome("/opt/op-succinct"))
	require.Equal(t, "relative/path", expandHome("relative/path"))
}
