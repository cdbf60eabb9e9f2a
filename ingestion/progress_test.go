package ingestion

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "langgraph", 100, 10)

	tracker.Start()
	assert.True(t, tracker.started, "should be started")

	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "langgraph: 100/100", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	tracker := NewProgressTracker(nil, "x", 10, 1)
	tracker.Start()
	tracker.Increment(25)
	assert.Equal(t, 10, tracker.Current())
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 10, 1)

	tracker.Increment(5)
	tracker.Finish()

	assert.Zero(t, tracker.Current())
	assert.Zero(t, tracker.Elapsed())
	assert.Empty(t, buf.String())
}

func TestProgressTracker_FinishReportsPartialProgress(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 100, 50)

	tracker.Start()
	tracker.Increment(30)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "30/100")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
}

func TestProgressTracker_Concurrent(t *testing.T) {
	tracker := NewProgressTracker(nil, "x", 1000, 100)
	tracker.Start()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				tracker.Increment(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, tracker.Current())
}
