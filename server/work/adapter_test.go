package work

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/safecall/server/logger"
	"github.com/stretchr/testify/assert"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) WriteString(s string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.WriteString(s)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunOnceIn(t *testing.T) {
	workerPool := NewWorkerAdapter("UTC", 0, logger.NewNop())
	outputBuffer := &safeBuffer{}

	workerPool.Start()
	defer workerPool.Stop()

	err := workerPool.runOnceIn(1, func() { outputBuffer.WriteString("Hello") })
	assert.Nil(t, err)
	assert.Empty(t, outputBuffer.String(), "Expected outputBuffer to be empty")

	assert.Eventually(t, func() bool {
		return outputBuffer.String() == "Hello"
	}, 4*time.Second, 50*time.Millisecond, "Expected task to write to outputBuffer")

	// Task should only run once
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, "Hello", outputBuffer.String())
}

func TestRunOnceInRejectsNonPositiveDelay(t *testing.T) {
	workerPool := NewWorkerAdapter("UTC", 0, logger.NewNop())
	assert.NotNil(t, workerPool.runOnceIn(0, func() {}))
}

func TestPerformIgnoresDuplicateUniqueJob(t *testing.T) {
	workerPool := NewWorkerAdapter("UTC", 0, logger.NewNop())

	job := JobParams{Name: "report_stats", Handler: "report_stats", Unique: true}
	assert.Nil(t, workerPool.Perform(job))
	assert.Nil(t, workerPool.Perform(job))
	assert.Equal(t, 1, workerPool.Stats().Enqueued)
}

func TestPeriodicallyPerform(t *testing.T) {
	workerPool := NewWorkerAdapter("America/Toronto", 0, logger.NewNop())

	job := JobParams{Name: "report_stats", Handler: "report_stats", Unique: true}
	assert.Nil(t, workerPool.PeriodicallyPerform("*/5 * * * *", job))
	assert.NotNil(t, workerPool.PeriodicallyPerform("*/5 * * * *", job), "Tags are unique")
	assert.NotNil(t, workerPool.PeriodicallyPerform("not a cron", JobParams{Name: "bad", Handler: "bad"}))
}

func TestFailedJobIsRetriedAfterDelay(t *testing.T) {
	workerPool := NewWorkerAdapter("UTC", 1, logger.NewNop())

	mu := sync.Mutex{}
	attempts := []time.Time{}
	workerPool.Register("flaky", func(m map[string]interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, time.Now())
		if len(attempts) == 1 {
			return assert.AnError
		}
		return nil
	})

	workerPool.Start()
	defer workerPool.Stop()

	assert.Nil(t, workerPool.Perform(JobParams{Name: "flaky", Handler: "flaky"}))
	assert.Eventually(t, func() bool {
		return workerPool.Stats().Successful == 1
	}, 4*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, attempts, 2)
	assert.GreaterOrEqual(t, attempts[1].Sub(attempts[0]), 900*time.Millisecond)
}
