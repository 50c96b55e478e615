package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDeliversJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewQueue("test", func(_ context.Context, job Job[string]) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Payload)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job[string]{ID: p, Payload: p}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)
	q.Stop()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRetriesFailures(t *testing.T) {
	var attempts int32
	q := NewQueue("retry", func(_ context.Context, job Job[int]) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[int]{ID: "1", Payload: 1}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 }, time.Second, 5*time.Millisecond)
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job[int]{ID: "1"}))
	assert.Error(t, q.TryEnqueue(Job[int]{ID: "1"}))
	assert.False(t, q.Started())
}

func TestQueueTryEnqueueReportsFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(context.Context, Job[int]) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job[int]{ID: "first"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job[int]{ID: "second"}))
	err := q.TryEnqueue(Job[int]{ID: "third"})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	q.Stop()
}

func TestQueueStopHandlesEveryAcceptedJob(t *testing.T) {
	for round := 0; round < 20; round++ {
		var handled int64
		q := NewQueue("drain", func(context.Context, Job[int]) error {
			atomic.AddInt64(&handled, 1)
			return nil
		}, QueueConfig{Workers: 1, BufferSize: 64})
		q.Start(context.Background())

		var (
			accepted int64
			wg       sync.WaitGroup
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					err := q.TryEnqueue(Job[int]{ID: "job"})
					switch {
					case err == nil:
						atomic.AddInt64(&accepted, 1)
					case errors.Is(err, ErrQueueFull):
					default:
						return
					}
				}
			}()
		}

		time.Sleep(time.Millisecond)
		q.Stop()
		wg.Wait()
		require.Equal(t, atomic.LoadInt64(&accepted), atomic.LoadInt64(&handled), "round %d", round)
	}
}
