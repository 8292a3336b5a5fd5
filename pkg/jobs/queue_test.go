package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan Job, 1)
	q := NewQueue("refresh", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("source down")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "refresh"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
		assert.NotEmpty(t, job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("refresh", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{Type: "refresh"}))
}

func TestQueueBackoffIsCapped(t *testing.T) {
	q := NewQueue("refresh", nil, QueueConfig{RetryDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	assert.Equal(t, 100*time.Millisecond, q.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, q.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, q.Backoff(3))
	assert.Equal(t, time.Second, q.Backoff(10))
}
