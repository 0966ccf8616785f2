package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockQueue_EnqueueDequeue(t *testing.T) {
	queue := NewMockQueue()
	ctx := context.Background()
	attachmentID := uuid.New()

	payload := map[string]interface{}{
		"test": "data",
	}

	job, err := queue.Enqueue(ctx, "default", GenerateVariantsJobType, attachmentID, payload, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, "default", job.QueueName)
	assert.Equal(t, GenerateVariantsJobType, job.JobType)
	assert.Equal(t, attachmentID, job.AttachmentID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.AttemptCount)

	dequeuedJob, err := queue.Dequeue(ctx, "worker-1", nil)
	require.NoError(t, err)
	require.NotNil(t, dequeuedJob)
	assert.Equal(t, job.ID, dequeuedJob.ID)
	assert.Equal(t, JobStatusProcessing, dequeuedJob.Status)
	assert.Equal(t, 1, dequeuedJob.AttemptCount)
	assert.Equal(t, "worker-1", dequeuedJob.WorkerID)

	// No more jobs
	noJob, err := queue.Dequeue(ctx, "worker-2", nil)
	require.NoError(t, err)
	assert.Nil(t, noJob)
}

func TestMockQueue_Complete(t *testing.T) {
	queue := NewMockQueue()
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "default", GenerateVariantsJobType, uuid.New(), nil, nil)
	require.NoError(t, err)

	_, err = queue.Dequeue(ctx, "worker-1", nil)
	require.NoError(t, err)

	result := map[string]interface{}{"styles": []string{"mini", "product"}}
	require.NoError(t, queue.Complete(ctx, job.ID, result))

	completed, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, result, completed.Result)
}

func TestMockQueue_FailAndRetry(t *testing.T) {
	queue := NewMockQueue()
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "default", GenerateVariantsJobType, uuid.New(), nil, &EnqueueOptions{MaxAttempts: 2})
	require.NoError(t, err)

	_, err = queue.Dequeue(ctx, "worker-1", nil)
	require.NoError(t, err)

	// First failure re-queues with backoff.
	require.NoError(t, queue.Fail(ctx, job.ID, "transient error"))

	retried, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, retried.Status)
	assert.True(t, retried.ScheduledAt.After(time.Now()))
	assert.Equal(t, "transient error", retried.ErrorMessage)

	// Exhausting attempts marks the job failed for good.
	retried.ScheduledAt = time.Now().Add(-time.Second)
	_, err = queue.Dequeue(ctx, "worker-1", nil)
	require.NoError(t, err)
	require.NoError(t, queue.Fail(ctx, job.ID, "still broken"))

	failed, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, failed.Status)
}

func TestMockQueue_PriorityOrder(t *testing.T) {
	queue := NewMockQueue()
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, "default", GenerateVariantsJobType, uuid.New(), nil, &EnqueueOptions{Priority: 1, MaxAttempts: 3})
	require.NoError(t, err)
	urgent, err := queue.Enqueue(ctx, "default", GenerateVariantsJobType, uuid.New(), nil, &EnqueueOptions{Priority: 10, MaxAttempts: 3})
	require.NoError(t, err)

	job, err := queue.Dequeue(ctx, "worker-1", nil)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, urgent.ID, job.ID)
}

func TestMockQueue_Stats(t *testing.T) {
	queue := NewMockQueue()
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, "default", GenerateVariantsJobType, uuid.New(), nil, nil)
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, "default", GenerateVariantsJobType, uuid.New(), nil, nil)
	require.NoError(t, err)

	_, err = queue.Dequeue(ctx, "worker-1", nil)
	require.NoError(t, err)

	stats, err := queue.GetQueueStats(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingJobs)
	assert.Equal(t, 1, stats.ProcessingJobs)
}
