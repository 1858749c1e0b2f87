package queue

import (
	"context"
	"fmt"

	"github.com/ternarybob/corpus/internal/interfaces"
)

// JobQueue publishes parse jobs onto the badger queue by ID
type JobQueue struct {
	queue *BadgerQueue
}

// NewJobQueue wraps a BadgerQueue as the parse job publisher
func NewJobQueue(q *BadgerQueue) interfaces.JobQueue {
	return &JobQueue{queue: q}
}

func (j *JobQueue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}
	return j.queue.Enqueue(ctx, Message{
		Type:  MessageTypeParseJob,
		JobID: jobID,
	})
}
