package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/models"
)

// Handler processes one received message
type Handler interface {
	Handle(ctx context.Context, jobID string) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, jobID string) error

func (f HandlerFunc) Handle(ctx context.Context, jobID string) error {
	return f(ctx, jobID)
}

// WorkerPool runs a fixed set of workers polling the queue. Handlers
// are registered per message type before Start.
type WorkerPool struct {
	queue        *BadgerQueue
	handlers     map[string]Handler
	logger       arbor.ILogger
	numWorkers   int
	pollInterval time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewWorkerPool(q *BadgerQueue, logger arbor.ILogger, numWorkers int, pollInterval time.Duration) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:        q,
		handlers:     make(map[string]Handler),
		logger:       logger,
		numWorkers:   numWorkers,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterHandler registers a handler for a message type
func (wp *WorkerPool) RegisterHandler(messageType string, handler Handler) {
	wp.handlers[messageType] = handler
	wp.logger.Info().
		Str("message_type", messageType).
		Msg("Handler registered")
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	wp.logger.Info().
		Int("num_workers", wp.numWorkers).
		Msg("Starting worker pool")

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Msg("Stopping worker pool...")
	wp.cancel()
	wp.wg.Wait()
	wp.logger.Info().Msg("Worker pool stopped")
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	wp.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopping")
			return
		default:
			if !wp.processNext(workerID) {
				// Empty queue, back off before polling again
				select {
				case <-wp.ctx.Done():
				case <-time.After(wp.pollInterval):
				}
			}
		}
	}
}

// processNext handles one message; returns false when the queue was empty
func (wp *WorkerPool) processNext(workerID int) bool {
	msg, deleteFn, err := wp.queue.Receive(wp.ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNoMessage) && wp.ctx.Err() == nil {
			wp.logger.Error().Err(err).Msg("Failed to receive message")
		}
		return false
	}

	wp.logger.Info().
		Int("worker_id", workerID).
		Str("job_id", msg.JobID).
		Str("message_type", msg.Type).
		Msg("Processing message")

	handler, ok := wp.handlers[msg.Type]
	if !ok {
		wp.logger.Error().
			Str("message_type", msg.Type).
			Str("job_id", msg.JobID).
			Msg("No handler registered for message type")

		if err := deleteFn(); err != nil {
			wp.logger.Error().Err(err).Msg("Failed to delete message")
		}
		return true
	}

	if err := handler.Handle(wp.ctx, msg.JobID); err != nil {
		wp.logger.Error().
			Err(err).
			Str("job_id", msg.JobID).
			Msg("Message handling failed")
	} else {
		wp.logger.Info().
			Str("job_id", msg.JobID).
			Msg("Message handled")
	}

	// The handler records job failure on its own; the message is always
	// acknowledged so a deterministic parse error does not redeliver.
	if err := deleteFn(); err != nil {
		wp.logger.Error().
			Err(err).
			Str("job_id", msg.JobID).
			Msg("Failed to delete message from queue")
	}
	return true
}
