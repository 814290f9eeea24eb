package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

// ErrQueueProcessing rejects a bulk retry while the queue is still being
// worked, so the retry cannot race the active worker.
var ErrQueueProcessing = errors.New("queue is still processing")

// ErrNoValidURLs rejects a paste submission that yielded no usable URLs.
var ErrNoValidURLs = errors.New("no valid URLs to submit")

// DefaultQueuePollInterval is the queue snapshot refresh period. Import
// batches run long; a tighter loop would not improve responsiveness
// proportionally to its cost.
const DefaultQueuePollInterval = 10 * time.Second

// ReconcileFunc is invoked exactly once when the queue set transitions from
// some-active to none-active, typically to invalidate a downstream jobs list.
type ReconcileFunc func()

// QueueUpdateFunc observes each applied queue snapshot.
type QueueUpdateFunc func(queues []models.ImportQueue)

// QueueController tracks every import queue through periodic snapshots.
// Polling runs only while at least one queue is non-terminal and is torn down
// the instant none requires it. The server is the sole source of truth: no
// status is ever mutated locally, and every snapshot carries a sequence
// number so a stale response can never overwrite fresher state.
type QueueController struct {
	client      *Client
	logger      logger.Logger
	onReconcile ReconcileFunc
	onUpdate    QueueUpdateFunc

	nextSeq atomic.Uint64

	mu         sync.Mutex
	queues     []models.ImportQueue
	appliedSeq uint64
	anyActive  bool
	signaled   bool
	poller     *Poller
	pollCtx    context.Context
}

func NewQueueController(client *Client, log logger.Logger, interval time.Duration, onReconcile ReconcileFunc, onUpdate QueueUpdateFunc) *QueueController {
	if interval <= 0 {
		interval = DefaultQueuePollInterval
	}
	c := &QueueController{
		client:      client,
		logger:      log,
		onReconcile: onReconcile,
		onUpdate:    onUpdate,
	}
	c.poller = NewPoller(interval, c.refresh)
	return c
}

// Start loads the initial snapshot and arms polling if anything is active.
func (c *QueueController) Start(ctx context.Context) error {
	c.mu.Lock()
	c.pollCtx = ctx
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Stop tears down polling.
func (c *QueueController) Stop() {
	c.poller.Stop()
}

// Queues returns the last applied snapshot.
func (c *QueueController) Queues() []models.ImportQueue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ImportQueue, len(c.queues))
	copy(out, c.queues)
	return out
}

// Refresh fetches and applies one snapshot.
func (c *QueueController) Refresh(ctx context.Context) error {
	// The sequence number is claimed before the request goes out, so two
	// overlapping refreshes resolve by request order, not arrival order.
	seq := c.nextSeq.Add(1)

	queues, err := c.client.GetAllQueues(ctx)
	if err != nil {
		return err
	}
	c.apply(seq, queues)
	return nil
}

func (c *QueueController) refresh(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("Queue snapshot refresh failed", logger.Error(err))
	}
}

func (c *QueueController) apply(seq uint64, queues []models.ImportQueue) {
	c.mu.Lock()

	if seq <= c.appliedSeq {
		c.logger.Debug("Discarding stale queue snapshot",
			logger.Int64("seq", int64(seq)),
			logger.Int64("applied", int64(c.appliedSeq)),
		)
		c.mu.Unlock()
		return
	}
	c.appliedSeq = seq
	c.queues = queues

	anyActive := false
	for i := range queues {
		if queues[i].Status.Active() {
			anyActive = true
			break
		}
	}

	wasActive := c.anyActive
	c.anyActive = anyActive

	fireReconcile := false
	if anyActive {
		// Activity resets the sticky flag so the next quiescence
		// signals again.
		c.signaled = false
	} else if wasActive && !c.signaled {
		c.signaled = true
		fireReconcile = true
	}

	poller := c.poller
	pollCtx := c.pollCtx
	c.mu.Unlock()

	if anyActive {
		if pollCtx != nil {
			poller.Start(pollCtx)
		}
	} else {
		poller.Stop()
	}

	if c.onUpdate != nil {
		c.onUpdate(queues)
	}
	if fireReconcile && c.onReconcile != nil {
		c.logger.Info("All import queues quiescent, firing reconciliation")
		c.onReconcile()
	}
}

// Create submits a batch and re-arms polling for the new queue.
func (c *QueueController) Create(ctx context.Context, sourceURL string, urls, titles []string) (*models.ImportQueue, error) {
	if len(urls) == 0 {
		return nil, ErrNoValidURLs
	}
	if titles == nil {
		titles = make([]string, len(urls))
	}

	queue, err := c.client.CreateImportQueue(ctx, sourceURL, urls, titles)
	if err != nil {
		return nil, err
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("Snapshot refresh after create failed", logger.Error(err))
	}
	return queue, nil
}

// Cancel requests queue cancellation. The poll loop keeps running until the
// server reports the terminal cancelled status.
func (c *QueueController) Cancel(ctx context.Context, queueID string) error {
	if err := c.client.CancelQueue(ctx, queueID); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// CancelJob cancels one pending job.
func (c *QueueController) CancelJob(ctx context.Context, queueID, jobID string) error {
	if err := c.client.CancelJob(ctx, queueID, jobID); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Delete removes a terminal queue from future snapshots.
func (c *QueueController) Delete(ctx context.Context, queueID string) error {
	if err := c.client.DeleteQueue(ctx, queueID); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// RetryJob re-arms one failed job and re-arms polling.
func (c *QueueController) RetryJob(ctx context.Context, queueID, jobID string) error {
	if err := c.client.RetryJob(ctx, queueID, jobID); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// RetryFailed re-arms every failed job in the queue. Gated client-side while
// the queue is processing, before any network call.
func (c *QueueController) RetryFailed(ctx context.Context, queueID string) (int, error) {
	c.mu.Lock()
	for i := range c.queues {
		if c.queues[i].ID == queueID && c.queues[i].Status == models.StatusProcessing {
			c.mu.Unlock()
			return 0, ErrQueueProcessing
		}
	}
	c.mu.Unlock()

	retried, err := c.client.RetryFailedJobs(ctx, queueID)
	if err != nil {
		return 0, err
	}
	return retried, c.Refresh(ctx)
}

// Polling reports whether the snapshot poll loop is currently armed.
func (c *QueueController) Polling() bool {
	return c.poller.Running()
}
