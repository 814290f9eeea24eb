package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

// ErrNoLinksFound is returned when extraction finishes successfully but the
// page yielded no job links. It is the same class of outcome as a failed
// task, distinct from a transport error.
var ErrNoLinksFound = errors.New("no job links found on this page")

// ErrInvalidURL is returned before any network call when the target URL is
// not an absolute http(s) URL.
var ErrInvalidURL = errors.New("URL must be absolute http or https")

// DefaultTaskPollInterval is the extraction status poll period.
const DefaultTaskPollInterval = 2 * time.Second

// TaskUpdateFunc observes task snapshots delivered by resumed pollers.
type TaskUpdateFunc func(task *models.ExtractionTask)

// ExtractionController runs listing-page extractions: a synchronous
// auto-detect attempt first, falling back to a background task polled until
// terminal. The server's status is authoritative; the controller only records
// which tasks it has already seen finish so a late response can be discarded.
type ExtractionController struct {
	client   *Client
	logger   logger.Logger
	interval time.Duration
	onUpdate TaskUpdateFunc

	mu       sync.Mutex
	terminal map[string]bool
	pollers  map[string]*Poller
}

func NewExtractionController(client *Client, log logger.Logger, interval time.Duration, onUpdate TaskUpdateFunc) *ExtractionController {
	if interval <= 0 {
		interval = DefaultTaskPollInterval
	}
	return &ExtractionController{
		client:   client,
		logger:   log,
		interval: interval,
		onUpdate: onUpdate,
		terminal: make(map[string]bool),
		pollers:  make(map[string]*Poller),
	}
}

func validateTargetURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// Extract returns job links for a listing page. Auto-detect is tried first;
// only a zero-link auto result falls back to a background task polled at the
// configured interval. Polling stops strictly on a terminal status.
func (c *ExtractionController) Extract(ctx context.Context, pageURL string) ([]models.ExtractedJobLink, error) {
	if err := validateTargetURL(pageURL); err != nil {
		return nil, err
	}

	links, err := c.client.ExtractAuto(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		return links, nil
	}

	c.logger.Info("Auto-detect found no links, starting background task",
		logger.String("url", pageURL),
	)

	task, err := c.client.StartExtraction(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return c.await(ctx, task.ID)
}

// await polls the task until it reaches a terminal status.
func (c *ExtractionController) await(ctx context.Context, taskID string) ([]models.ExtractedJobLink, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			task, err := c.client.GetExtractionTask(ctx, taskID)
			if err != nil {
				return nil, err
			}
			if !task.Status.Terminal() {
				continue
			}
			c.markTerminal(task.ID)
			return taskOutcome(task)
		}
	}
}

// taskOutcome maps a terminal task to its result. Completed with zero links
// is the same error class as failure.
func taskOutcome(task *models.ExtractionTask) ([]models.ExtractedJobLink, error) {
	switch task.Status {
	case models.StatusCompleted:
		if len(task.Links) == 0 {
			return nil, ErrNoLinksFound
		}
		return task.Links, nil
	case models.StatusFailed:
		if task.Error != "" {
			return nil, errors.New(task.Error)
		}
		return nil, errors.New("extraction failed")
	default:
		return nil, fmt.Errorf("task %s is not terminal", task.ID)
	}
}

// Resume re-attaches a background poller to every non-terminal task known to
// the server, recovering in-flight state after a restart. Snapshots reach the
// update callback; pollers tear themselves down on the terminal transition.
func (c *ExtractionController) Resume(ctx context.Context) error {
	tasks, err := c.client.ListExtractionTasks(ctx)
	if err != nil {
		return err
	}

	for i := range tasks {
		task := tasks[i]
		if task.Status.Terminal() {
			c.markTerminal(task.ID)
			continue
		}
		c.watch(ctx, task.ID)
	}
	return nil
}

func (c *ExtractionController) watch(ctx context.Context, taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.pollers[taskID]; exists {
		return
	}

	poller := NewPoller(c.interval, func(pollCtx context.Context) {
		c.pollOnce(pollCtx, taskID)
	})
	c.pollers[taskID] = poller
	poller.Start(ctx)
}

func (c *ExtractionController) pollOnce(ctx context.Context, taskID string) {
	task, err := c.client.GetExtractionTask(ctx, taskID)
	if err != nil {
		c.logger.Warn("Extraction status read failed",
			logger.String("task_id", taskID),
			logger.Error(err),
		)
		return
	}

	c.mu.Lock()
	if c.terminal[task.ID] {
		// Late response for a task already seen terminal is never
		// re-delivered.
		c.mu.Unlock()
		return
	}
	done := task.Status.Terminal()
	if done {
		c.terminal[task.ID] = true
	}
	poller := c.pollers[taskID]
	if done {
		delete(c.pollers, taskID)
	}
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(task)
	}
	if done && poller != nil {
		poller.Stop()
	}
}

// StopAll tears down every active task poller.
func (c *ExtractionController) StopAll() {
	c.mu.Lock()
	pollers := make([]*Poller, 0, len(c.pollers))
	for id, p := range c.pollers {
		pollers = append(pollers, p)
		delete(c.pollers, id)
	}
	c.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
}

func (c *ExtractionController) markTerminal(taskID string) {
	c.mu.Lock()
	c.terminal[taskID] = true
	c.mu.Unlock()
}
