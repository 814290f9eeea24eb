package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/job-scraper/internal/logger"
	"github.com/jonesrussell/job-scraper/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeServer scripts the scraper API for controller tests.
type fakeServer struct {
	mu sync.Mutex

	autoLinks []models.ExtractedJobLink

	task        *models.ExtractionTask
	taskStates  []models.ExtractionTask // consumed one per status read, last repeats
	statusReads int

	queues        [][]models.ImportQueue // consumed one per snapshot read, last repeats
	snapshotReads int
	retryJobCalls []string
	retryFailed   int

	server *httptest.Server
}

func newFakeServer() *fakeServer {
	f := &fakeServer{}
	router := gin.New()

	router.POST("/api/v1/extract/auto", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"success": true, "links": f.autoLinks, "total": len(f.autoLinks)})
	})
	router.POST("/api/v1/extract/tasks", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.task = &models.ExtractionTask{ID: "task-1", Status: models.StatusPending}
		c.JSON(http.StatusCreated, gin.H{"success": true, "task": f.task})
	})
	router.GET("/api/v1/extract/tasks/:id", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.statusReads++
		state := f.taskStates[0]
		if len(f.taskStates) > 1 {
			f.taskStates = f.taskStates[1:]
		}
		state.ID = c.Param("id")
		c.JSON(http.StatusOK, gin.H{"success": true, "task": state})
	})
	router.GET("/api/v1/extract/tasks", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var tasks []models.ExtractionTask
		if f.task != nil {
			tasks = append(tasks, *f.task)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks})
	})
	router.POST("/api/v1/queues", func(c *gin.Context) {
		var req struct {
			SourceURL string   `json:"source_url"`
			URLs      []string `json:"urls"`
			Titles    []string `json:"titles"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "bad request"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "queue": models.ImportQueue{
			ID:        "q1",
			SourceURL: req.SourceURL,
			Status:    models.StatusPending,
			TotalJobs: len(req.URLs),
		}})
	})
	router.GET("/api/v1/queues", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.snapshotReads++
		var snapshot []models.ImportQueue
		if len(f.queues) > 0 {
			snapshot = f.queues[0]
			if len(f.queues) > 1 {
				f.queues = f.queues[1:]
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "queues": snapshot})
	})
	router.POST("/api/v1/queues/:id/jobs/:jobId/retry", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.retryJobCalls = append(f.retryJobCalls, c.Param("jobId"))
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	router.POST("/api/v1/queues/:id/retry-failed", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.retryFailed++
		c.JSON(http.StatusOK, gin.H{"success": true, "retried": 1})
	})

	f.server = httptest.NewServer(router)
	return f
}

func (f *fakeServer) close() { f.server.Close() }

func (f *fakeServer) reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusReads
}

func newController(f *fakeServer, onUpdate TaskUpdateFunc) *ExtractionController {
	client := NewClient(f.server.URL)
	return NewExtractionController(client, logger.NewNop(), 10*time.Millisecond, onUpdate)
}

func TestExtract_AutoDetectShortCircuits(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.autoLinks = []models.ExtractedJobLink{{URL: "https://example.com/jobs/1", Title: "Engineer"}}

	links, err := newController(f, nil).Extract(context.Background(), "https://example.com/careers")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Zero(t, f.reads())
}

func TestExtract_RejectsInvalidURL(t *testing.T) {
	f := newFakeServer()
	defer f.close()

	_, err := newController(f, nil).Extract(context.Background(), "not-a-url")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = newController(f, nil).Extract(context.Background(), "ftp://example.com/x")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

// Poll-stop bound: after the terminal transition is observed there must be
// zero further status reads.
func TestExtract_PollingStopsAtTerminal(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.taskStates = []models.ExtractionTask{
		{Status: models.StatusProcessing},
		{Status: models.StatusProcessing},
		{Status: models.StatusCompleted, Links: []models.ExtractedJobLink{
			{URL: "https://example.com/careers/1", Title: "Engineer"},
		}},
	}

	links, err := newController(f, nil).Extract(context.Background(), "https://example.com/careers")
	require.NoError(t, err)
	require.Len(t, links, 1)

	readsAtCompletion := f.reads()
	assert.Equal(t, 3, readsAtCompletion)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, readsAtCompletion, f.reads())
}

// Completed-with-zero-links is the same error class as a failed task.
func TestExtract_EmptyCompletionIsNoLinksFound(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.taskStates = []models.ExtractionTask{
		{Status: models.StatusCompleted},
	}

	_, err := newController(f, nil).Extract(context.Background(), "https://example.com/careers")
	assert.ErrorIs(t, err, ErrNoLinksFound)
}

func TestExtract_FailureSurfacesServerError(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.taskStates = []models.ExtractionTask{
		{Status: models.StatusFailed, Error: "page blocked scraping"},
	}

	_, err := newController(f, nil).Extract(context.Background(), "https://example.com/careers")
	require.Error(t, err)
	assert.Equal(t, "page blocked scraping", err.Error())
}

func TestExtract_FailureWithoutMessageIsGeneric(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.taskStates = []models.ExtractionTask{
		{Status: models.StatusFailed},
	}

	_, err := newController(f, nil).Extract(context.Background(), "https://example.com/careers")
	require.Error(t, err)
	assert.Equal(t, "extraction failed", err.Error())
}

func TestResume_ReattachesPollerUntilTerminal(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.task = &models.ExtractionTask{ID: "task-1", Status: models.StatusProcessing}
	f.taskStates = []models.ExtractionTask{
		{Status: models.StatusProcessing},
		{Status: models.StatusCompleted, Links: []models.ExtractedJobLink{{URL: "https://example.com/jobs/1"}}},
	}

	var mu sync.Mutex
	var seen []models.Status
	ctrl := newController(f, func(task *models.ExtractionTask) {
		mu.Lock()
		seen = append(seen, task.Status)
		mu.Unlock()
	})
	defer ctrl.StopAll()

	require.NoError(t, ctrl.Resume(context.Background()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2 && seen[len(seen)-1] == models.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	readsAtCompletion := f.reads()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, readsAtCompletion, f.reads(), "poller must stop at terminal status")
}

// Verbatim parsing example: two valid URLs survive, junk and blanks dropped.
func TestParsePastedURLs(t *testing.T) {
	urls := ParsePastedURLs("https://a.com/x\nnot-a-url\nhttp://b.com/y\n  \n")
	assert.Equal(t, []string{"https://a.com/x", "http://b.com/y"}, urls)
}

func TestParsePastedURLs_Empty(t *testing.T) {
	assert.Empty(t, ParsePastedURLs(""))
	assert.Empty(t, ParsePastedURLs("\n  \nnope\n"))
}

func activeQueue(id string) models.ImportQueue {
	return models.ImportQueue{ID: id, Status: models.StatusProcessing, TotalJobs: 1}
}

func doneQueue(id string) models.ImportQueue {
	return models.ImportQueue{ID: id, Status: models.StatusCompleted, TotalJobs: 1, Completed: 1}
}

func newQueueController(f *fakeServer, onReconcile ReconcileFunc) *QueueController {
	client := NewClient(f.server.URL)
	// Interval long enough that ticks never fire during a test; transitions
	// are driven by explicit Refresh calls.
	return NewQueueController(client, logger.NewNop(), time.Hour, onReconcile, nil)
}

// Reconciliation fires exactly once on the some-active to none-active
// transition, and a further all-quiescent poll must not re-fire it.
func TestQueueController_ReconcileFiresExactlyOnce(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.queues = [][]models.ImportQueue{
		{activeQueue("q1")},
		{doneQueue("q1")},
		{doneQueue("q1")},
	}

	var reconciles int
	ctrl := newQueueController(f, func() { reconciles++ })
	defer ctrl.Stop()

	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx))
	assert.True(t, ctrl.Polling(), "polling must arm while a queue is active")
	assert.Zero(t, reconciles)

	require.NoError(t, ctrl.Refresh(ctx))
	assert.Equal(t, 1, reconciles)
	assert.False(t, ctrl.Polling(), "polling must disarm once no queue is active")

	require.NoError(t, ctrl.Refresh(ctx))
	assert.Equal(t, 1, reconciles, "quiescent tick must not re-fire the signal")
}

func TestQueueController_SignalResetsWhenActivityResumes(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.queues = [][]models.ImportQueue{
		{activeQueue("q1")},
		{doneQueue("q1")},
		{doneQueue("q1"), activeQueue("q2")},
		{doneQueue("q1"), doneQueue("q2")},
	}

	var reconciles int
	ctrl := newQueueController(f, func() { reconciles++ })
	defer ctrl.Stop()

	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Refresh(ctx))
	assert.Equal(t, 1, reconciles)

	// A new queue re-enters activity, then completes: one more signal.
	require.NoError(t, ctrl.Refresh(ctx))
	assert.True(t, ctrl.Polling())
	require.NoError(t, ctrl.Refresh(ctx))
	assert.Equal(t, 2, reconciles)
	assert.False(t, ctrl.Polling())
}

func TestQueueController_StaleSnapshotDiscarded(t *testing.T) {
	f := newFakeServer()
	defer f.close()

	ctrl := newQueueController(f, nil)
	defer ctrl.Stop()

	ctrl.apply(2, []models.ImportQueue{doneQueue("fresh")})
	ctrl.apply(1, []models.ImportQueue{activeQueue("stale")})

	queues := ctrl.Queues()
	require.Len(t, queues, 1)
	assert.Equal(t, "fresh", queues[0].ID)
}

// RetryFailed is gated client-side while the queue is processing and allowed
// in any terminal state.
func TestQueueController_RetryFailedGating(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.queues = [][]models.ImportQueue{
		{activeQueue("q1")},
	}

	ctrl := newQueueController(f, nil)
	defer ctrl.Stop()
	require.NoError(t, ctrl.Start(context.Background()))

	_, err := ctrl.RetryFailed(context.Background(), "q1")
	assert.ErrorIs(t, err, ErrQueueProcessing)
	assert.Zero(t, f.retryFailed, "gate must trip before any network call")

	failed := models.ImportQueue{ID: "q1", Status: models.StatusFailed, TotalJobs: 1, Failed: 1}
	f.mu.Lock()
	f.queues = [][]models.ImportQueue{{failed}}
	f.mu.Unlock()
	require.NoError(t, ctrl.Refresh(context.Background()))

	retried, err := ctrl.RetryFailed(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	assert.Equal(t, 1, f.retryFailed)
}

// End-to-end: extraction falls back to a polled task, its links feed a new
// queue, and the next snapshot shows the batch finished with progress 1/1.
func TestEndToEnd_ExtractionIntoQueue(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.taskStates = []models.ExtractionTask{
		{Status: models.StatusProcessing},
		{Status: models.StatusCompleted, Links: []models.ExtractedJobLink{
			{URL: "https://example.com/careers/1", Title: "Engineer"},
		}},
	}

	links, err := newController(f, nil).Extract(context.Background(), "https://example.com/careers")
	require.NoError(t, err)
	require.Len(t, links, 1)

	f.mu.Lock()
	f.queues = [][]models.ImportQueue{
		{{ID: "q1", Status: models.StatusPending, TotalJobs: 1}},
		{{
			ID: "q1", Status: models.StatusCompleted, TotalJobs: 1, Completed: 1,
			Jobs: []models.ImportJob{{ID: "j1", QueueID: "q1", Status: models.StatusCompleted}},
		}},
	}
	f.mu.Unlock()

	ctrl := newQueueController(f, nil)
	defer ctrl.Stop()

	urls := make([]string, len(links))
	titles := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
		titles[i] = l.Title
	}
	queue, err := ctrl.Create(context.Background(), "https://example.com/careers", urls, titles)
	require.NoError(t, err)
	assert.Equal(t, 1, queue.TotalJobs)

	require.NoError(t, ctrl.Refresh(context.Background()))
	queues := ctrl.Queues()
	require.Len(t, queues, 1)
	done, total := queues[0].Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.StatusCompleted, queues[0].Status)
}

// Retrying one failed job touches only that job.
func TestRetryJob_TargetsSingleJob(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.queues = [][]models.ImportQueue{
		{{
			ID: "q1", Status: models.StatusCompleted, TotalJobs: 3, Completed: 2, Failed: 1,
			Jobs: []models.ImportJob{
				{ID: "j1", Status: models.StatusCompleted},
				{ID: "j2", Status: models.StatusFailed, Error: "timeout"},
				{ID: "j3", Status: models.StatusCompleted},
			},
		}},
		{{
			ID: "q1", Status: models.StatusProcessing, TotalJobs: 3, Completed: 2,
			Jobs: []models.ImportJob{
				{ID: "j1", Status: models.StatusCompleted},
				{ID: "j2", Status: models.StatusPending},
				{ID: "j3", Status: models.StatusCompleted},
			},
		}},
	}

	ctrl := newQueueController(f, nil)
	defer ctrl.Stop()
	require.NoError(t, ctrl.Start(context.Background()))

	require.NoError(t, ctrl.RetryJob(context.Background(), "q1", "j2"))
	assert.Equal(t, []string{"j2"}, f.retryJobCalls)

	queues := ctrl.Queues()
	require.Len(t, queues, 1)
	jobs := queues[0].Jobs
	require.Len(t, jobs, 3)
	assert.Equal(t, models.StatusCompleted, jobs[0].Status)
	assert.False(t, jobs[1].Status.Terminal(), "retried job must leave its terminal state")
	assert.Equal(t, models.StatusCompleted, jobs[2].Status)
}

func TestDeriveFollowUp_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		analysis models.URLAnalysisResult
		want     FollowUpKind
		links    int
	}{
		{
			name: "api pattern wins over direct links",
			analysis: models.URLAnalysisResult{
				URL:                "https://example.com/careers",
				APIEndpointPattern: "https://boards-api.greenhouse.io/v1/boards/x/jobs",
				AllExtractedLinks:  []string{"https://example.com/jobs/1"},
			},
			want: FollowUpAPIExtract,
		},
		{
			name: "direct links win over sample",
			analysis: models.URLAnalysisResult{
				URL:               "https://example.com/careers",
				AllExtractedLinks: []string{"https://example.com/jobs/1", "https://example.com/jobs/2"},
				SampleJobLinks:    []string{"https://example.com/jobs/9"},
			},
			want:  FollowUpReviewLinks,
			links: 2,
		},
		{
			name: "sample fallback",
			analysis: models.URLAnalysisResult{
				URL:            "https://example.com/careers",
				SampleJobLinks: []string{"https://example.com/jobs/9"},
			},
			want:  FollowUpSampleImport,
			links: 1,
		},
		{
			name:     "manual hand-off",
			analysis: models.URLAnalysisResult{URL: "https://example.com/careers"},
			want:     FollowUpManualReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fu := DeriveFollowUp(&tt.analysis)
			assert.Equal(t, tt.want, fu.Kind)
			assert.Equal(t, "https://example.com/careers", fu.SourceURL)
			assert.Len(t, fu.Links, tt.links)
			for _, l := range fu.Links {
				assert.Empty(t, l.Title, "analysis links carry no titles")
			}
		})
	}
}

func TestPoller_StartStopIdempotent(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	p := NewPoller(5*time.Millisecond, func(context.Context) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	p.Stop() // stopping before start is a no-op
	p.Start(context.Background())
	p.Start(context.Background()) // second start is a no-op
	assert.True(t, p.Running())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks >= 2
	}, time.Second, time.Millisecond)

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	mu.Lock()
	at := ticks
	mu.Unlock()
	time.Sleep(25 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, at, ticks)
}

func TestSubmitPasted(t *testing.T) {
	f := newFakeServer()
	defer f.close()
	f.queues = [][]models.ImportQueue{
		{{ID: "q1", SourceURL: models.SourceManualPaste, Status: models.StatusPending, TotalJobs: 2}},
	}

	ctrl := newQueueController(f, nil)
	defer ctrl.Stop()
	require.NoError(t, ctrl.Start(context.Background()))

	queue, err := ctrl.SubmitPasted(context.Background(), "https://a.com/x\nnot-a-url\nhttp://b.com/y\n")
	require.NoError(t, err)
	assert.Equal(t, models.SourceManualPaste, queue.SourceURL)
	assert.Equal(t, 2, queue.TotalJobs)

	_, err = ctrl.SubmitPasted(context.Background(), "nothing valid here")
	assert.ErrorIs(t, err, ErrNoValidURLs)
}
