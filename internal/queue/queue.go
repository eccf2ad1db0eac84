// -----------------------------------------------------------------------
// Job Queue - durable generation job lifecycle over badger storage
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/content"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/pipeline"
)

// maxErrorLength bounds the user-visible failure message stored on a job
const maxErrorLength = 300

// Generator runs the article pipeline for one job
type Generator interface {
	Run(ctx context.Context, opts pipeline.Options, progress pipeline.ProgressFunc) (*pipeline.Result, error)
}

// JobQueue owns the job lifecycle: enqueue, claim and process, recovery, retry and dismiss.
type JobQueue struct {
	jobs      interfaces.JobStorage
	keywords  interfaces.KeywordStorage
	posts     interfaces.PostStorage
	websites  interfaces.WebsiteStorage
	generator Generator
	publisher interfaces.Publisher
	events    interfaces.EventService
	validate  *validator.Validate
	config    common.QueueConfig
	lease     time.Duration
	logger    arbor.ILogger

	// slugMu serialises slug resolution with the post insert
	slugMu sync.Mutex
}

// NewJobQueue creates a job queue. publisher and events may be nil.
func NewJobQueue(
	storage interfaces.StorageManager,
	generator Generator,
	publisher interfaces.Publisher,
	events interfaces.EventService,
	config common.QueueConfig,
	logger arbor.ILogger,
) *JobQueue {
	return &JobQueue{
		jobs:      storage.JobStorage(),
		keywords:  storage.KeywordStorage(),
		posts:     storage.PostStorage(),
		websites:  storage.WebsiteStorage(),
		generator: generator,
		publisher: publisher,
		events:    events,
		validate:  validator.New(),
		config:    config,
		lease:     common.ParseDuration(config.LeaseTimeout, 15*time.Minute),
		logger:    logger,
	}
}

// Enqueue validates input, reserves the keyword and creates a QUEUED job.
// A keyword that already owns a live job yields ErrKeywordBusy.
func (q *JobQueue) Enqueue(ctx context.Context, input models.JobInput) (string, error) {
	if input.KeywordID == "" {
		return "", fmt.Errorf("invalid job input: %w", q.validate.Struct(input))
	}

	keyword, err := q.keywords.GetKeyword(ctx, input.KeywordID)
	if err != nil {
		return "", err
	}
	if input.Keyword == "" {
		input.Keyword = keyword.Text
	}
	if input.WebsiteID == "" {
		input.WebsiteID = keyword.WebsiteID
	}
	if input.ContentLength == "" {
		input.ContentLength = keyword.ContentLength
	}
	input.Keyword = strings.TrimSpace(input.Keyword)

	if err := q.validate.Struct(input); err != nil {
		return "", fmt.Errorf("invalid job input: %w", err)
	}
	if keyword.WebsiteID != input.WebsiteID {
		return "", fmt.Errorf("%w: keyword %s does not belong to website %s", models.ErrKeywordNotFound, keyword.ID, input.WebsiteID)
	}
	if _, err := q.websites.GetWebsite(ctx, input.WebsiteID); err != nil {
		return "", err
	}

	previous := keyword.Status
	if err := q.keywords.ReserveKeyword(ctx, keyword.ID); err != nil {
		return "", err
	}

	job := models.NewJob(input)
	if err := q.jobs.SaveJob(ctx, job); err != nil {
		if rbErr := q.keywords.UpdateKeywordStatus(ctx, keyword.ID, previous); rbErr != nil {
			q.logger.Error().Err(rbErr).Str("keyword_id", keyword.ID).Msg("Failed to release keyword after enqueue error")
		}
		return "", fmt.Errorf("failed to save job: %w", err)
	}

	metrics.JobsTotal.WithLabelValues("queued").Inc()
	q.logger.Info().
		Str("job_id", job.ID).
		Str("keyword", input.Keyword).
		Str("website_id", input.WebsiteID).
		Str("content_length", string(job.Input.ContentLength)).
		Msg("Job queued")
	q.emit(ctx, interfaces.EventJobQueued, job, "")

	return job.ID, nil
}

// Process claims a QUEUED job and runs the pipeline for it. Calling it for a job
// that is not QUEUED, or losing the claim to another caller, is a no-op.
func (q *JobQueue) Process(ctx context.Context, jobID string) error {
	_, err := q.process(ctx, jobID)
	return err
}

// process reports whether this call won the claim
func (q *JobQueue) process(ctx context.Context, jobID string) (claimed bool, err error) {
	claimed, err = q.jobs.ClaimJob(ctx, jobID, time.Now())
	if err != nil {
		return false, err
	}
	if !claimed {
		q.logger.Debug().Str("job_id", jobID).Msg("Job not claimable, skipping")
		return false, nil
	}

	logger := q.logger.WithCorrelationId(jobID)
	metrics.JobsTotal.WithLabelValues("started").Inc()
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	job, err := q.jobs.GetJob(ctx, jobID)
	if err != nil {
		return true, err
	}
	if job.StartedAt == nil {
		return true, fmt.Errorf("%w: claimed job %s has no start time", models.ErrInvalidTransition, jobID)
	}
	lease := *job.StartedAt

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Recovered from panic in job processing")
			q.fail(ctx, job, lease, err, logger)
		}
	}()

	start := time.Now()
	post, err := q.run(ctx, job, lease, logger)
	if err != nil {
		q.fail(ctx, job, lease, err, logger)
		return true, err
	}

	logger.Info().
		Str("post_id", post.ID).
		Str("slug", post.Slug).
		Int("words", post.Article.WordCount).
		Int("score", post.Article.Score).
		Dur("duration", time.Since(start)).
		Msg("Job completed")
	return true, nil
}

// leaseLost reports whether a lease-guarded write was refused because the job
// was recovered, retried or dismissed under the worker.
func leaseLost(err error) bool {
	return errors.Is(err, models.ErrInvalidTransition) || errors.Is(err, models.ErrJobNotFound)
}

func (q *JobQueue) run(ctx context.Context, job *models.Job, lease time.Time, logger arbor.ILogger) (*models.BlogPost, error) {
	in := job.Input

	website, err := q.websites.GetWebsite(ctx, in.WebsiteID)
	if err != nil {
		return nil, err
	}

	links, err := q.linkGraph(ctx, website)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load link graph, continuing without internal links")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var lost atomic.Bool

	progress := func(step string, pct int) {
		if err := q.jobs.UpdateJobProgress(ctx, job.ID, lease, step, pct); err != nil {
			if leaseLost(err) {
				logger.Warn().Err(err).Str("step", step).Msg("Job lease lost, cancelling run")
				lost.Store(true)
				cancel()
				return
			}
			logger.Warn().Err(err).Str("step", step).Msg("Failed to record job progress")
		}
		if step == pipeline.StepDraft {
			err := q.keywords.TransitionKeyword(ctx, in.KeywordID, models.KeywordStatusResearching, models.KeywordStatusGenerating)
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to mark keyword generating")
			}
		}
		job.CurrentStep = step
		job.Progress = pct
		q.emit(ctx, interfaces.EventJobProgress, job, "")
	}

	result, err := q.generator.Run(runCtx, pipeline.Options{
		Keyword:       in.Keyword,
		ContentLength: in.ContentLength,
		Website:       website,
		InternalLinks: links,
		GenerateImage: in.GenerateImage,
		Model:         in.Model,
		Logger:        logger,
	}, progress)
	if err != nil {
		return nil, err
	}
	if lost.Load() {
		return nil, fmt.Errorf("%w: job %s recovered during generation", models.ErrInvalidTransition, job.ID)
	}

	post, err := q.savePost(ctx, website.ID, in, result.Article)
	if err != nil {
		return nil, err
	}
	if err := q.jobs.CompleteJob(ctx, job.ID, lease, post.ID); err != nil {
		if delErr := q.posts.DeletePost(ctx, post.ID); delErr != nil {
			logger.Error().Err(delErr).Str("post_id", post.ID).Msg("Failed to remove post of abandoned job")
		}
		return nil, err
	}
	if err := q.keywords.CompleteKeyword(ctx, in.KeywordID, post.ID); err != nil {
		logger.Error().Err(err).Str("post_id", post.ID).Msg("Failed to link keyword to post")
	}

	if _, err := q.websites.IncrementUsage(ctx, website.ID, models.UsagePeriod(time.Now())); err != nil {
		logger.Warn().Err(err).Msg("Failed to increment monthly usage")
	}

	metrics.JobsTotal.WithLabelValues("completed").Inc()
	job.Status = models.JobStatusCompleted
	job.CurrentStep = "completed"
	job.Progress = 100
	job.OutputID = post.ID
	q.emit(ctx, interfaces.EventJobCompleted, job, "")

	if in.AutoPublish && q.publisher != nil {
		postID := post.ID
		common.SafeGo(logger, "auto-publish", func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := q.publisher.Publish(pubCtx, postID); err != nil {
				logger.Warn().Err(err).Str("post_id", postID).Msg("Auto-publish failed")
			}
		})
	}

	return post, nil
}

// linkGraph lists the website's recent published posts as approved link targets
func (q *JobQueue) linkGraph(ctx context.Context, website *models.Website) ([]models.InternalLink, error) {
	limit := q.config.LinkGraphLimit
	if limit <= 0 {
		limit = 50
	}
	posts, err := q.posts.ListRecentPublished(ctx, website.ID, "", limit)
	if err != nil {
		return nil, err
	}

	links := make([]models.InternalLink, 0, len(posts))
	for _, p := range posts {
		links = append(links, models.InternalLink{
			URL:          website.PostURL(p.Slug),
			Title:        p.Article.Title,
			FocusKeyword: p.Article.FocusKeyword,
			Slug:         p.Slug,
		})
	}
	return links, nil
}

func (q *JobQueue) savePost(ctx context.Context, websiteID string, in models.JobInput, article *models.GeneratedArticle) (*models.BlogPost, error) {
	q.slugMu.Lock()
	defer q.slugMu.Unlock()

	slug, err := q.uniqueSlug(ctx, websiteID, article.Slug, in.Keyword)
	if err != nil {
		return nil, err
	}

	post := models.NewBlogPost(websiteID, in.KeywordID, slug, *article)
	if err := q.posts.SavePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	return post, nil
}

// uniqueSlug appends -2, -3, ... until the slug is free on the website
func (q *JobQueue) uniqueSlug(ctx context.Context, websiteID, slug, keyword string) (string, error) {
	if slug == "" {
		slug = content.Slugify(keyword)
	}
	if slug == "" {
		slug = "post"
	}

	candidate := slug
	for n := 2; ; n++ {
		exists, err := q.posts.SlugExists(ctx, websiteID, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", slug, n)
	}
}

// fail records a failed run. When the lease was lost the job and keyword belong
// to recovery or a replacement job, so nothing is written.
func (q *JobQueue) fail(ctx context.Context, job *models.Job, lease time.Time, cause error, logger arbor.ILogger) {
	message := failureMessage(cause)

	if err := q.jobs.FailClaimedJob(ctx, job.ID, lease, message); err != nil {
		if leaseLost(err) {
			logger.Warn().Err(cause).Str("reason", err.Error()).Msg("Job lease lost, discarding run")
			return
		}
		logger.Error().Err(err).Msg("Failed to mark job failed")
	}

	logger.Error().Err(cause).Str("step", job.CurrentStep).Msg("Job failed")
	if err := q.keywords.MarkKeywordFailed(ctx, job.Input.KeywordID); err != nil {
		logger.Error().Err(err).Msg("Failed to mark keyword failed")
	}

	metrics.JobsTotal.WithLabelValues("failed").Inc()
	job.Status = models.JobStatusFailed
	q.emit(ctx, interfaces.EventJobFailed, job, message)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation timed out. Click Retry to try again."
	case errors.Is(err, models.ErrMalformedJSON):
		return "The model returned an unreadable response. Click Retry to try again."
	}
	msg := err.Error()
	if r := []rune(msg); len(r) > maxErrorLength {
		msg = string(r[:maxErrorLength]) + "..."
	}
	return msg
}

// RecoverStuckJobs fails PROCESSING jobs whose lease expired and returns their
// keywords to PENDING. It returns the number of jobs reclaimed.
func (q *JobQueue) RecoverStuckJobs(ctx context.Context) (int, error) {
	stale, err := q.jobs.GetStaleJobs(ctx, time.Now().Add(-q.lease))
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, job := range stale {
		if err := q.jobs.FailJob(ctx, job.ID, models.JobTimeoutMessage); err != nil {
			if errors.Is(err, models.ErrInvalidTransition) {
				continue
			}
			q.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to reclaim stuck job")
			continue
		}
		if err := q.keywords.UpdateKeywordStatus(ctx, job.Input.KeywordID, models.KeywordStatusPending); err != nil {
			q.logger.Warn().Err(err).Str("keyword_id", job.Input.KeywordID).Msg("Failed to reset keyword of stuck job")
		}

		job.Status = models.JobStatusFailed
		q.emit(ctx, interfaces.EventJobFailed, job, models.JobTimeoutMessage)
		recovered++
	}

	if recovered > 0 {
		metrics.JobsRecovered.Add(float64(recovered))
		q.logger.Info().Int("recovered", recovered).Dur("lease_timeout", q.lease).Msg("Recovered stuck jobs")
	}
	return recovered, nil
}

// Retry replaces a FAILED job with a new QUEUED job built from the same input.
// A keyword already held by another job yields ErrKeywordBusy and the failed job
// is kept.
func (q *JobQueue) Retry(ctx context.Context, jobID string) (string, error) {
	job, err := q.jobs.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != models.JobStatusFailed {
		return "", fmt.Errorf("%w: retry from %s", models.ErrInvalidTransition, job.Status)
	}

	if err := q.keywords.ReleaseForRetry(ctx, job.Input.KeywordID); err != nil {
		return "", err
	}

	newID, err := q.Enqueue(ctx, job.Input)
	if err != nil {
		return "", err
	}
	if err := q.jobs.DeleteJob(ctx, jobID); err != nil && !errors.Is(err, models.ErrJobNotFound) {
		q.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to delete retried job")
	}

	metrics.JobsTotal.WithLabelValues("retried").Inc()
	q.logger.Info().Str("job_id", jobID).Str("new_job_id", newID).Msg("Job retried")
	return newID, nil
}

// Dismiss deletes a COMPLETED or FAILED job. The keyword is left as is.
func (q *JobQueue) Dismiss(ctx context.Context, jobID string) error {
	job, err := q.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: dismiss %s job", models.ErrInvalidTransition, job.Status)
	}
	return q.jobs.DeleteJob(ctx, jobID)
}

// Get returns a job, first sweeping stuck jobs when recover_on_read is enabled.
func (q *JobQueue) Get(ctx context.Context, jobID string) (*models.Job, error) {
	q.recoverOnRead(ctx)
	return q.jobs.GetJob(ctx, jobID)
}

// List returns jobs matching opts, first sweeping stuck jobs when recover_on_read is enabled.
func (q *JobQueue) List(ctx context.Context, opts *models.JobListOptions) ([]*models.Job, error) {
	q.recoverOnRead(ctx)
	return q.jobs.ListJobs(ctx, opts)
}

func (q *JobQueue) recoverOnRead(ctx context.Context) {
	if !q.config.RecoverOnRead {
		return
	}
	if _, err := q.RecoverStuckJobs(ctx); err != nil {
		q.logger.Warn().Err(err).Msg("Recovery sweep on read failed")
	}
}

// nextQueued returns up to limit QUEUED job ids, oldest first
func (q *JobQueue) nextQueued(ctx context.Context, limit int) ([]string, error) {
	jobs, err := q.jobs.ListJobs(ctx, &models.JobListOptions{
		Status: models.JobStatusQueued,
		Limit:  limit,
		Oldest: true,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids, nil
}

func (q *JobQueue) emit(ctx context.Context, eventType interfaces.EventType, job *models.Job, message string) {
	if q.events == nil {
		return
	}
	payload := interfaces.JobEventPayload{
		JobID:     job.ID,
		KeywordID: job.Input.KeywordID,
		Status:    string(job.Status),
		Step:      job.CurrentStep,
		Progress:  job.Progress,
		Error:     message,
		OutputID:  job.OutputID,
	}
	if err := q.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		q.logger.Debug().Err(err).Str("event", string(eventType)).Msg("Failed to publish job event")
	}
}
