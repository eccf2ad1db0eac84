package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger.
// Jobs are stored by value so Find and Get resolve to the same type prefix.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	job.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(job.ID, *job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("BadgerDB: Failed to upsert job")
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, opts *models.JobListOptions) ([]*models.Job, error) {
	if opts == nil {
		opts = &models.JobListOptions{}
	}

	query := &badgerhold.Query{}
	switch {
	case opts.Status != "" && opts.WebsiteID != "":
		query = badgerhold.Where("Status").Eq(opts.Status).And("WebsiteID").Eq(opts.WebsiteID)
	case opts.Status != "":
		query = badgerhold.Where("Status").Eq(opts.Status)
	case opts.WebsiteID != "":
		query = badgerhold.Where("WebsiteID").Eq(opts.WebsiteID)
	}

	query = query.SortBy("CreatedAt")
	if !opts.Oldest {
		query = query.Reverse()
	}
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, 0, len(jobs))
	for i := range jobs {
		result = append(result, &jobs[i])
	}
	return result, nil
}

func (s *JobStorage) CountJobs(ctx context.Context, status models.JobStatus) (int, error) {
	var query *badgerhold.Query
	if status != "" {
		query = badgerhold.Where("Status").Eq(status)
	}
	count, err := s.db.Store().Count(&models.Job{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, models.Job{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// ClaimJob performs the QUEUED -> PROCESSING compare-and-set in one transaction.
// A concurrent claim on the same job fails the commit with ErrConflict, which is
// reported as a lost race rather than an error.
func (s *JobStorage) ClaimJob(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	claimed := false

	err := s.db.update(func(tx *badgerdb.Txn) error {
		var job models.Job
		if err := s.db.Store().TxGet(tx, id, &job); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
			}
			return err
		}
		if job.Status != models.JobStatusQueued {
			return nil
		}

		job.Status = models.JobStatusProcessing
		job.StartedAt = &startedAt
		job.CurrentStep = "starting"
		job.Progress = 0
		job.UpdatedAt = startedAt
		if err := s.db.Store().TxUpdate(tx, id, job); err != nil {
			return err
		}
		claimed = true
		return nil
	})

	if errors.Is(err, badgerdb.ErrConflict) {
		s.logger.Debug().Str("job_id", id).Msg("BadgerDB: Job claim lost to concurrent writer")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return claimed, nil
}

func (s *JobStorage) UpdateJobProgress(ctx context.Context, id string, lease time.Time, step string, progress int) error {
	return s.mutate(id, func(job *models.Job) error {
		if err := holdsLease(job, lease); err != nil {
			return err
		}
		job.CurrentStep = step
		if progress > job.Progress {
			job.Progress = progress
		}
		return nil
	})
}

func (s *JobStorage) CompleteJob(ctx context.Context, id string, lease time.Time, outputID string) error {
	return s.mutate(id, func(job *models.Job) error {
		if err := holdsLease(job, lease); err != nil {
			return err
		}
		now := time.Now()
		job.Status = models.JobStatusCompleted
		job.CurrentStep = "completed"
		job.Progress = 100
		job.OutputID = outputID
		job.Error = ""
		job.CompletedAt = &now
		return nil
	})
}

func (s *JobStorage) FailClaimedJob(ctx context.Context, id string, lease time.Time, message string) error {
	return s.mutate(id, func(job *models.Job) error {
		if err := holdsLease(job, lease); err != nil {
			return err
		}
		now := time.Now()
		job.Status = models.JobStatusFailed
		job.Error = message
		job.CompletedAt = &now
		return nil
	})
}

func (s *JobStorage) FailJob(ctx context.Context, id, message string) error {
	return s.mutate(id, func(job *models.Job) error {
		if job.Status.IsTerminal() {
			return fmt.Errorf("%w: fail from %s", models.ErrInvalidTransition, job.Status)
		}
		now := time.Now()
		job.Status = models.JobStatusFailed
		job.Error = message
		job.CompletedAt = &now
		return nil
	})
}

func (s *JobStorage) GetStaleJobs(ctx context.Context, startedBefore time.Time) ([]*models.Job, error) {
	// StartedAt is a pointer, so the cutoff is applied in memory
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing)); err != nil {
		return nil, fmt.Errorf("failed to find processing jobs: %w", err)
	}

	var stale []*models.Job
	for i := range jobs {
		if jobs[i].StartedAt == nil || jobs[i].StartedAt.Before(startedBefore) {
			stale = append(stale, &jobs[i])
		}
	}
	return stale, nil
}

// holdsLease checks the job is still PROCESSING under the claim stamped at lease.
// A recovered and reclaimed job carries a different StartedAt.
func holdsLease(job *models.Job, lease time.Time) error {
	if job.Status != models.JobStatusProcessing {
		return fmt.Errorf("%w: job is %s", models.ErrInvalidTransition, job.Status)
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(lease) {
		return fmt.Errorf("%w: lease superseded", models.ErrInvalidTransition)
	}
	return nil
}

// mutate applies fn to the stored job inside a transaction, retrying on conflicts
func (s *JobStorage) mutate(id string, fn func(job *models.Job) error) error {
	err := s.db.updateWithRetry(func(tx *badgerdb.Txn) error {
		var job models.Job
		if err := s.db.Store().TxGet(tx, id, &job); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
			}
			return err
		}
		if err := fn(&job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now()
		return s.db.Store().TxUpdate(tx, id, job)
	})
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	return nil
}
