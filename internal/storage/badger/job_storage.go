package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
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

func (s *JobStorage) SaveJob(ctx context.Context, job *models.ParseJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid parse job: %w", err)
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.ParseJob, error) {
	var job models.ParseJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpdateJob persists a job mutation. The transition guard lives in the
// parse job service; storage only rejects updates to unknown jobs.
func (s *JobStorage) UpdateJob(ctx context.Context, job *models.ParseJob) error {
	if err := s.db.Store().Update(job.ID, job); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: %s", models.ErrJobNotFound, job.ID)
		}
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (s *JobStorage) ListJobsByAccount(ctx context.Context, accountID string) ([]*models.ParseJob, error) {
	var jobs []models.ParseJob
	err := s.db.Store().Find(&jobs, badgerhold.Where("AccountID").Eq(accountID).Index("AccountID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for account %s: %w", accountID, err)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	result := make([]*models.ParseJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}
