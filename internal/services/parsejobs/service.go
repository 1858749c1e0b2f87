package parsejobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/pdf"
)

// Service orchestrates the credit-metered asynchronous parse path.
//
// Submit charges up front: page count is determined (or estimated), the
// cost is deducted, and only then does the job row exist. Every failure
// after the deduction compensates with a refund and a FAILED status.
type Service struct {
	jobs      interfaces.JobStorage
	objects   interfaces.ObjectStorage
	queue     interfaces.JobQueue
	ledger    interfaces.CreditLedger
	extractor *pdf.Extractor
	credits   *common.CreditsConfig
	logger    arbor.ILogger
}

// NewService creates the parse job service
func NewService(
	jobs interfaces.JobStorage,
	objects interfaces.ObjectStorage,
	jobQueue interfaces.JobQueue,
	creditLedger interfaces.CreditLedger,
	extractor *pdf.Extractor,
	credits *common.CreditsConfig,
	logger arbor.ILogger,
) interfaces.ParseJobService {
	return &Service{
		jobs:      jobs,
		objects:   objects,
		queue:     jobQueue,
		ledger:    creditLedger,
		extractor: extractor,
		credits:   credits,
		logger:    logger,
	}
}

func (s *Service) Submit(ctx context.Context, req *interfaces.SubmitParseRequest) (*models.ParseJob, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("invalid parse mode: %s", req.Mode)
	}
	if len(req.FileBytes) == 0 {
		return nil, fmt.Errorf("file content is required")
	}

	if err := s.ledger.Authorize(ctx, req.AccountID, req.KnowledgeBaseID); err != nil {
		return nil, err
	}

	pageCount, err := s.pageCount(ctx, req.FileBytes)
	if err != nil {
		return nil, err
	}

	cost := int64(pageCount) * s.perPageRate(req.Mode)
	jobID := common.NewJobID()
	reference := fmt.Sprintf("parse:%s", jobID)

	// Charge before the job row exists so an insufficient balance never
	// leaves a dangling PENDING job.
	if _, err := s.ledger.Deduct(ctx, req.AccountID, cost, reference); err != nil {
		return nil, err
	}

	job := &models.ParseJob{
		ID:              jobID,
		AccountID:       req.AccountID,
		KnowledgeBaseID: req.KnowledgeBaseID,
		FileName:        req.FileName,
		FileSizeBytes:   int64(len(req.FileBytes)),
		Mode:            req.Mode,
		PageCount:       pageCount,
		CreditsReserved: cost,
		Status:          models.JobStatusPending,
		CreatedAt:       time.Now(),
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.refund(ctx, req.AccountID, cost, reference)
		return nil, fmt.Errorf("failed to create parse job: %w", err)
	}

	if err := s.objects.Put(ctx, jobID, req.FileBytes); err != nil {
		s.refund(ctx, req.AccountID, cost, reference)
		s.failJob(ctx, job, fmt.Sprintf("file upload failed: %v", err))
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	if err := s.transition(ctx, job, models.JobStatusUploaded); err != nil {
		s.refund(ctx, req.AccountID, cost, reference)
		s.failJob(ctx, job, fmt.Sprintf("status update failed: %v", err))
		return nil, fmt.Errorf("failed to mark job uploaded: %w", err)
	}

	if err := s.queue.Enqueue(ctx, jobID); err != nil {
		s.refund(ctx, req.AccountID, cost, reference)
		s.failJob(ctx, job, fmt.Sprintf("enqueue failed: %v", err))
		return nil, fmt.Errorf("failed to enqueue parse job: %w", err)
	}

	// The job is PROCESSING from the caller's perspective the moment it
	// is queued; pollers never observe UPLOADED after Submit returns.
	if err := s.transition(ctx, job, models.JobStatusProcessing); err != nil {
		s.refund(ctx, req.AccountID, cost, reference)
		s.failJob(ctx, job, fmt.Sprintf("status update failed: %v", err))
		return nil, fmt.Errorf("failed to mark job processing: %w", err)
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("account_id", req.AccountID).
		Str("mode", string(req.Mode)).
		Int("page_count", pageCount).
		Int64("credits", cost).
		Msg("Parse job submitted")

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*models.ParseJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// MarkProcessing moves a job to PROCESSING. Already-PROCESSING jobs are
// left untouched so the worker pickup is idempotent with the transition
// Submit already made.
func (s *Service) MarkProcessing(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusProcessing {
		return nil
	}
	return s.transition(ctx, job, models.JobStatusProcessing)
}

func (s *Service) Complete(ctx context.Context, jobID, markdown, sourceDocumentID string, pageCount int) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if !job.Status.CanTransitionTo(models.JobStatusCompleted) {
		return &models.InvalidTransitionError{JobID: jobID, From: job.Status, To: models.JobStatusCompleted}
	}

	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.Markdown = markdown
	job.SourceDocumentID = sourceDocumentID
	if pageCount > 0 {
		job.PageCount = pageCount
	}
	job.CompletedAt = &now

	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return err
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("source_document_id", sourceDocumentID).
		Int64("elapsed_ms", job.ProcessingTime().Milliseconds()).
		Msg("Parse job completed")

	return nil
}

// Fail moves the job to FAILED and refunds the reserved credits. The
// account only pays for parses that complete.
func (s *Service) Fail(ctx context.Context, jobID, errorMessage string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if !job.Status.CanTransitionTo(models.JobStatusFailed) {
		return &models.InvalidTransitionError{JobID: jobID, From: job.Status, To: models.JobStatusFailed}
	}

	s.refund(ctx, job.AccountID, job.CreditsReserved, fmt.Sprintf("parse:%s", jobID))
	s.failJob(ctx, job, errorMessage)
	return nil
}

func (s *Service) WaitForCompletion(ctx context.Context, jobID string, attempts int, interval time.Duration) (*models.ParseJob, error) {
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		job, err := s.jobs.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, fmt.Errorf("job %s did not complete within %d attempts", jobID, attempts)
}

// pageCount reads the real page count for PDFs and estimates by size
// for everything else.
func (s *Service) pageCount(ctx context.Context, data []byte) (int, error) {
	if pdf.IsPDF(data) {
		count, err := s.extractor.PageCount(ctx, data)
		if err != nil {
			return 0, fmt.Errorf("failed to count PDF pages: %w", err)
		}
		return count, nil
	}
	return estimatePageCount(int64(len(data))), nil
}

func (s *Service) perPageRate(mode models.ParseMode) int64 {
	switch mode {
	case models.ParseModePremium:
		return s.credits.PremiumPerPage
	case models.ParseModeStandard:
		return s.credits.StandardPerPage
	default:
		return s.credits.CheapPerPage
	}
}

// transition applies a monotonic status change and persists it
func (s *Service) transition(ctx context.Context, job *models.ParseJob, next models.JobStatus) error {
	if !job.Status.CanTransitionTo(next) {
		return &models.InvalidTransitionError{JobID: job.ID, From: job.Status, To: next}
	}
	job.Status = next
	return s.jobs.UpdateJob(ctx, job)
}

// failJob forces the FAILED terminal state; persistence errors here are
// logged since the caller is already on a failure path.
func (s *Service) failJob(ctx context.Context, job *models.ParseJob, errorMessage string) {
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = errorMessage
	job.CompletedAt = &now
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		s.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to persist job failure")
	}

	s.logger.Warn().
		Str("job_id", job.ID).
		Str("error", errorMessage).
		Msg("Parse job failed")
}

// refund compensates a charged account; the outcome is always logged
func (s *Service) refund(ctx context.Context, accountID string, amount int64, reference string) {
	if _, err := s.ledger.Refund(ctx, accountID, amount, reference); err != nil {
		s.logger.Error().
			Err(err).
			Str("account_id", accountID).
			Int64("amount", amount).
			Str("reference", reference).
			Msg("Refund failed")
	}
}
