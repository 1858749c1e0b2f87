package workers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/pdf"
)

// ParseWorker consumes parse job messages: it loads the uploaded file,
// extracts text, indexes the result as a parsed_job source document, and
// drives the job to a terminal state.
//
// Any error fails the job, which refunds the reserved credits. The
// worker never retries a deterministic parse failure.
type ParseWorker struct {
	jobs      interfaces.ParseJobService
	objects   interfaces.ObjectStorage
	ingest    interfaces.IngestService
	extractor *pdf.Extractor
	logger    arbor.ILogger
}

// NewParseWorker creates the parse job handler
func NewParseWorker(
	jobs interfaces.ParseJobService,
	objects interfaces.ObjectStorage,
	ingestService interfaces.IngestService,
	extractor *pdf.Extractor,
	logger arbor.ILogger,
) *ParseWorker {
	return &ParseWorker{
		jobs:      jobs,
		objects:   objects,
		ingest:    ingestService,
		extractor: extractor,
		logger:    logger,
	}
}

// Handle processes one parse job by ID
func (w *ParseWorker) Handle(ctx context.Context, jobID string) error {
	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		w.logger.Debug().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Msg("Skipping terminal job")
		return nil
	}

	if err := w.jobs.MarkProcessing(ctx, jobID); err != nil {
		return err
	}

	markdown, pageCount, err := w.parse(ctx, job)
	if err != nil {
		if failErr := w.jobs.Fail(ctx, jobID, err.Error()); failErr != nil {
			w.logger.Error().Err(failErr).Str("job_id", jobID).Msg("Failed to record job failure")
		}
		return err
	}

	meta, err := (&models.ParsedJobMetadata{
		JobID:     job.ID,
		FileName:  job.FileName,
		PageCount: pageCount,
	}).ToMap()
	if err != nil {
		meta = nil
	}

	result, err := w.ingest.Ingest(ctx, &interfaces.IngestRequest{
		AccountID:       job.AccountID,
		KnowledgeBaseID: job.KnowledgeBaseID,
		Content:         markdown,
		SourceLabel:     job.FileName,
		SourceType:      models.SourceTypeParsedJob,
		Metadata:        meta,
	})
	if err != nil {
		if failErr := w.jobs.Fail(ctx, jobID, fmt.Sprintf("indexing failed: %v", err)); failErr != nil {
			w.logger.Error().Err(failErr).Str("job_id", jobID).Msg("Failed to record job failure")
		}
		return err
	}

	if err := w.jobs.Complete(ctx, jobID, markdown, result.SourceDocumentID, pageCount); err != nil {
		return err
	}

	w.logger.Info().
		Str("job_id", jobID).
		Str("source_document_id", result.SourceDocumentID).
		Int("chunks_created", result.ChunksCreated).
		Msg("Parse job processed")

	return nil
}

// parse extracts markdown text from the uploaded file
func (w *ParseWorker) parse(ctx context.Context, job *models.ParseJob) (string, int, error) {
	data, err := w.objects.Get(ctx, job.ID)
	if err != nil {
		return "", 0, fmt.Errorf("failed to load uploaded file: %w", err)
	}

	if pdf.IsPDF(data) {
		text, err := w.extractor.ExtractText(ctx, data)
		if err != nil {
			return "", 0, fmt.Errorf("PDF extraction failed: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return "", 0, fmt.Errorf("PDF contains no extractable text")
		}
		return text, job.PageCount, nil
	}

	if !utf8.Valid(data) {
		return "", 0, fmt.Errorf("unsupported file format: not a PDF and not valid text")
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", 0, fmt.Errorf("file is empty")
	}
	return text, job.PageCount, nil
}
