package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/pdf"
)

type fakeJobService struct {
	jobs      map[string]*models.ParseJob
	failed    map[string]string
	completed map[string]string // jobID -> markdown
}

func newFakeJobService() *fakeJobService {
	return &fakeJobService{
		jobs:      make(map[string]*models.ParseJob),
		failed:    make(map[string]string),
		completed: make(map[string]string),
	}
}

func (f *fakeJobService) Submit(ctx context.Context, req *interfaces.SubmitParseRequest) (*models.ParseJob, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeJobService) GetJob(ctx context.Context, jobID string) (*models.ParseJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, jobID)
	}
	return job, nil
}

func (f *fakeJobService) MarkProcessing(ctx context.Context, jobID string) error { return nil }

func (f *fakeJobService) Complete(ctx context.Context, jobID, markdown, sourceDocumentID string, pageCount int) error {
	f.completed[jobID] = markdown
	f.jobs[jobID].Status = models.JobStatusCompleted
	return nil
}

func (f *fakeJobService) Fail(ctx context.Context, jobID, errorMessage string) error {
	f.failed[jobID] = errorMessage
	f.jobs[jobID].Status = models.JobStatusFailed
	return nil
}

func (f *fakeJobService) WaitForCompletion(ctx context.Context, jobID string, attempts int, interval time.Duration) (*models.ParseJob, error) {
	return f.GetJob(ctx, jobID)
}

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Put(ctx context.Context, key string, data []byte) error { return nil }

func (f *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.data[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return data, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error { return nil }

type fakeIngest struct {
	requests []*interfaces.IngestRequest
	err      error
}

func (f *fakeIngest) Ingest(ctx context.Context, req *interfaces.IngestRequest) (*models.IngestResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &models.IngestResult{SourceDocumentID: "doc_parsed", ChunksCreated: 2}, nil
}

func (f *fakeIngest) DeleteDocument(ctx context.Context, accountID, documentID string) error {
	return nil
}

func newWorkerEnv(fileBytes []byte) (*ParseWorker, *fakeJobService, *fakeIngest) {
	jobs := newFakeJobService()
	jobs.jobs["job_1"] = &models.ParseJob{
		ID:              "job_1",
		AccountID:       "acct-1",
		KnowledgeBaseID: "kb-1",
		FileName:        "notes.txt",
		Mode:            models.ParseModeCheap,
		PageCount:       2,
		Status:          models.JobStatusProcessing,
	}
	objects := &fakeObjects{data: map[string][]byte{"job_1": fileBytes}}
	ingestSvc := &fakeIngest{}
	logger := arbor.NewLogger()
	worker := NewParseWorker(jobs, objects, ingestSvc, pdf.NewExtractor(logger), logger)
	return worker, jobs, ingestSvc
}

func TestHandle_TextFileCompletes(t *testing.T) {
	worker, jobs, ingestSvc := newWorkerEnv([]byte("plain text notes\n"))

	require.NoError(t, worker.Handle(context.Background(), "job_1"))

	assert.Equal(t, "plain text notes", jobs.completed["job_1"])
	require.Len(t, ingestSvc.requests, 1)

	req := ingestSvc.requests[0]
	assert.Equal(t, models.SourceTypeParsedJob, req.SourceType)
	assert.Equal(t, "kb-1", req.KnowledgeBaseID)
	assert.Equal(t, "notes.txt", req.SourceLabel)
	assert.Equal(t, "job_1", req.Metadata["job_id"])
}

func TestHandle_EmptyFileFailsJob(t *testing.T) {
	worker, jobs, _ := newWorkerEnv([]byte("   \n"))

	err := worker.Handle(context.Background(), "job_1")
	require.Error(t, err)
	assert.Contains(t, jobs.failed["job_1"], "empty")
}

func TestHandle_BinaryGarbageFailsJob(t *testing.T) {
	worker, jobs, _ := newWorkerEnv([]byte{0xff, 0xfe, 0x00, 0x81})

	err := worker.Handle(context.Background(), "job_1")
	require.Error(t, err)
	assert.Contains(t, jobs.failed["job_1"], "unsupported file format")
}

func TestHandle_MissingObjectFailsJob(t *testing.T) {
	worker, jobs, _ := newWorkerEnv(nil)
	worker.objects = &fakeObjects{data: map[string][]byte{}}

	err := worker.Handle(context.Background(), "job_1")
	require.Error(t, err)
	assert.Contains(t, jobs.failed["job_1"], "failed to load uploaded file")
}

func TestHandle_IngestFailureFailsJob(t *testing.T) {
	worker, jobs, ingestSvc := newWorkerEnv([]byte("content"))
	ingestSvc.err = fmt.Errorf("store down")

	err := worker.Handle(context.Background(), "job_1")
	require.Error(t, err)
	assert.Contains(t, jobs.failed["job_1"], "indexing failed")
}

func TestHandle_TerminalJobIsSkipped(t *testing.T) {
	worker, jobs, ingestSvc := newWorkerEnv([]byte("content"))
	jobs.jobs["job_1"].Status = models.JobStatusCompleted

	require.NoError(t, worker.Handle(context.Background(), "job_1"))
	assert.Empty(t, ingestSvc.requests)
}

func TestHandle_UnknownJob(t *testing.T) {
	worker, _, _ := newWorkerEnv([]byte("content"))

	err := worker.Handle(context.Background(), "job_missing")
	require.ErrorIs(t, err, models.ErrJobNotFound)
}
