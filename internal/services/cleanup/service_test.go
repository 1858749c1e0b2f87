package cleanup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/models"
)

type fakeChunks struct {
	chunks  map[string]*models.Chunk
	failGet bool
}

func newFakeChunks() *fakeChunks {
	return &fakeChunks{chunks: make(map[string]*models.Chunk)}
}

func (f *fakeChunks) SaveChunk(ctx context.Context, chunk *models.Chunk) error {
	f.chunks[chunk.ID] = chunk
	return nil
}

func (f *fakeChunks) GetChunksByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*models.Chunk, error) {
	if f.failGet {
		return nil, fmt.Errorf("store unavailable")
	}
	var out []*models.Chunk
	for _, c := range f.chunks {
		if c.KnowledgeBaseID == knowledgeBaseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunks) GetChunksByDocument(ctx context.Context, sourceDocumentID string) ([]*models.Chunk, error) {
	return nil, nil
}

func (f *fakeChunks) DeleteChunk(ctx context.Context, id string) error {
	delete(f.chunks, id)
	return nil
}

func (f *fakeChunks) DeleteChunksByDocument(ctx context.Context, sourceDocumentID string) (int, error) {
	return 0, nil
}

func (f *fakeChunks) CountChunks(ctx context.Context, knowledgeBaseID string) (int, error) {
	count := 0
	for _, c := range f.chunks {
		if c.KnowledgeBaseID == knowledgeBaseID {
			count++
		}
	}
	return count, nil
}

func (f *fakeChunks) ClearKnowledgeBase(ctx context.Context, knowledgeBaseID string) error {
	return nil
}

type fakeDocs struct {
	existing  map[string]bool
	existsErr map[string]error
	docs      []*models.SourceDocument
	calls     int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{existing: make(map[string]bool), existsErr: make(map[string]error)}
}

func (f *fakeDocs) SaveDocument(ctx context.Context, doc *models.SourceDocument) error { return nil }

func (f *fakeDocs) GetDocument(ctx context.Context, id string) (*models.SourceDocument, error) {
	return nil, models.ErrDocumentNotFound
}

func (f *fakeDocs) DocumentExists(ctx context.Context, id string) (bool, error) {
	f.calls++
	if err := f.existsErr[id]; err != nil {
		return false, err
	}
	return f.existing[id], nil
}

func (f *fakeDocs) DeleteDocument(ctx context.Context, id string) error { return nil }

func (f *fakeDocs) ListDocuments(ctx context.Context, knowledgeBaseID string) ([]*models.SourceDocument, error) {
	var out []*models.SourceDocument
	for _, d := range f.docs {
		if d.KnowledgeBaseID == knowledgeBaseID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocs) ListKnowledgeBaseIDs(ctx context.Context) ([]string, error) {
	return []string{"kb-1"}, nil
}

func (f *fakeDocs) CountDocuments(ctx context.Context, knowledgeBaseID string) (int, error) {
	return 0, nil
}

func addChunk(chunks *fakeChunks, id, docID string) {
	chunks.chunks[id] = &models.Chunk{ID: id, KnowledgeBaseID: "kb-1", SourceDocumentID: docID}
}

func TestCleanupOrphans_RemovesOnlyOrphans(t *testing.T) {
	chunks := newFakeChunks()
	docs := newFakeDocs()
	docs.existing["doc-live"] = true

	addChunk(chunks, "c1", "doc-live")
	addChunk(chunks, "c2", "doc-live")
	addChunk(chunks, "c3", "doc-gone")

	svc := NewService(chunks, docs, arbor.NewLogger())
	result, err := svc.CleanupOrphans(context.Background(), "kb-1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.ChunksScanned)
	assert.Equal(t, 2, result.ChunksValid)
	assert.Equal(t, 1, result.ChunksRemoved)

	_, kept1 := chunks.chunks["c1"]
	_, kept2 := chunks.chunks["c2"]
	_, removed := chunks.chunks["c3"]
	assert.True(t, kept1)
	assert.True(t, kept2)
	assert.False(t, removed)
}

func TestCleanupOrphans_CachesExistenceChecks(t *testing.T) {
	chunks := newFakeChunks()
	docs := newFakeDocs()
	docs.existing["doc-live"] = true

	for i := 0; i < 10; i++ {
		addChunk(chunks, fmt.Sprintf("c%d", i), "doc-live")
	}

	svc := NewService(chunks, docs, arbor.NewLogger())
	_, err := svc.CleanupOrphans(context.Background(), "kb-1")
	require.NoError(t, err)

	assert.Equal(t, 1, docs.calls, "one existence lookup per document")
}

func TestCleanupOrphans_KeepsChunkOnCheckError(t *testing.T) {
	chunks := newFakeChunks()
	docs := newFakeDocs()
	docs.existsErr["doc-unknown"] = fmt.Errorf("store flaky")

	addChunk(chunks, "c1", "doc-unknown")

	svc := NewService(chunks, docs, arbor.NewLogger())
	result, err := svc.CleanupOrphans(context.Background(), "kb-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.ChunksValid)
	assert.Equal(t, 0, result.ChunksRemoved)
	_, kept := chunks.chunks["c1"]
	assert.True(t, kept)
}

func TestCleanupOrphans_EmptyKnowledgeBase(t *testing.T) {
	svc := NewService(newFakeChunks(), newFakeDocs(), arbor.NewLogger())

	result, err := svc.CleanupOrphans(context.Background(), "kb-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunksScanned)
}

func TestCleanupOrphans_StoreError(t *testing.T) {
	chunks := newFakeChunks()
	chunks.failGet = true

	svc := NewService(chunks, newFakeDocs(), arbor.NewLogger())
	_, err := svc.CleanupOrphans(context.Background(), "kb-1")
	require.Error(t, err)
}

func TestCleanupAll(t *testing.T) {
	chunks := newFakeChunks()
	docs := newFakeDocs()
	addChunk(chunks, "c1", "doc-gone")

	svc := NewService(chunks, docs, arbor.NewLogger())
	results, err := svc.CleanupAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ChunksRemoved)
}

func TestStats_SummarizesKnowledgeBase(t *testing.T) {
	chunks := newFakeChunks()
	docs := newFakeDocs()

	oldest := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	newest := time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC)
	docs.docs = []*models.SourceDocument{
		{ID: "doc-1", KnowledgeBaseID: "kb-1", SizeBytes: 1000, CreatedAt: oldest},
		{ID: "doc-2", KnowledgeBaseID: "kb-1", SizeBytes: 250, CreatedAt: newest},
		{ID: "doc-3", KnowledgeBaseID: "kb-other", SizeBytes: 9999, CreatedAt: newest},
	}
	addChunk(chunks, "c1", "doc-1")
	addChunk(chunks, "c2", "doc-1")
	addChunk(chunks, "c3", "doc-2")

	svc := NewService(chunks, docs, arbor.NewLogger())
	stats, err := svc.Stats(context.Background(), "kb-1")
	require.NoError(t, err)

	assert.Equal(t, "kb-1", stats.KnowledgeBaseID)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 3, stats.ChunkCount)
	assert.Equal(t, int64(1250), stats.TotalSizeBytes)
	assert.Equal(t, newest, stats.LastUpdated)
}

func TestStats_EmptyKnowledgeBase(t *testing.T) {
	svc := NewService(newFakeChunks(), newFakeDocs(), arbor.NewLogger())

	stats, err := svc.Stats(context.Background(), "kb-empty")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, 0, stats.ChunkCount)
	assert.Equal(t, int64(0), stats.TotalSizeBytes)
	assert.True(t, stats.LastUpdated.IsZero())
}
