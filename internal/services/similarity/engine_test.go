package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/models"
)

// fakeChunkStorage serves canned vectors for one knowledge base
type fakeChunkStorage struct {
	chunks []*models.Chunk
	err    error
}

func (f *fakeChunkStorage) SaveChunk(ctx context.Context, chunk *models.Chunk) error {
	f.chunks = append(f.chunks, chunk)
	return nil
}

func (f *fakeChunkStorage) GetChunksByKnowledgeBase(ctx context.Context, kbID string) ([]*models.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func (f *fakeChunkStorage) GetChunksByDocument(ctx context.Context, docID string) ([]*models.Chunk, error) {
	return nil, nil
}

func (f *fakeChunkStorage) DeleteChunk(ctx context.Context, id string) error { return nil }

func (f *fakeChunkStorage) DeleteChunksByDocument(ctx context.Context, docID string) (int, error) {
	return 0, nil
}

func (f *fakeChunkStorage) CountChunks(ctx context.Context, kbID string) (int, error) {
	return len(f.chunks), nil
}

func (f *fakeChunkStorage) ClearKnowledgeBase(ctx context.Context, kbID string) error { return nil }

func storedVector(v []float32) *models.Chunk {
	return &models.Chunk{ID: "chk_test", KnowledgeBaseID: "kb1", Vector: v}
}

func TestIsDuplicate_InclusiveBoundary(t *testing.T) {
	// Cosine((3,4),(4,3)) is exactly 24/25 = 0.96; with the threshold set
	// to the same value the boundary must count as duplicate.
	store := &fakeChunkStorage{chunks: []*models.Chunk{storedVector([]float32{3, 4})}}
	engine := NewEngine(store, 0.96, arbor.NewLogger())

	dup, err := engine.IsDuplicate(context.Background(), []float32{4, 3}, "kb1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dup {
		t.Error("similarity exactly at threshold must be treated as duplicate")
	}
}

func TestIsDuplicate_BelowThresholdIsUnique(t *testing.T) {
	store := &fakeChunkStorage{chunks: []*models.Chunk{storedVector([]float32{1, 0})}}
	engine := NewEngine(store, 0.96, arbor.NewLogger())

	dup, err := engine.IsDuplicate(context.Background(), []float32{0, 1}, "kb1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup {
		t.Error("orthogonal vector must not be a duplicate")
	}
}

func TestIsDuplicate_EmptyStore(t *testing.T) {
	engine := NewEngine(&fakeChunkStorage{}, 0.85, arbor.NewLogger())

	dup, err := engine.IsDuplicate(context.Background(), []float32{1, 2, 3}, "kb1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup {
		t.Error("empty store can contain no duplicates")
	}
}

func TestIsDuplicate_StoreErrorPropagates(t *testing.T) {
	store := &fakeChunkStorage{err: errors.New("store unavailable")}
	engine := NewEngine(store, 0.85, arbor.NewLogger())

	_, err := engine.IsDuplicate(context.Background(), []float32{1, 0}, "kb1")
	if err == nil {
		t.Fatal("expected error from unavailable store")
	}
}

func TestIsDuplicateOfAny(t *testing.T) {
	engine := NewEngine(&fakeChunkStorage{}, 0.96, arbor.NewLogger())

	accepted := [][]float32{{1, 0}, {3, 4}}
	if !engine.IsDuplicateOfAny([]float32{4, 3}, accepted) {
		t.Error("expected duplicate against locally accepted vectors")
	}
	if engine.IsDuplicateOfAny([]float32{0, 1}, nil) {
		t.Error("no accepted vectors means no duplicate")
	}
}

func TestNewEngine_ClampsThreshold(t *testing.T) {
	engine := NewEngine(&fakeChunkStorage{}, 0, arbor.NewLogger())
	if engine.Threshold() != DefaultDuplicateThreshold {
		t.Errorf("expected default threshold, got %f", engine.Threshold())
	}

	engine = NewEngine(&fakeChunkStorage{}, 1.5, arbor.NewLogger())
	if engine.Threshold() != DefaultDuplicateThreshold {
		t.Errorf("expected default threshold for out-of-range value, got %f", engine.Threshold())
	}
}
