package embeddings

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

type fakeProvider struct {
	calls    atomic.Int64
	failUpTo int64 // fail the first N calls
	vector   []float32
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	n := f.calls.Add(1)
	if n <= f.failUpTo {
		return nil, fmt.Errorf("transient provider error")
	}
	if f.vector != nil {
		return f.vector, nil
	}
	// Deterministic per-text vector so batch order is checkable
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeProvider) Dimension() int    { return 2 }
func (f *fakeProvider) ModelName() string { return "fake-embed-001" }

func newTestService(p Provider) *Service {
	return &Service{
		provider:     p,
		limiter:      rate.NewLimiter(rate.Inf, 1),
		maxRetries:   2,
		retryBackoff: time.Millisecond,
		timeout:      time.Second,
		logger:       arbor.NewLogger(),
	}
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{failUpTo: 2, vector: []float32{1, 0}}
	svc := newTestService(provider)

	vector, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vector)
	assert.Equal(t, int64(3), provider.calls.Load())
}

func TestEmbed_ExhaustsRetries(t *testing.T) {
	provider := &fakeProvider{failUpTo: 100}
	svc := newTestService(provider)

	_, err := svc.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestEmbed_RejectsEmptyText(t *testing.T) {
	svc := newTestService(&fakeProvider{})

	_, err := svc.Embed(context.Background(), "")
	require.Error(t, err)
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	svc := newTestService(&fakeProvider{})

	texts := []string{"a", "bb", "ccc", "dddd"}
	vectors, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc := newTestService(&fakeProvider{})

	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedQuery_SameModelAsIngest(t *testing.T) {
	svc := newTestService(&fakeProvider{})

	vector, err := svc.EmbedQuery(context.Background(), "what is corpus")
	require.NoError(t, err)
	assert.Len(t, vector, svc.Dimension())
	assert.Equal(t, "fake-embed-001", svc.ModelName())
}

func TestL2Normalize(t *testing.T) {
	v := []float32{3, 4}
	l2normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	l2normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}
