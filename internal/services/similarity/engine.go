package similarity

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
)

// DefaultDuplicateThreshold is the cosine similarity at or above which two
// chunks are considered semantically redundant. The boundary is inclusive.
const DefaultDuplicateThreshold = 0.85

// Engine applies the duplicate-detection threshold against a knowledge
// base's stored vectors.
//
// The current implementation is an O(n) exact scan per candidate. At
// production store sizes the scan should be replaced by an
// approximate-nearest-neighbor pre-filter followed by exact comparison;
// IsDuplicate's signature is the stable seam for that substitution.
type Engine struct {
	chunks    interfaces.ChunkStorage
	threshold float64
	logger    arbor.ILogger
}

// NewEngine creates a similarity engine. Thresholds outside (0, 1] fall
// back to the default.
func NewEngine(chunks interfaces.ChunkStorage, threshold float64, logger arbor.ILogger) *Engine {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDuplicateThreshold
	}
	return &Engine{
		chunks:    chunks,
		threshold: threshold,
		logger:    logger,
	}
}

// Threshold returns the configured duplicate threshold
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// IsDuplicate reports whether the candidate vector is within the duplicate
// threshold of any vector already stored in the knowledge base.
// Deduplication is deliberately cross-document: a chunk re-derived from a
// different file is still rejected if the same semantic unit is indexed.
func (e *Engine) IsDuplicate(ctx context.Context, candidate []float32, knowledgeBaseID string) (bool, error) {
	existing, err := e.chunks.GetChunksByKnowledgeBase(ctx, knowledgeBaseID)
	if err != nil {
		return false, fmt.Errorf("duplicate scan failed for knowledge base %s: %w", knowledgeBaseID, err)
	}

	for _, chunk := range existing {
		if Cosine(candidate, chunk.Vector) >= e.threshold {
			return true, nil
		}
	}

	return false, nil
}

// IsDuplicateOfAny checks the candidate against an in-memory vector set.
// The ingestion orchestrator uses it for document-local suppression: a
// later chunk must be checked against chunks already accepted within the
// same ingestion call, not just the persisted store.
func (e *Engine) IsDuplicateOfAny(candidate []float32, accepted [][]float32) bool {
	for _, v := range accepted {
		if Cosine(candidate, v) >= e.threshold {
			return true
		}
	}
	return false
}
