package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique source document ID
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewChunkID generates a unique chunk ID
// Format: chk_<uuid>
func NewChunkID() string {
	return "chk_" + uuid.New().String()
}

// NewJobID generates a unique parse job ID
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}
