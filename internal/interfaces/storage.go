package interfaces

import (
	"context"

	"github.com/ternarybob/corpus/internal/models"
)

// ChunkStorage persists chunks and their vectors, scoped by knowledge base
type ChunkStorage interface {
	SaveChunk(ctx context.Context, chunk *models.Chunk) error

	// GetChunksByKnowledgeBase returns every chunk in a knowledge base.
	// Both the duplicate scan and the query scan are built on this; a
	// future ANN index replaces the scan behind the similarity engine
	// without changing this contract's callers.
	GetChunksByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*models.Chunk, error)

	GetChunksByDocument(ctx context.Context, sourceDocumentID string) ([]*models.Chunk, error)
	DeleteChunk(ctx context.Context, id string) error
	DeleteChunksByDocument(ctx context.Context, sourceDocumentID string) (int, error)
	CountChunks(ctx context.Context, knowledgeBaseID string) (int, error)
	ClearKnowledgeBase(ctx context.Context, knowledgeBaseID string) error
}

// DocumentStorage persists source documents
type DocumentStorage interface {
	SaveDocument(ctx context.Context, doc *models.SourceDocument) error
	GetDocument(ctx context.Context, id string) (*models.SourceDocument, error)
	DocumentExists(ctx context.Context, id string) (bool, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, knowledgeBaseID string) ([]*models.SourceDocument, error)
	ListKnowledgeBaseIDs(ctx context.Context) ([]string, error)
	CountDocuments(ctx context.Context, knowledgeBaseID string) (int, error)
}

// JobStorage persists parse jobs
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.ParseJob) error
	GetJob(ctx context.Context, id string) (*models.ParseJob, error)
	UpdateJob(ctx context.Context, job *models.ParseJob) error
	ListJobsByAccount(ctx context.Context, accountID string) ([]*models.ParseJob, error)
}

// LedgerStorage persists credit accounts, knowledge base claims, and the
// audit trail of balance movements. Atomicity of balance updates is the
// ledger service's responsibility; UpdateAccount runs fn inside a single
// storage transaction.
type LedgerStorage interface {
	GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error)
	PutAccount(ctx context.Context, account *models.CreditAccount) error
	UpdateAccount(ctx context.Context, accountID string, fn func(*models.CreditAccount) error) error
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error

	// ClaimKnowledgeBase records first-writer ownership of a knowledge base.
	// Claiming an already-owned knowledge base for a different account
	// returns models.ErrUnauthorizedKnowledgeBase.
	ClaimKnowledgeBase(ctx context.Context, knowledgeBaseID, accountID string) error
}

// StorageManager aggregates the persistent collections
type StorageManager interface {
	ChunkStorage() ChunkStorage
	DocumentStorage() DocumentStorage
	JobStorage() JobStorage
	LedgerStorage() LedgerStorage
	Close() error
}

// ObjectStorage is the put/get-by-key store for raw uploaded files
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
