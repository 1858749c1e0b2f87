package models

import (
	"time"
)

// CreditAccount tracks a per-account prepaid balance and cumulative
// knowledge base usage against the plan size cap.
//
// Balance never goes negative: the only decrement path is the ledger's
// atomic deduct-if-sufficient operation.
type CreditAccount struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`

	// UsedBytes is the cumulative submitted size of all source documents
	// owned by this account, checked against MaxStoreBytes before ingest.
	UsedBytes     int64 `json:"used_bytes"`
	MaxStoreBytes int64 `json:"max_store_bytes"`

	UpdatedAt time.Time `json:"updated_at"`
}

// KnowledgeBaseClaim records first-writer ownership of a knowledge base by
// an account. Access by any other account is rejected.
type KnowledgeBaseClaim struct {
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	AccountID       string    `json:"account_id" badgerholdIndex:"AccountID"`
	CreatedAt       time.Time `json:"created_at"`
}

// LedgerEntry records a single balance movement for audit purposes
type LedgerEntry struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id" badgerholdIndex:"AccountID"`
	Amount    int64     `json:"amount"` // Negative for deductions, positive for refunds/grants
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}
