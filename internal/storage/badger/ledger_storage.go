package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// LedgerStorage implements the LedgerStorage interface for Badger.
//
// UpdateAccount runs its mutation inside a single badger transaction so a
// conditional decrement is atomic at the storage level; the ledger service
// additionally serializes per account.
type LedgerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLedgerStorage creates a new LedgerStorage instance
func NewLedgerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LedgerStorage {
	return &LedgerStorage{
		db:     db,
		logger: logger,
	}
}

func (s *LedgerStorage) GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error) {
	var account models.CreditAccount
	if err := s.db.Store().Get(accountID, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *LedgerStorage) PutAccount(ctx context.Context, account *models.CreditAccount) error {
	if account.AccountID == "" {
		return fmt.Errorf("account ID is required")
	}
	account.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(account.AccountID, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *LedgerStorage) UpdateAccount(ctx context.Context, accountID string, fn func(*models.CreditAccount) error) error {
	store := s.db.Store()
	return store.Badger().Update(func(tx *badgerdb.Txn) error {
		var account models.CreditAccount
		if err := store.TxGet(tx, accountID, &account); err != nil {
			if err == badgerhold.ErrNotFound {
				return fmt.Errorf("%w: %s", models.ErrAccountNotFound, accountID)
			}
			return fmt.Errorf("failed to read account: %w", err)
		}

		if err := fn(&account); err != nil {
			return err
		}

		account.UpdatedAt = time.Now()
		if err := store.TxUpsert(tx, accountID, &account); err != nil {
			return fmt.Errorf("failed to write account: %w", err)
		}
		return nil
	})
}

func (s *LedgerStorage) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.db.Store().Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (s *LedgerStorage) ClaimKnowledgeBase(ctx context.Context, knowledgeBaseID, accountID string) error {
	store := s.db.Store()
	return store.Badger().Update(func(tx *badgerdb.Txn) error {
		var claim models.KnowledgeBaseClaim
		err := store.TxGet(tx, knowledgeBaseID, &claim)
		if err == badgerhold.ErrNotFound {
			claim = models.KnowledgeBaseClaim{
				KnowledgeBaseID: knowledgeBaseID,
				AccountID:       accountID,
				CreatedAt:       time.Now(),
			}
			if err := store.TxInsert(tx, knowledgeBaseID, &claim); err != nil {
				return fmt.Errorf("failed to claim knowledge base: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read knowledge base claim: %w", err)
		}

		if claim.AccountID != accountID {
			return fmt.Errorf("%w: %s", models.ErrUnauthorizedKnowledgeBase, knowledgeBaseID)
		}
		return nil
	})
}
