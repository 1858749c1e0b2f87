package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// Service implements the credit ledger over LedgerStorage.
//
// Balance mutations are serialized per account with a keyed mutex on top
// of the storage transaction, so concurrent deductions observe each
// other and the balance can never go negative.
type Service struct {
	storage          interfaces.LedgerStorage
	defaultMaxBytes  int64
	logger           arbor.ILogger
	mu               sync.Mutex
	accountLocks     map[string]*sync.Mutex
}

// NewService creates a credit ledger
func NewService(storage interfaces.LedgerStorage, defaultMaxBytes int64, logger arbor.ILogger) interfaces.CreditLedger {
	return &Service{
		storage:         storage,
		defaultMaxBytes: defaultMaxBytes,
		logger:          logger,
		accountLocks:    make(map[string]*sync.Mutex),
	}
}

// lockAccount returns the mutex serializing mutations for one account
func (s *Service) lockAccount(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[accountID] = lock
	}
	return lock
}

// update runs fn against the account row inside a storage transaction,
// creating the account with a zero balance on first reference.
func (s *Service) update(ctx context.Context, accountID string, fn func(*models.CreditAccount) error) error {
	err := s.storage.UpdateAccount(ctx, accountID, fn)
	if errors.Is(err, models.ErrAccountNotFound) {
		account := &models.CreditAccount{
			AccountID:     accountID,
			MaxStoreBytes: s.defaultMaxBytes,
		}
		if err := fn(account); err != nil {
			return err
		}
		return s.storage.PutAccount(ctx, account)
	}
	return err
}

func (s *Service) Deduct(ctx context.Context, accountID string, amount int64, reference string) (int64, error) {
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	var remaining int64
	err := s.update(ctx, accountID, func(account *models.CreditAccount) error {
		if account.Balance < amount {
			return &models.InsufficientCreditsError{
				AccountID: accountID,
				Required:  amount,
				Available: account.Balance,
			}
		}
		account.Balance -= amount
		remaining = account.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.appendEntry(ctx, accountID, -amount, reference)

	s.logger.Info().
		Str("account_id", accountID).
		Int64("amount", amount).
		Int64("remaining", remaining).
		Str("reference", reference).
		Msg("Credits deducted")

	return remaining, nil
}

func (s *Service) Refund(ctx context.Context, accountID string, amount int64, reference string) (int64, error) {
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	var remaining int64
	err := s.update(ctx, accountID, func(account *models.CreditAccount) error {
		account.Balance += amount
		remaining = account.Balance
		return nil
	})

	// The refund outcome is always logged: a failed refund means an
	// account was charged for work it never received.
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("account_id", accountID).
			Int64("amount", amount).
			Str("reference", reference).
			Msg("Refund failed")
		return 0, err
	}

	s.appendEntry(ctx, accountID, amount, reference)

	s.logger.Info().
		Str("account_id", accountID).
		Int64("amount", amount).
		Int64("remaining", remaining).
		Str("reference", reference).
		Msg("Credits refunded")

	return remaining, nil
}

func (s *Service) Grant(ctx context.Context, accountID string, amount int64) (int64, error) {
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	var remaining int64
	err := s.update(ctx, accountID, func(account *models.CreditAccount) error {
		account.Balance += amount
		remaining = account.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.appendEntry(ctx, accountID, amount, "grant")

	return remaining, nil
}

func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	account, err := s.storage.GetAccount(ctx, accountID)
	if errors.Is(err, models.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *Service) ReserveBytes(ctx context.Context, accountID string, n int64) error {
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	return s.update(ctx, accountID, func(account *models.CreditAccount) error {
		maxBytes := account.MaxStoreBytes
		if maxBytes <= 0 {
			maxBytes = s.defaultMaxBytes
		}
		if maxBytes > 0 && account.UsedBytes+n > maxBytes {
			return &models.PlanLimitExceededError{
				AccountID: accountID,
				UsedBytes: account.UsedBytes,
				Requested: n,
				MaxBytes:  maxBytes,
			}
		}
		account.UsedBytes += n
		return nil
	})
}

func (s *Service) ReleaseBytes(ctx context.Context, accountID string, n int64) error {
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	return s.update(ctx, accountID, func(account *models.CreditAccount) error {
		account.UsedBytes -= n
		if account.UsedBytes < 0 {
			account.UsedBytes = 0
		}
		return nil
	})
}

func (s *Service) Authorize(ctx context.Context, accountID, knowledgeBaseID string) error {
	return s.storage.ClaimKnowledgeBase(ctx, knowledgeBaseID, accountID)
}

// appendEntry records the audit trail entry. Audit failures are logged
// but never fail the balance operation itself.
func (s *Service) appendEntry(ctx context.Context, accountID string, amount int64, reference string) {
	entry := &models.LedgerEntry{
		AccountID: accountID,
		Amount:    amount,
		Reference: reference,
		CreatedAt: time.Now(),
	}
	if err := s.storage.AppendEntry(ctx, entry); err != nil {
		s.logger.Warn().
			Err(err).
			Str("account_id", accountID).
			Msg("Failed to append ledger entry")
	}
}
