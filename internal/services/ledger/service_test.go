package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

type memLedgerStorage struct {
	mu       sync.Mutex
	accounts map[string]models.CreditAccount
	claims   map[string]string // knowledgeBaseID -> accountID
	entries  []models.LedgerEntry
}

func newMemLedgerStorage() *memLedgerStorage {
	return &memLedgerStorage{
		accounts: make(map[string]models.CreditAccount),
		claims:   make(map[string]string),
	}
}

func (m *memLedgerStorage) GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, accountID)
	}
	return &account, nil
}

func (m *memLedgerStorage) PutAccount(ctx context.Context, account *models.CreditAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.AccountID] = *account
	return nil
}

func (m *memLedgerStorage) UpdateAccount(ctx context.Context, accountID string, fn func(*models.CreditAccount) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, accountID)
	}
	if err := fn(&account); err != nil {
		return err
	}
	m.accounts[accountID] = account
	return nil
}

func (m *memLedgerStorage) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memLedgerStorage) ClaimKnowledgeBase(ctx context.Context, knowledgeBaseID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.claims[knowledgeBaseID]
	if !ok {
		m.claims[knowledgeBaseID] = accountID
		return nil
	}
	if owner != accountID {
		return fmt.Errorf("%w: %s", models.ErrUnauthorizedKnowledgeBase, knowledgeBaseID)
	}
	return nil
}

func newTestLedger(storage interfaces.LedgerStorage) interfaces.CreditLedger {
	return NewService(storage, 1024, arbor.NewLogger())
}

func TestDeduct_SufficientBalance(t *testing.T) {
	storage := newMemLedgerStorage()
	svc := newTestLedger(storage)
	ctx := context.Background()

	_, err := svc.Grant(ctx, "acct-1", 10)
	require.NoError(t, err)

	remaining, err := svc.Deduct(ctx, "acct-1", 3, "query")
	require.NoError(t, err)
	assert.Equal(t, int64(7), remaining)

	balance, err := svc.Balance(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)
}

func TestDeduct_InsufficientBalance(t *testing.T) {
	storage := newMemLedgerStorage()
	svc := newTestLedger(storage)
	ctx := context.Background()

	_, err := svc.Grant(ctx, "acct-1", 2)
	require.NoError(t, err)

	_, err = svc.Deduct(ctx, "acct-1", 5, "query")
	require.Error(t, err)

	var insufficientErr *models.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, int64(5), insufficientErr.Required)
	assert.Equal(t, int64(2), insufficientErr.Available)

	// Balance untouched by the failed deduction
	balance, err := svc.Balance(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)
}

func TestDeduct_ConcurrentNeverNegative(t *testing.T) {
	storage := newMemLedgerStorage()
	svc := newTestLedger(storage)
	ctx := context.Background()

	_, err := svc.Grant(ctx, "acct-1", 50)
	require.NoError(t, err)

	const workers = 100
	var wg sync.WaitGroup
	var succeeded, failed int64
	var countMu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Deduct(ctx, "acct-1", 1, "concurrent")
			countMu.Lock()
			defer countMu.Unlock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), succeeded)
	assert.Equal(t, int64(50), failed)

	balance, err := svc.Balance(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestRefund_RestoresBalance(t *testing.T) {
	storage := newMemLedgerStorage()
	svc := newTestLedger(storage)
	ctx := context.Background()

	_, err := svc.Grant(ctx, "acct-1", 10)
	require.NoError(t, err)
	_, err = svc.Deduct(ctx, "acct-1", 6, "parse:job_x")
	require.NoError(t, err)

	remaining, err := svc.Refund(ctx, "acct-1", 6, "parse:job_x")
	require.NoError(t, err)
	assert.Equal(t, int64(10), remaining)
}

func TestBalance_UnknownAccountIsZero(t *testing.T) {
	svc := newTestLedger(newMemLedgerStorage())

	balance, err := svc.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestReserveBytes_EnforcesPlanLimit(t *testing.T) {
	storage := newMemLedgerStorage()
	svc := newTestLedger(storage) // 1024-byte cap
	ctx := context.Background()

	require.NoError(t, svc.ReserveBytes(ctx, "acct-1", 1000))

	err := svc.ReserveBytes(ctx, "acct-1", 100)
	require.Error(t, err)

	var limitErr *models.PlanLimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, int64(1000), limitErr.UsedBytes)
	assert.Equal(t, int64(100), limitErr.Requested)
	assert.Equal(t, int64(1024), limitErr.MaxBytes)

	// Releasing frees room for the same reservation
	require.NoError(t, svc.ReleaseBytes(ctx, "acct-1", 1000))
	require.NoError(t, svc.ReserveBytes(ctx, "acct-1", 100))
}

func TestReleaseBytes_ClampsAtZero(t *testing.T) {
	storage := newMemLedgerStorage()
	svc := newTestLedger(storage)
	ctx := context.Background()

	require.NoError(t, svc.ReserveBytes(ctx, "acct-1", 10))
	require.NoError(t, svc.ReleaseBytes(ctx, "acct-1", 500))

	account, err := storage.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.UsedBytes)
}

func TestAuthorize_FirstWriterWins(t *testing.T) {
	svc := newTestLedger(newMemLedgerStorage())
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "acct-1", "kb-1"))
	require.NoError(t, svc.Authorize(ctx, "acct-1", "kb-1")) // Owner re-entry is fine

	err := svc.Authorize(ctx, "acct-2", "kb-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnauthorizedKnowledgeBase))
}

func TestDeduct_WritesAuditTrail(t *testing.T) {
	storage := newMemLedgerStorage()
	svc := newTestLedger(storage)
	ctx := context.Background()

	_, err := svc.Grant(ctx, "acct-1", 10)
	require.NoError(t, err)
	_, err = svc.Deduct(ctx, "acct-1", 4, "query:fast")
	require.NoError(t, err)

	require.Len(t, storage.entries, 2)
	assert.Equal(t, int64(10), storage.entries[0].Amount)
	assert.Equal(t, int64(-4), storage.entries[1].Amount)
	assert.Equal(t, "query:fast", storage.entries[1].Reference)
}
