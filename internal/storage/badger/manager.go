package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	chunk    interfaces.ChunkStorage
	document interfaces.DocumentStorage
	job      interfaces.JobStorage
	ledger   interfaces.LedgerStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		chunk:    NewChunkStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		job:      NewJobStorage(db, logger),
		ledger:   NewLedgerStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ChunkStorage returns the Chunk storage interface
func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunk
}

// DocumentStorage returns the SourceDocument storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// JobStorage returns the ParseJob storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// LedgerStorage returns the credit ledger storage interface
func (m *Manager) LedgerStorage() interfaces.LedgerStorage {
	return m.ledger
}

// DB returns the underlying database connection
func (m *Manager) DB() *BadgerDB {
	return m.db
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
