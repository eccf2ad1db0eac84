package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	job     interfaces.JobStorage
	keyword interfaces.KeywordStorage
	post    interfaces.PostStorage
	website interfaces.WebsiteStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := newManager(db, logger)
	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

func newManager(db *BadgerDB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:      db,
		job:     NewJobStorage(db, logger),
		keyword: NewKeywordStorage(db, logger),
		post:    NewPostStorage(db, logger),
		website: NewWebsiteStorage(db, logger),
		logger:  logger,
	}
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// KeywordStorage returns the Keyword storage interface
func (m *Manager) KeywordStorage() interfaces.KeywordStorage {
	return m.keyword
}

// PostStorage returns the BlogPost storage interface
func (m *Manager) PostStorage() interfaces.PostStorage {
	return m.post
}

// WebsiteStorage returns the Website storage interface
func (m *Manager) WebsiteStorage() interfaces.WebsiteStorage {
	return m.website
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
