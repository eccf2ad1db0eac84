package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// WebsiteStorage implements the WebsiteStorage interface for Badger,
// including the per-month usage counters
type WebsiteStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWebsiteStorage creates a new WebsiteStorage instance
func NewWebsiteStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WebsiteStorage {
	return &WebsiteStorage{
		db:     db,
		logger: logger,
	}
}

func (s *WebsiteStorage) SaveWebsite(ctx context.Context, website *models.Website) error {
	if website.ID == "" {
		return fmt.Errorf("website ID is required")
	}
	website.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(website.ID, *website); err != nil {
		return fmt.Errorf("failed to save website: %w", err)
	}
	return nil
}

func (s *WebsiteStorage) GetWebsite(ctx context.Context, id string) (*models.Website, error) {
	var website models.Website
	if err := s.db.Store().Get(id, &website); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrWebsiteNotFound, id)
		}
		return nil, fmt.Errorf("failed to get website: %w", err)
	}
	return &website, nil
}

func (s *WebsiteStorage) ListWebsites(ctx context.Context) ([]*models.Website, error) {
	var websites []models.Website
	if err := s.db.Store().Find(&websites, (&badgerhold.Query{}).SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list websites: %w", err)
	}
	result := make([]*models.Website, 0, len(websites))
	for i := range websites {
		result = append(result, &websites[i])
	}
	return result, nil
}

// IncrementUsage upserts the usage record for the period and returns the new count
func (s *WebsiteStorage) IncrementUsage(ctx context.Context, websiteID, period string) (int, error) {
	key := models.UsageKey(websiteID, period)
	count := 0

	err := s.db.updateWithRetry(func(tx *badgerdb.Txn) error {
		var record models.UsageRecord
		err := s.db.Store().TxGet(tx, key, &record)
		switch {
		case errors.Is(err, badgerhold.ErrNotFound):
			record = models.UsageRecord{ID: key, WebsiteID: websiteID, Period: period}
		case err != nil:
			return err
		}

		record.ArticlesGenerated++
		record.UpdatedAt = time.Now()
		count = record.ArticlesGenerated
		return s.db.Store().TxUpsert(tx, key, record)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return count, nil
}

func (s *WebsiteStorage) GetUsage(ctx context.Context, websiteID, period string) (int, error) {
	var record models.UsageRecord
	if err := s.db.Store().Get(models.UsageKey(websiteID, period), &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}
	return record.ArticlesGenerated, nil
}
