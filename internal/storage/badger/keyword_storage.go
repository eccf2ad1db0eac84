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

// KeywordStorage implements the KeywordStorage interface for Badger
type KeywordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKeywordStorage creates a new KeywordStorage instance
func NewKeywordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeywordStorage {
	return &KeywordStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KeywordStorage) SaveKeyword(ctx context.Context, keyword *models.Keyword) error {
	if keyword.ID == "" {
		return fmt.Errorf("keyword ID is required")
	}
	keyword.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(keyword.ID, *keyword); err != nil {
		return fmt.Errorf("failed to save keyword: %w", err)
	}
	return nil
}

func (s *KeywordStorage) GetKeyword(ctx context.Context, id string) (*models.Keyword, error) {
	var keyword models.Keyword
	if err := s.db.Store().Get(id, &keyword); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrKeywordNotFound, id)
		}
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}
	return &keyword, nil
}

func (s *KeywordStorage) ListKeywords(ctx context.Context, websiteID string) ([]*models.Keyword, error) {
	query := (&badgerhold.Query{}).SortBy("CreatedAt")
	if websiteID != "" {
		query = badgerhold.Where("WebsiteID").Eq(websiteID).SortBy("CreatedAt")
	}

	var keywords []models.Keyword
	if err := s.db.Store().Find(&keywords, query); err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}

	result := make([]*models.Keyword, 0, len(keywords))
	for i := range keywords {
		result = append(result, &keywords[i])
	}
	return result, nil
}

// ReserveKeyword moves an enqueueable keyword to RESEARCHING. Concurrent reservations
// conflict in the transaction and the retry observes the winner's status.
func (s *KeywordStorage) ReserveKeyword(ctx context.Context, id string) error {
	return s.mutate(id, func(keyword *models.Keyword) error {
		if keyword.Status.IsBusy() {
			return fmt.Errorf("%w: %s is %s", models.ErrKeywordBusy, id, keyword.Status)
		}
		if !keyword.Status.CanEnqueue() {
			return fmt.Errorf("%w: cannot enqueue %s keyword", models.ErrInvalidTransition, keyword.Status)
		}
		keyword.Status = models.KeywordStatusResearching
		return nil
	})
}

func (s *KeywordStorage) UpdateKeywordStatus(ctx context.Context, id string, status models.KeywordStatus) error {
	return s.mutate(id, func(keyword *models.Keyword) error {
		keyword.Status = status
		return nil
	})
}

func (s *KeywordStorage) TransitionKeyword(ctx context.Context, id string, from, to models.KeywordStatus) error {
	return s.mutate(id, func(keyword *models.Keyword) error {
		if keyword.Status != from {
			return fmt.Errorf("%w: keyword is %s, expected %s", models.ErrInvalidTransition, keyword.Status, from)
		}
		keyword.Status = to
		return nil
	})
}

// ReleaseForRetry resets a keyword to PENDING ahead of a retry, refusing while
// another job holds it.
func (s *KeywordStorage) ReleaseForRetry(ctx context.Context, id string) error {
	return s.mutate(id, func(keyword *models.Keyword) error {
		if keyword.Status.IsBusy() {
			return fmt.Errorf("%w: %s is %s", models.ErrKeywordBusy, id, keyword.Status)
		}
		if !keyword.Status.CanEnqueue() {
			return fmt.Errorf("%w: cannot retry %s keyword", models.ErrInvalidTransition, keyword.Status)
		}
		keyword.Status = models.KeywordStatusPending
		return nil
	})
}

func (s *KeywordStorage) MarkKeywordFailed(ctx context.Context, id string) error {
	return s.mutate(id, func(keyword *models.Keyword) error {
		keyword.Status = models.KeywordStatusFailed
		keyword.RetryCount++
		return nil
	})
}

func (s *KeywordStorage) CompleteKeyword(ctx context.Context, id, postID string) error {
	return s.mutate(id, func(keyword *models.Keyword) error {
		keyword.Status = models.KeywordStatusCompleted
		keyword.BlogPostID = postID
		return nil
	})
}

func (s *KeywordStorage) mutate(id string, fn func(keyword *models.Keyword) error) error {
	return s.db.updateWithRetry(func(tx *badgerdb.Txn) error {
		var keyword models.Keyword
		if err := s.db.Store().TxGet(tx, id, &keyword); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("%w: %s", models.ErrKeywordNotFound, id)
			}
			return fmt.Errorf("failed to get keyword: %w", err)
		}
		if err := fn(&keyword); err != nil {
			return err
		}
		keyword.UpdatedAt = time.Now()
		return s.db.Store().TxUpdate(tx, id, keyword)
	})
}
