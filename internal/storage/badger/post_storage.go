package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PostStorage implements the PostStorage interface for Badger
type PostStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPostStorage creates a new PostStorage instance
func NewPostStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PostStorage {
	return &PostStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PostStorage) SavePost(ctx context.Context, post *models.BlogPost) error {
	if post.ID == "" {
		return fmt.Errorf("post ID is required")
	}
	post.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(post.ID, *post); err != nil {
		s.logger.Error().Err(err).Str("post_id", post.ID).Msg("BadgerDB: Failed to upsert post")
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

func (s *PostStorage) GetPost(ctx context.Context, id string) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := s.db.Store().Get(id, &post); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrPostNotFound, id)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

func (s *PostStorage) ListPosts(ctx context.Context, websiteID string) ([]*models.BlogPost, error) {
	var query *badgerhold.Query
	if websiteID != "" {
		query = badgerhold.Where("WebsiteID").Eq(websiteID)
	}

	var posts []models.BlogPost
	if err := s.db.Store().Find(&posts, query); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	result := make([]*models.BlogPost, 0, len(posts))
	for i := range posts {
		result = append(result, &posts[i])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *PostStorage) SlugExists(ctx context.Context, websiteID, slug string) (bool, error) {
	count, err := s.db.Store().Count(&models.BlogPost{},
		badgerhold.Where("Slug").Eq(slug).And("WebsiteID").Eq(websiteID))
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}

func (s *PostStorage) DeletePost(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, models.BlogPost{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrPostNotFound, id)
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

func (s *PostStorage) ListRecentPublished(ctx context.Context, websiteID, excludeID string, limit int) ([]*models.BlogPost, error) {
	var posts []models.BlogPost
	query := badgerhold.Where("WebsiteID").Eq(websiteID).And("Status").Eq(models.PostStatusPublished)
	if err := s.db.Store().Find(&posts, query); err != nil {
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}

	// PublishedAt is a pointer, so ordering happens in memory
	result := make([]*models.BlogPost, 0, len(posts))
	for i := range posts {
		if posts[i].ID == excludeID {
			continue
		}
		result = append(result, &posts[i])
	}
	sort.Slice(result, func(i, j int) bool {
		return publishedTime(result[i]).After(publishedTime(result[j]))
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func publishedTime(post *models.BlogPost) time.Time {
	if post.PublishedAt != nil {
		return *post.PublishedAt
	}
	return post.CreatedAt
}

func (s *PostStorage) UpdatePostContent(ctx context.Context, id, content string) error {
	_, err := s.mutate(id, func(post *models.BlogPost) error {
		post.Article.Content = content
		return nil
	})
	return err
}

// MarkPublished sets the post published. Publishing an already published post keeps
// the original timestamp.
func (s *PostStorage) MarkPublished(ctx context.Context, id string, at time.Time) (*models.BlogPost, error) {
	return s.mutate(id, func(post *models.BlogPost) error {
		if post.Status == models.PostStatusPublished && post.PublishedAt != nil {
			return nil
		}
		post.Status = models.PostStatusPublished
		post.PublishedAt = &at
		return nil
	})
}

func (s *PostStorage) mutate(id string, fn func(post *models.BlogPost) error) (*models.BlogPost, error) {
	var updated models.BlogPost
	err := s.db.updateWithRetry(func(tx *badgerdb.Txn) error {
		var post models.BlogPost
		if err := s.db.Store().TxGet(tx, id, &post); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("%w: %s", models.ErrPostNotFound, id)
			}
			return fmt.Errorf("failed to get post: %w", err)
		}
		if err := fn(&post); err != nil {
			return err
		}
		post.UpdatedAt = time.Now()
		updated = post
		return s.db.Store().TxUpdate(tx, id, post)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
