package publish

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/events"
	"github.com/ternarybob/scribe/internal/storage/badger"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []interfaces.ArticleEventPayload
	err  error
}

func (r *recordingSink) Send(ctx context.Context, payload interfaces.ArticleEventPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, payload)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

type stubLinker struct {
	called chan string
}

func (s *stubLinker) LinkNewPost(ctx context.Context, post *models.BlogPost) (*models.LinkReport, error) {
	s.called <- post.ID
	return &models.LinkReport{PostID: post.ID}, nil
}

func setup(t *testing.T) (interfaces.StorageManager, *models.Website, *models.BlogPost) {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	ctx := context.Background()
	website := models.NewWebsite("Acme", "https://acme.test/")
	require.NoError(t, manager.WebsiteStorage().SaveWebsite(ctx, website))

	post := models.NewBlogPost(website.ID, "kw-1", "best-invoicing-software", models.GeneratedArticle{Title: "Best Invoicing Software"})
	require.NoError(t, manager.PostStorage().SavePost(ctx, post))

	return manager, website, post
}

func TestPublish_MarksPublishedAndNotifies(t *testing.T) {
	manager, _, post := setup(t)
	logger := arbor.NewLogger()

	eventSvc := events.NewService(logger)
	received := make(chan interfaces.Event, 1)
	require.NoError(t, eventSvc.Subscribe(interfaces.EventArticlePublished, func(ctx context.Context, e interfaces.Event) error {
		received <- e
		return nil
	}))

	sink := &recordingSink{}
	linker := &stubLinker{called: make(chan string, 1)}
	publisher := NewPublisher(manager.PostStorage(), manager.WebsiteStorage(), eventSvc, sink, linker, logger)

	published, err := publisher.Publish(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "https://acme.test/blog/best-invoicing-software", sink.sent[0].URL)
	assert.Equal(t, "Best Invoicing Software", sink.sent[0].Title)

	select {
	case e := <-received:
		assert.Equal(t, sink.sent[0], e.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("article_published event not delivered")
	}

	select {
	case id := <-linker.called:
		assert.Equal(t, post.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("internal linker not triggered")
	}
}

func TestPublish_SinkFailureDoesNotFail(t *testing.T) {
	manager, _, post := setup(t)
	sink := &recordingSink{err: errors.New("nats down")}

	publisher := NewPublisher(manager.PostStorage(), manager.WebsiteStorage(), nil, sink, nil, arbor.NewLogger())
	published, err := publisher.Publish(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, published.Status)
}

func TestPublish_UnknownPost(t *testing.T) {
	manager, _, _ := setup(t)
	publisher := NewPublisher(manager.PostStorage(), manager.WebsiteStorage(), nil, nil, nil, arbor.NewLogger())

	_, err := publisher.Publish(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrPostNotFound)
}

func TestNewSink(t *testing.T) {
	sink, err := NewSink(common.NATSConfig{Enabled: false}, arbor.NewLogger())
	require.NoError(t, err)
	assert.IsType(t, NoopSink{}, sink)
	assert.NoError(t, sink.Send(context.Background(), interfaces.ArticleEventPayload{}))

	_, err = NewSink(common.NATSConfig{Enabled: true, URL: "nats://127.0.0.1:1", Name: "test"}, arbor.NewLogger())
	assert.Error(t, err)
}
