package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

type fakePublisher struct {
	posts interfaces.PostStorage
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, postID string) (*models.BlogPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts.GetPost(ctx, postID)
}

func seedPost(t *testing.T, storage interfaces.StorageManager) *models.BlogPost {
	t.Helper()
	ctx := context.Background()
	website := models.NewWebsite("Acme", "https://acme.test")
	require.NoError(t, storage.WebsiteStorage().SaveWebsite(ctx, website))

	post := models.NewBlogPost(website.ID, "kw-1", "best-invoicing-software", models.GeneratedArticle{
		Title:           "Best Invoicing Software",
		Slug:            "best-invoicing-software",
		Content:         "## Why invoicing matters\n\nBest invoicing software keeps cash moving.",
		FocusKeyword:    "best invoicing software",
		MetaDescription: "Compare the best invoicing software.",
	})
	require.NoError(t, storage.PostStorage().SavePost(ctx, post))
	return post
}

func newPostServer(storage interfaces.StorageManager, publisher interfaces.Publisher) http.Handler {
	h := NewPostHandler(storage.PostStorage(), storage.WebsiteStorage(), publisher, arbor.NewLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", h.PostsRoute)
	mux.HandleFunc("/api/posts/", h.PostRoutes)
	return mux
}

func TestPostHandler_GetAndList(t *testing.T) {
	storage := newStorage(t)
	post := seedPost(t, storage)
	srv := newPostServer(storage, &fakePublisher{posts: storage.PostStorage()})

	rec := do(t, srv, http.MethodGet, "/api/posts/"+post.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "best-invoicing-software", decode(t, rec)["slug"])

	rec = do(t, srv, http.MethodGet, "/api/posts?website_id="+post.WebsiteID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/posts/missing", "").Code)
}

func TestPostHandler_Publish(t *testing.T) {
	storage := newStorage(t)
	post := seedPost(t, storage)
	publisher := &fakePublisher{posts: storage.PostStorage()}
	srv := newPostServer(storage, publisher)

	rec := do(t, srv, http.MethodPost, "/api/posts/"+post.ID+"/publish", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, post.ID, decode(t, rec)["id"])

	publisher.err = models.ErrPostNotFound
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/posts/x/publish", "").Code)

	publisher.err = errors.New("nats down")
	assert.Equal(t, http.StatusInternalServerError, do(t, srv, http.MethodPost, "/api/posts/x/publish", "").Code)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/api/posts/x/publish", "").Code)
}

func TestPostHandler_Score(t *testing.T) {
	storage := newStorage(t)
	post := seedPost(t, storage)
	srv := newPostServer(storage, &fakePublisher{posts: storage.PostStorage()})

	rec := do(t, srv, http.MethodGet, "/api/posts/"+post.ID+"/score", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	score, ok := body["score"].(float64)
	require.True(t, ok, rec.Body.String())
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	assert.NotEmpty(t, body["factors"])
}
