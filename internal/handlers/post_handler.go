package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/content"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// PostHandler handles blog post API requests
type PostHandler struct {
	posts     interfaces.PostStorage
	websites  interfaces.WebsiteStorage
	publisher interfaces.Publisher
	logger    arbor.ILogger
}

// NewPostHandler creates a new post handler
func NewPostHandler(posts interfaces.PostStorage, websites interfaces.WebsiteStorage, publisher interfaces.Publisher, logger arbor.ILogger) *PostHandler {
	return &PostHandler{
		posts:     posts,
		websites:  websites,
		publisher: publisher,
		logger:    logger,
	}
}

// PostsRoute handles GET /api/posts?website_id=...
func (h *PostHandler) PostsRoute(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	posts, err := h.posts.ListPosts(r.Context(), r.URL.Query().Get("website_id"))
	if err != nil {
		WriteServiceError(w, h.logger, err, "List posts")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"count": len(posts),
	})
}

// PostRoutes handles /api/posts/{id}, /api/posts/{id}/publish and /api/posts/{id}/score
func (h *PostHandler) PostRoutes(w http.ResponseWriter, r *http.Request) {
	parts := PathSegments(r, "/api/posts/")
	switch {
	case len(parts) == 1:
		if RequireMethod(w, r, http.MethodGet) {
			h.GetPostHandler(w, r, parts[0])
		}
	case len(parts) == 2 && parts[1] == "publish":
		if RequireMethod(w, r, http.MethodPost) {
			h.PublishHandler(w, r, parts[0])
		}
	case len(parts) == 2 && parts[1] == "score":
		if RequireMethod(w, r, http.MethodGet) {
			h.ScoreHandler(w, r, parts[0])
		}
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// GetPostHandler returns a post
// GET /api/posts/{id}
func (h *PostHandler) GetPostHandler(w http.ResponseWriter, r *http.Request, id string) {
	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Get post")
		return
	}
	WriteJSON(w, http.StatusOK, post)
}

// PublishHandler marks a post published and announces it
// POST /api/posts/{id}/publish
func (h *PostHandler) PublishHandler(w http.ResponseWriter, r *http.Request, id string) {
	post, err := h.publisher.Publish(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Publish post")
		return
	}
	WriteJSON(w, http.StatusOK, post)
}

// ScoreHandler recomputes the content score of a post
// GET /api/posts/{id}/score
func (h *PostHandler) ScoreHandler(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	post, err := h.posts.GetPost(ctx, id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Score post")
		return
	}
	website, err := h.websites.GetWebsite(ctx, post.WebsiteID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Score post")
		return
	}

	WriteJSON(w, http.StatusOK, content.ScoreArticle(&post.Article, website.BaseURL))
}
