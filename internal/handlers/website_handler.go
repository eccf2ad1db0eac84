package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// WebsiteHandler manages websites and their keywords
type WebsiteHandler struct {
	websites interfaces.WebsiteStorage
	keywords interfaces.KeywordStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewWebsiteHandler creates a new website handler
func NewWebsiteHandler(websites interfaces.WebsiteStorage, keywords interfaces.KeywordStorage, logger arbor.ILogger) *WebsiteHandler {
	return &WebsiteHandler{
		websites: websites,
		keywords: keywords,
		validate: validator.New(),
		logger:   logger,
	}
}

type createWebsiteRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	BaseURL     string `json:"base_url" validate:"required,url"`
	BrandVoice  string `json:"brand_voice"`
	Audience    string `json:"audience"`
	Description string `json:"description"`
	AutoCrawl   bool   `json:"auto_crawl"`
}

type addKeywordsRequest struct {
	Keywords      []string             `json:"keywords" validate:"required,min=1,max=100,dive,required,max=200"`
	ContentLength models.ContentLength `json:"content_length" validate:"omitempty,oneof=SHORT MEDIUM LONG PILLAR"`
}

// WebsitesRoute handles /api/websites
// GET lists websites, POST creates one
func (h *WebsiteHandler) WebsitesRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		websites, err := h.websites.ListWebsites(r.Context())
		if err != nil {
			WriteServiceError(w, h.logger, err, "List websites")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"websites": websites, "count": len(websites)})
	case http.MethodPost:
		h.CreateWebsiteHandler(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// WebsiteRoutes handles /api/websites/{id}, /api/websites/{id}/keywords and /api/websites/{id}/usage
func (h *WebsiteHandler) WebsiteRoutes(w http.ResponseWriter, r *http.Request) {
	parts := PathSegments(r, "/api/websites/")
	switch {
	case len(parts) == 1:
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		website, err := h.websites.GetWebsite(r.Context(), parts[0])
		if err != nil {
			WriteServiceError(w, h.logger, err, "Get website")
			return
		}
		WriteJSON(w, http.StatusOK, website)
	case len(parts) == 2 && parts[1] == "keywords":
		switch r.Method {
		case http.MethodGet:
			h.ListKeywordsHandler(w, r, parts[0])
		case http.MethodPost:
			h.AddKeywordsHandler(w, r, parts[0])
		default:
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case len(parts) == 2 && parts[1] == "usage":
		if RequireMethod(w, r, http.MethodGet) {
			h.UsageHandler(w, r, parts[0])
		}
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// CreateWebsiteHandler registers a website
// POST /api/websites
func (h *WebsiteHandler) CreateWebsiteHandler(w http.ResponseWriter, r *http.Request) {
	var req createWebsiteRequest
	if err := DecodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	website := models.NewWebsite(strings.TrimSpace(req.Name), req.BaseURL)
	website.BrandVoice = req.BrandVoice
	website.Audience = req.Audience
	website.Description = req.Description
	website.AutoCrawl = req.AutoCrawl

	if err := h.websites.SaveWebsite(r.Context(), website); err != nil {
		WriteServiceError(w, h.logger, err, "Create website")
		return
	}

	h.logger.Info().Str("website_id", website.ID).Str("base_url", website.BaseURL).Msg("Website created")
	WriteJSON(w, http.StatusCreated, website)
}

// AddKeywordsHandler adds PENDING keywords to a website, skipping duplicates
// POST /api/websites/{id}/keywords {"keywords": ["..."], "content_length": "LONG"}
func (h *WebsiteHandler) AddKeywordsHandler(w http.ResponseWriter, r *http.Request, websiteID string) {
	ctx := r.Context()

	var req addKeywordsRequest
	if err := DecodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.websites.GetWebsite(ctx, websiteID); err != nil {
		WriteServiceError(w, h.logger, err, "Add keywords")
		return
	}

	existing, err := h.keywords.ListKeywords(ctx, websiteID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Add keywords")
		return
	}
	seen := make(map[string]bool, len(existing))
	for _, k := range existing {
		seen[strings.ToLower(k.Text)] = true
	}

	created := make([]*models.Keyword, 0, len(req.Keywords))
	for _, text := range req.Keywords {
		text = strings.Join(strings.Fields(text), " ")
		key := strings.ToLower(text)
		if text == "" || seen[key] {
			continue
		}
		seen[key] = true

		kw := models.NewKeyword(websiteID, text)
		kw.ContentLength = req.ContentLength
		if err := h.keywords.SaveKeyword(ctx, kw); err != nil {
			WriteServiceError(w, h.logger, err, "Add keywords")
			return
		}
		created = append(created, kw)
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"keywords": created,
		"count":    len(created),
	})
}

// ListKeywordsHandler lists a website's keywords
// GET /api/websites/{id}/keywords
func (h *WebsiteHandler) ListKeywordsHandler(w http.ResponseWriter, r *http.Request, websiteID string) {
	keywords, err := h.keywords.ListKeywords(r.Context(), websiteID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "List keywords")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": keywords,
		"count":    len(keywords),
	})
}

// UsageHandler returns the generated-article count for a month
// GET /api/websites/{id}/usage?period=2026-10
func (h *WebsiteHandler) UsageHandler(w http.ResponseWriter, r *http.Request, websiteID string) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.UsagePeriod(time.Now())
	}
	if _, err := time.Parse("2006-01", period); err != nil {
		WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	count, err := h.websites.GetUsage(r.Context(), websiteID, period)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Get usage")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"website_id":         websiteID,
		"period":             period,
		"articles_generated": count,
	})
}
