package cluster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	defaultCount   = 8
	minSupporting  = 3
	maxSupporting  = 15
	defaultTimeout = 90 * time.Second
)

const systemPrompt = `You are an SEO strategist who plans topic clusters: one pillar page supported by
closely related articles that link back to it. Answer with JSON only.`

var validIntents = map[models.SearchIntent]bool{
	models.IntentInformational: true,
	models.IntentCommercial:    true,
	models.IntentTransactional: true,
	models.IntentNavigational:  true,
}

// Generator suggests pillar/supporting keyword clusters
type Generator struct {
	text     interfaces.TextService
	websites interfaces.WebsiteStorage
	validate *validator.Validate
	timeout  time.Duration
	logger   arbor.ILogger
}

// NewGenerator creates a cluster generator. websites may be nil; timeout <= 0 uses 90s.
func NewGenerator(text interfaces.TextService, websites interfaces.WebsiteStorage, timeout time.Duration, logger arbor.ILogger) *Generator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{
		text:     text,
		websites: websites,
		validate: validator.New(),
		timeout:  timeout,
		logger:   logger,
	}
}

// Suggest generates and validates one cluster. Any upstream, timeout or validation
// failure is reported as ErrClusterUnavailable; there is no fallback content.
func (g *Generator) Suggest(ctx context.Context, req models.ClusterRequest) (*models.ClusterSuggestion, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if err := g.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid cluster request: %w", err)
	}
	if req.Count == 0 {
		req.Count = defaultCount
	}

	var website *models.Website
	if req.WebsiteID != "" && g.websites != nil {
		w, err := g.websites.GetWebsite(ctx, req.WebsiteID)
		if err != nil {
			return nil, err
		}
		website = w
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var raw models.ClusterSuggestion
	if err := g.text.CompleteJSON(callCtx, buildPrompt(req, website), systemPrompt, interfaces.CompletionOptions{
		Temperature: 0.5,
		MaxTokens:   2048,
		Model:       req.Model,
	}, &raw); err != nil {
		metrics.ClusterRequestsTotal.WithLabelValues("error").Inc()
		g.logger.Warn().Err(err).Str("topic", req.Topic).Msg("Cluster generation failed")
		return nil, fmt.Errorf("%w: %v", models.ErrClusterUnavailable, err)
	}

	suggestion, err := Normalize(&raw)
	if err != nil {
		metrics.ClusterRequestsTotal.WithLabelValues("invalid").Inc()
		g.logger.Warn().Err(err).Str("topic", req.Topic).Msg("Cluster output failed validation")
		return nil, err
	}

	metrics.ClusterRequestsTotal.WithLabelValues("ok").Inc()
	g.logger.Info().
		Str("topic", req.Topic).
		Str("pillar", suggestion.Pillar.Keyword).
		Int("supporting", len(suggestion.Supporting)).
		Msg("Cluster suggested")
	return suggestion, nil
}

// Normalize cleans a raw suggestion: trims keywords, maps intents and lengths onto
// the allowed sets and drops case-insensitive duplicates (including the pillar).
// The pillar must be non-empty and 3-15 supporting keywords must remain.
func Normalize(raw *models.ClusterSuggestion) (*models.ClusterSuggestion, error) {
	pillar := normalizeKeyword(raw.Pillar, models.ContentLengthPillar)
	if pillar.Keyword == "" {
		return nil, fmt.Errorf("%w: empty pillar keyword", models.ErrClusterUnavailable)
	}

	seen := map[string]bool{strings.ToLower(pillar.Keyword): true}
	supporting := make([]models.ClusterKeyword, 0, len(raw.Supporting))
	for _, k := range raw.Supporting {
		k = normalizeKeyword(k, models.ContentLengthMedium)
		key := strings.ToLower(k.Keyword)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		supporting = append(supporting, k)
	}

	if len(supporting) < minSupporting {
		return nil, fmt.Errorf("%w: %d supporting keywords, need at least %d", models.ErrClusterUnavailable, len(supporting), minSupporting)
	}
	if len(supporting) > maxSupporting {
		supporting = supporting[:maxSupporting]
	}

	return &models.ClusterSuggestion{Pillar: pillar, Supporting: supporting}, nil
}

func normalizeKeyword(k models.ClusterKeyword, fallback models.ContentLength) models.ClusterKeyword {
	k.Keyword = strings.Join(strings.Fields(k.Keyword), " ")
	k.Rationale = strings.TrimSpace(k.Rationale)

	intent := models.SearchIntent(strings.ToLower(strings.TrimSpace(string(k.Intent))))
	if !validIntents[intent] {
		intent = models.IntentInformational
	}
	k.Intent = intent

	if length, ok := models.ParseContentLength(string(k.ContentLength)); ok {
		k.ContentLength = length
	} else {
		k.ContentLength = fallback
	}
	return k
}

func buildPrompt(req models.ClusterRequest, website *models.Website) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a topic cluster around the seed topic %q.\n", req.Topic)
	if website != nil {
		fmt.Fprintf(&b, "The site is %s (%s).", website.Name, website.BaseURL)
		if website.Description != "" {
			fmt.Fprintf(&b, " About: %s.", website.Description)
		}
		if website.Audience != "" {
			fmt.Fprintf(&b, " Audience: %s.", website.Audience)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Suggest one pillar keyword and %d supporting keywords.\n", req.Count)
	b.WriteString("For each give the search intent (informational, commercial, transactional or navigational) ")
	b.WriteString("and a content length (SHORT, MEDIUM, LONG or PILLAR).\n\n")
	b.WriteString(`Return JSON: {"pillar": {"keyword": "", "intent": "", "content_length": "", "rationale": ""}, "supporting": [{"keyword": "", "intent": "", "content_length": "", "rationale": ""}]}`)
	return b.String()
}
