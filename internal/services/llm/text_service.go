package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
	"github.com/ternarybob/scribe/internal/models"
	"golang.org/x/time/rate"
)

// generator is the provider surface the Service needs; ProviderFactory satisfies it
type generator interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	DetectProvider(model string) ProviderType
}

// Service implements interfaces.TextService on top of the provider factory.
// All calls share one token-bucket limiter so concurrent jobs stay inside provider quotas.
type Service struct {
	gen     generator
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// Compile-time assertion
var _ interfaces.TextService = (*Service)(nil)

// NewService creates a text service. A zero RateLimit disables limiting.
func NewService(gen generator, config *common.LLMConfig, logger arbor.ILogger) *Service {
	limit := rate.Inf
	burst := 1
	if config != nil && config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
		if config.RateBurst > 0 {
			burst = config.RateBurst
		}
	}
	return &Service{
		gen:     gen,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Complete generates free text
func (s *Service) Complete(ctx context.Context, prompt, system string, opts interfaces.CompletionOptions) (*models.StageResult, error) {
	return s.complete(ctx, prompt, system, opts, false)
}

// CompleteJSON generates JSON and decodes it into out
func (s *Service) CompleteJSON(ctx context.Context, prompt, system string, opts interfaces.CompletionOptions, out interface{}) error {
	result, err := s.complete(ctx, prompt, system, opts, true)
	if err != nil {
		return err
	}
	if result.Truncated {
		s.logger.Warn().
			Int("output_tokens", result.OutputTokens).
			Msg("JSON response hit token budget, decode may fail")
	}
	return DecodeJSON(result.Text, out)
}

func (s *Service) complete(ctx context.Context, prompt, system string, opts interfaces.CompletionOptions, jsonMode bool) (*models.StageResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	provider := string(s.gen.DetectProvider(opts.Model))

	resp, err := s.gen.GenerateContent(ctx, &ContentRequest{
		Prompt:            prompt,
		SystemInstruction: system,
		Model:             opts.Model,
		Temperature:       opts.Temperature,
		MaxTokens:         opts.MaxTokens,
		JSON:              jsonMode,
	})
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues(provider, "error").Inc()
		return nil, err
	}

	outcome := "ok"
	if resp.Truncated {
		outcome = "truncated"
	}
	metrics.LLMCallsTotal.WithLabelValues(provider, outcome).Inc()
	metrics.LLMTokensTotal.WithLabelValues(provider, "prompt").Add(float64(resp.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(provider, "output").Add(float64(resp.OutputTokens))

	s.logger.Debug().
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Str("finish_reason", resp.FinishReason).
		Int("prompt_tokens", resp.PromptTokens).
		Int("output_tokens", resp.OutputTokens).
		Bool("truncated", resp.Truncated).
		Msg("Completion finished")

	return &models.StageResult{
		Text:         resp.Text,
		FinishReason: resp.FinishReason,
		PromptTokens: resp.PromptTokens,
		OutputTokens: resp.OutputTokens,
		Truncated:    resp.Truncated,
	}, nil
}
