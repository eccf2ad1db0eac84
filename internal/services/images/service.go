package images

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"google.golang.org/genai"
)

// imageGenerator produces raw image bytes for a prompt
type imageGenerator interface {
	Generate(ctx context.Context, model, prompt string) ([]byte, error)
}

// GeminiClientSource supplies a lazily created Gemini client
type GeminiClientSource interface {
	GetGeminiClient(ctx context.Context) (*genai.Client, error)
}

// imagenGenerator calls the Imagen model through the Gemini API
type imagenGenerator struct {
	clients GeminiClientSource
}

func (g *imagenGenerator) Generate(ctx context.Context, model, prompt string) ([]byte, error) {
	client, err := g.clients.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("image generation returned no images")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// Service generates featured images and stores them on local disk
type Service struct {
	config    common.ImagesConfig
	generator imageGenerator
	logger    arbor.ILogger
}

var _ interfaces.ImageService = (*Service)(nil)

// NewService creates an image service backed by Imagen
func NewService(config common.ImagesConfig, clients GeminiClientSource, logger arbor.ILogger) *Service {
	return &Service{
		config:    config,
		generator: &imagenGenerator{clients: clients},
		logger:    logger,
	}
}

// GenerateFeatured renders an image for req and returns its public URL
func (s *Service) GenerateFeatured(ctx context.Context, req models.ImageRequest) (string, error) {
	if !s.config.Enabled {
		return "", fmt.Errorf("image generation disabled")
	}
	if strings.TrimSpace(req.Prompt) == "" || req.Slug == "" {
		return "", fmt.Errorf("image prompt and slug are required")
	}

	ctx, cancel := context.WithTimeout(ctx, common.ParseDuration(s.config.Timeout, 2*time.Minute))
	defer cancel()

	data, err := s.generator.Generate(ctx, s.config.Model, featuredPrompt(req.Prompt))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image generation returned empty data")
	}

	websiteDir := safeSegment(req.WebsiteID)
	fileName := safeSegment(req.Slug) + ".png"

	dir := filepath.Join(s.config.Dir, websiteDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	imageURL := strings.TrimRight(s.config.BaseURL, "/") + "/" + path.Join(websiteDir, fileName)

	s.logger.Info().
		Str("slug", req.Slug).
		Str("url", imageURL).
		Int("bytes", len(data)).
		Msg("Featured image generated")

	return imageURL, nil
}

func featuredPrompt(subject string) string {
	return "Editorial blog header illustration, clean modern style, no text or lettering. Subject: " + strings.TrimSpace(subject)
}

// safeSegment keeps a path segment free of separators and traversal
func safeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
	s = strings.Trim(s, "-")
	if s == "" {
		return "default"
	}
	return s
}
