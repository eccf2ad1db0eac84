package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/models"
)

type brokenStorage struct{}

func (brokenStorage) ListWebsites(ctx context.Context) ([]*models.Website, error) {
	return nil, errors.New("db closed")
}

func TestAPIHandler_Health(t *testing.T) {
	storage := newStorage(t)
	h := NewAPIHandler(storage.WebsiteStorage(), arbor.NewLogger())

	rec := do(t, http.HandlerFunc(h.HealthHandler), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	h = NewAPIHandler(brokenStorage{}, arbor.NewLogger())
	rec = do(t, http.HandlerFunc(h.HealthHandler), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec)["status"])
}

func TestAPIHandler_Version(t *testing.T) {
	h := NewAPIHandler(nil, arbor.NewLogger())

	rec := do(t, http.HandlerFunc(h.VersionHandler), http.MethodGet, "/api/version", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, common.GetVersionInfo().Version, decode(t, rec)["version"])
}

func TestAPIHandler_NotFound(t *testing.T) {
	h := NewAPIHandler(nil, arbor.NewLogger())

	rec := do(t, http.HandlerFunc(h.NotFoundHandler), http.MethodGet, "/nope", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/nope", decode(t, rec)["path"])
}
