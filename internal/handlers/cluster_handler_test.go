package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

type fakeSuggester struct {
	got models.ClusterRequest
	err error
}

func (f *fakeSuggester) Suggest(ctx context.Context, req models.ClusterRequest) (*models.ClusterSuggestion, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ClusterSuggestion{
		Pillar: models.ClusterKeyword{Keyword: "invoicing", Intent: models.IntentInformational, ContentLength: models.ContentLengthPillar},
		Supporting: []models.ClusterKeyword{
			{Keyword: "invoice templates", Intent: models.IntentCommercial, ContentLength: models.ContentLengthMedium},
		},
	}, nil
}

func TestClusterHandler_Suggest(t *testing.T) {
	suggester := &fakeSuggester{}
	h := NewClusterHandler(suggester, arbor.NewLogger())

	rec := do(t, http.HandlerFunc(h.SuggestHandler), http.MethodPost, "/api/clusters", `{"topic":"invoicing","count":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "invoicing", suggester.got.Topic)
	assert.Equal(t, 5, suggester.got.Count)
	pillar, ok := decode(t, rec)["pillar"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "invoicing", pillar["keyword"])
}

func TestClusterHandler_Errors(t *testing.T) {
	suggester := &fakeSuggester{err: fmt.Errorf("%w: provider timeout", models.ErrClusterUnavailable)}
	h := http.HandlerFunc(NewClusterHandler(suggester, arbor.NewLogger()).SuggestHandler)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/api/clusters", `{"topic":"invoicing"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/clusters", `not json`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/clusters", "").Code)
}
