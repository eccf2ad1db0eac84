package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/storage/badger"
)

func newStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	storage, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func newWebsiteServer(storage interfaces.StorageManager) http.Handler {
	h := NewWebsiteHandler(storage.WebsiteStorage(), storage.KeywordStorage(), arbor.NewLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("/api/websites", h.WebsitesRoute)
	mux.HandleFunc("/api/websites/", h.WebsiteRoutes)
	return mux
}

func TestWebsiteHandler_CreateAndGet(t *testing.T) {
	storage := newStorage(t)
	srv := newWebsiteServer(storage)

	rec := do(t, srv, http.MethodPost, "/api/websites", `{"name":" Acme ","base_url":"https://acme.test","brand_voice":"plain"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Acme", created["name"])

	rec = do(t, srv, http.MethodGet, "/api/websites/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://acme.test", decode(t, rec)["base_url"])

	rec = do(t, srv, http.MethodGet, "/api/websites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestWebsiteHandler_CreateValidates(t *testing.T) {
	srv := newWebsiteServer(newStorage(t))

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/websites", `{"name":"Acme","base_url":"not a url"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/websites", `{"base_url":"https://acme.test"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/websites", `{`).Code)
}

func TestWebsiteHandler_GetMissing(t *testing.T) {
	srv := newWebsiteServer(newStorage(t))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/websites/nope", "").Code)
}

func TestWebsiteHandler_AddKeywordsSkipsDuplicates(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()
	website := models.NewWebsite("Acme", "https://acme.test")
	require.NoError(t, storage.WebsiteStorage().SaveWebsite(ctx, website))
	require.NoError(t, storage.KeywordStorage().SaveKeyword(ctx, models.NewKeyword(website.ID, "invoice templates")))
	srv := newWebsiteServer(storage)

	rec := do(t, srv, http.MethodPost, "/api/websites/"+website.ID+"/keywords",
		`{"keywords":["Invoice  Templates","best invoicing software","best invoicing software"],"content_length":"LONG"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	keywords, err := storage.KeywordStorage().ListKeywords(ctx, website.ID)
	require.NoError(t, err)
	require.Len(t, keywords, 2)
	for _, kw := range keywords {
		if kw.Text == "best invoicing software" {
			assert.Equal(t, models.ContentLengthLong, kw.ContentLength)
			assert.Equal(t, models.KeywordStatusPending, kw.Status)
		}
	}

	rec = do(t, srv, http.MethodGet, "/api/websites/"+website.ID+"/keywords", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])
}

func TestWebsiteHandler_AddKeywordsValidates(t *testing.T) {
	storage := newStorage(t)
	website := models.NewWebsite("Acme", "https://acme.test")
	require.NoError(t, storage.WebsiteStorage().SaveWebsite(context.Background(), website))
	srv := newWebsiteServer(storage)
	path := "/api/websites/" + website.ID + "/keywords"

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, path, `{"keywords":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, path, `{"keywords":["a"],"content_length":"HUGE"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/websites/nope/keywords", `{"keywords":["a"]}`).Code)
}

func TestWebsiteHandler_Usage(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()
	website := models.NewWebsite("Acme", "https://acme.test")
	require.NoError(t, storage.WebsiteStorage().SaveWebsite(ctx, website))
	_, err := storage.WebsiteStorage().IncrementUsage(ctx, website.ID, "2026-10")
	require.NoError(t, err)
	srv := newWebsiteServer(storage)

	rec := do(t, srv, http.MethodGet, "/api/websites/"+website.ID+"/usage?period=2026-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["articles_generated"])

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/websites/"+website.ID+"/usage?period=october", "").Code)
}
