package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/models"
)

func TestWebsiteStorage_SaveGet(t *testing.T) {
	storage := newTestManager(t).WebsiteStorage()
	ctx := context.Background()

	website := models.NewWebsite("Ledgerly", "https://ledgerly.example/")
	require.NoError(t, storage.SaveWebsite(ctx, website))

	loaded, err := storage.GetWebsite(ctx, website.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://ledgerly.example", loaded.BaseURL)
	assert.Equal(t, "https://ledgerly.example/blog/invoicing", loaded.PostURL("invoicing"))

	_, err = storage.GetWebsite(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrWebsiteNotFound)
}

func TestWebsiteStorage_IncrementUsageConcurrently(t *testing.T) {
	storage := newTestManager(t).WebsiteStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := storage.IncrementUsage(ctx, "site-1", "2026-10")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := storage.GetUsage(ctx, "site-1", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = storage.GetUsage(ctx, "site-1", "2026-09")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
