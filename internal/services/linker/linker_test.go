package linker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/storage/badger"
)

type mockText struct {
	mock.Mock
}

func (m *mockText) Complete(ctx context.Context, prompt, system string, opts interfaces.CompletionOptions) (*models.StageResult, error) {
	args := m.Called(ctx, prompt, system, opts)
	res, _ := args.Get(0).(*models.StageResult)
	return res, args.Error(1)
}

func (m *mockText) CompleteJSON(ctx context.Context, prompt, system string, opts interfaces.CompletionOptions, out interface{}) error {
	args := m.Called(ctx, prompt, system, opts, out)
	return args.Error(0)
}

func selectIDs(ids ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		body, _ := json.Marshal(map[string][]string{"ids": ids})
		_ = json.Unmarshal(body, args.Get(4))
	}
}

func promptFor(post *models.BlogPost) interface{} {
	return mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, post.Article.Content)
	})
}

const newURL = "https://acme.test/blog/invoice-templates"

type fixture struct {
	storage interfaces.StorageManager
	website *models.Website
	newPost *models.BlogPost
	others  []*models.BlogPost
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	logger := arbor.NewLogger()
	ctx := context.Background()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	website := models.NewWebsite("Acme", "https://acme.test")
	require.NoError(t, storage.WebsiteStorage().SaveWebsite(ctx, website))

	f := &fixture{storage: storage, website: website}
	for i := 0; i < n; i++ {
		p := models.NewBlogPost(website.ID, "k", fmt.Sprintf("post-%d", i), models.GeneratedArticle{
			Title:        fmt.Sprintf("Post %d", i),
			FocusKeyword: fmt.Sprintf("topic %d", i),
			Content:      fmt.Sprintf("## Post %d\n\nSending invoices on time matters for post %d. Cash flow follows.", i, i),
		})
		require.NoError(t, storage.PostStorage().SavePost(ctx, p))
		_, err := storage.PostStorage().MarkPublished(ctx, p.ID, time.Now().Add(-time.Duration(i)*time.Hour))
		require.NoError(t, err)
		f.others = append(f.others, p)
	}

	f.newPost = models.NewBlogPost(website.ID, "k", "invoice-templates", models.GeneratedArticle{
		Title:        "Invoice Templates",
		FocusKeyword: "invoice templates",
	})
	require.NoError(t, storage.PostStorage().SavePost(ctx, f.newPost))
	_, err = storage.PostStorage().MarkPublished(ctx, f.newPost.ID, time.Now())
	require.NoError(t, err)
	return f
}

func (f *fixture) service(text interfaces.TextService, config common.LinkerConfig) *Service {
	return NewService(text, f.storage.PostStorage(), f.storage.WebsiteStorage(), config, arbor.NewLogger())
}

func (f *fixture) content(t *testing.T, p *models.BlogPost) string {
	t.Helper()
	got, err := f.storage.PostStorage().GetPost(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Article.Content
}

func withLink(body string) string {
	return strings.Replace(body, "Sending invoices", "Sending [invoices]("+newURL+")", 1)
}

func TestLinkNewPost_AppliesOnlyPassingRewrites(t *testing.T) {
	f := newFixture(t, 4)
	good, shrunk, noLink := f.others[0], f.others[1], f.others[2]

	text := &mockText{}
	text.On("CompleteJSON", mock.Anything, mock.Anything, systemPrompt, mock.Anything, mock.Anything).
		Run(selectIDs(good.ID, "unknown", shrunk.ID, good.ID, noLink.ID)).
		Return(nil)
	text.On("Complete", mock.Anything, promptFor(good), systemPrompt, mock.Anything).
		Return(&models.StageResult{Text: "```markdown\n" + withLink(good.Article.Content) + "\n```"}, nil)
	text.On("Complete", mock.Anything, promptFor(shrunk), systemPrompt, mock.Anything).
		Return(&models.StageResult{Text: "[x](" + newURL + ")"}, nil)
	text.On("Complete", mock.Anything, promptFor(noLink), systemPrompt, mock.Anything).
		Return(&models.StageResult{Text: noLink.Article.Content}, nil)

	report, err := f.service(text, common.LinkerConfig{Enabled: true}).LinkNewPost(context.Background(), f.newPost)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Considered)
	assert.Equal(t, 1, report.Linked)
	assert.Equal(t, 2, report.Rejected)
	assert.False(t, report.Skipped)

	assert.Equal(t, withLink(good.Article.Content), f.content(t, good))
	assert.Equal(t, shrunk.Article.Content, f.content(t, shrunk))
	assert.Equal(t, noLink.Article.Content, f.content(t, noLink))

	// The new post itself is never a candidate
	prompt := text.Calls[0].Arguments.String(1)
	assert.NotContains(t, prompt, f.newPost.ID)
	text.AssertExpectations(t)
}

func TestLinkNewPost_SelectionFailureSkips(t *testing.T) {
	f := newFixture(t, 2)

	text := &mockText{}
	text.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(context.DeadlineExceeded)

	report, err := f.service(text, common.LinkerConfig{Enabled: true}).LinkNewPost(context.Background(), f.newPost)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.Considered)
	text.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkNewPost_UnknownIDsOnlySkips(t *testing.T) {
	f := newFixture(t, 2)

	text := &mockText{}
	text.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(selectIDs("nope", "also-nope")).
		Return(nil)

	report, err := f.service(text, common.LinkerConfig{Enabled: true}).LinkNewPost(context.Background(), f.newPost)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestLinkNewPost_CapsTargets(t *testing.T) {
	f := newFixture(t, 7)

	ids := make([]string, len(f.others))
	for i, p := range f.others {
		ids[i] = p.ID
	}

	text := &mockText{}
	text.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(selectIDs(ids...)).
		Return(nil)
	text.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream 503"))

	report, err := f.service(text, common.LinkerConfig{Enabled: true, MinTargets: 3, MaxTargets: 5}).LinkNewPost(context.Background(), f.newPost)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Considered)
	assert.Equal(t, 5, report.Rejected)
	text.AssertNumberOfCalls(t, "Complete", 5)
}

func TestLinkNewPost_SkipsTargetsAlreadyLinking(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	target := f.others[0]
	require.NoError(t, f.storage.PostStorage().UpdatePostContent(ctx, target.ID, withLink(target.Article.Content)))

	text := &mockText{}
	text.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(selectIDs(target.ID)).
		Return(nil)

	report, err := f.service(text, common.LinkerConfig{Enabled: true}).LinkNewPost(ctx, f.newPost)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Considered)
	assert.Zero(t, report.Linked)
	assert.Zero(t, report.Rejected)
	text.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkNewPost_Disabled(t *testing.T) {
	f := newFixture(t, 1)
	text := &mockText{}

	report, err := f.service(text, common.LinkerConfig{}).LinkNewPost(context.Background(), f.newPost)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	text.AssertExpectations(t)
}
