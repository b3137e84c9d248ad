package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-github/v45/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteflux/noteflux/internal/apperr"
)

type fakeIssueClient struct {
	GetIssueFunc func(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error)
}

func (f *fakeIssueClient) GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
	return f.GetIssueFunc(ctx, owner, repo, number)
}

func TestGitHubEnricherNoReference(t *testing.T) {
	e := NewGitHubEnricher(&fakeIssueClient{
		GetIssueFunc: func(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
			t.Fatal("GetIssue should not be called when no URL is present")
			return nil, nil, nil
		},
	})

	meta, err := e.Enrich(context.Background(), "plain note with no links")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestGitHubEnricherAttachesMetadata(t *testing.T) {
	open := "open"
	e := NewGitHubEnricher(&fakeIssueClient{
		GetIssueFunc: func(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
			assert.Equal(t, "acme", owner)
			assert.Equal(t, "widgets", repo)
			assert.Equal(t, 123, number)
			return &github.Issue{State: &open}, nil, nil
		},
	})

	text := "See https://github.com/acme/widgets/issues/123 for context."
	meta, err := e.Enrich(context.Background(), text)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "acme/widgets", meta["repo"])
	assert.Equal(t, 123, meta["issue_number"])
	assert.Equal(t, "open", meta["issue_state"])
}

func TestGitHubEnricherMatchesPullRequestURL(t *testing.T) {
	e := NewGitHubEnricher(&fakeIssueClient{
		GetIssueFunc: func(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
			return &github.Issue{}, nil, nil
		},
	})

	meta, err := e.Enrich(context.Background(), "https://github.com/acme/widgets/pull/45")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 45, meta["issue_number"])
}

func TestGitHubEnricherTransientOnClientError(t *testing.T) {
	e := NewGitHubEnricher(&fakeIssueClient{
		GetIssueFunc: func(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
			return nil, nil, errors.New("rate limited")
		},
	})

	meta, err := e.Enrich(context.Background(), "https://github.com/acme/widgets/issues/1")
	require.Error(t, err)
	assert.Nil(t, meta)
	assert.True(t, apperr.IsTransientBackend(err))
}
