package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-github/v45/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineWithoutGitHubExtractsStoryReferences(t *testing.T) {
	p := NewPipeline(nil)

	meta, err := p.Enrich(context.Background(), "see feature/PROJ-9 and close #3")
	require.NoError(t, err)
	require.NotNil(t, meta)

	refs := meta["story_references"].(map[string][]string)
	assert.Contains(t, refs["issues"], "3")
	assert.Contains(t, refs["branches"], "PROJ-9")
}

func TestPipelineReturnsNilWhenNothingFound(t *testing.T) {
	p := NewPipeline(nil)

	meta, err := p.Enrich(context.Background(), "just a plain note with no references")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestPipelineMergesGitHubMetadata(t *testing.T) {
	client := &fakeIssueClient{
		GetIssueFunc: func(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
			state := "open"
			return &github.Issue{State: &state}, nil, nil
		},
	}
	p := NewPipeline(NewGitHubEnricher(client))

	meta, err := p.Enrich(context.Background(), "tracked at https://github.com/acme/widgets/issues/7")
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", meta["repo"])
	assert.Equal(t, 7, meta["issue_number"])
	assert.Equal(t, "open", meta["issue_state"])
}

func TestPipelineReturnsPartialMetadataOnGitHubError(t *testing.T) {
	client := &fakeIssueClient{
		GetIssueFunc: func(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
			return nil, nil, errors.New("rate limited")
		},
	}
	p := NewPipeline(NewGitHubEnricher(client))

	meta, err := p.Enrich(context.Background(), "close #5 per https://github.com/acme/widgets/issues/5")
	require.Error(t, err)
	refs := meta["story_references"].(map[string][]string)
	assert.Contains(t, refs["issues"], "5")
}
