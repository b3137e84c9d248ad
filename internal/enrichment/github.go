package enrichment

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/go-github/v45/github"

	"github.com/noteflux/noteflux/internal/apperr"
)

// issueURLPattern matches GitHub issue/PR URLs embedded in frontmatter or
// note body, e.g. https://github.com/owner/repo/issues/123 or .../pull/45.
var issueURLPattern = regexp.MustCompile(`github\.com/([\w.-]+)/([\w.-]+)/(?:issues|pull)/(\d+)`)

// IssueClient is the subset of the go-github issues API this enricher needs.
type IssueClient interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error)
}

// GitHubEnricher attaches repo/issue_number metadata to a chunk when its
// note references a GitHub issue or pull request URL. It is a best-effort,
// read-only enrichment: any failure degrades to no metadata rather than
// aborting indexing of the file (TransientBackend semantics).
type GitHubEnricher struct {
	client IssueClient
}

// NewGitHubEnricher creates an enricher around a go-github issues client.
func NewGitHubEnricher(client IssueClient) *GitHubEnricher {
	return &GitHubEnricher{client: client}
}

// Enrich scans text (typically frontmatter plus body) for a GitHub issue/PR
// URL and, if found, fetches the issue and returns metadata to merge into
// the chunk. Returns nil, nil when no reference is found — that's not an
// error, just nothing to enrich.
func (e *GitHubEnricher) Enrich(ctx context.Context, text string) (map[string]interface{}, error) {
	match := issueURLPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, nil
	}
	owner, repo, numStr := match[1], match[2], match[3]
	number, err := strconv.Atoi(numStr)
	if err != nil {
		return nil, nil
	}

	issue, _, err := e.client.GetIssue(ctx, owner, repo, number)
	if err != nil {
		return nil, apperr.NewTransientBackend("github", fmt.Errorf("get issue %s/%s#%d: %w", owner, repo, number, err))
	}

	meta := map[string]interface{}{
		"repo":         owner + "/" + repo,
		"issue_number": number,
	}
	if issue != nil && issue.State != nil {
		meta["issue_state"] = *issue.State
	}
	return meta, nil
}
