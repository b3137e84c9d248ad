// Package enrichment attaches best-effort metadata to indexed content:
// GitHub issue/PR lookups and lightweight regex extraction of story/ticket
// references. Enrichment never aborts indexing — a failing enricher degrades
// to whatever metadata the rest of the pipeline already produced.
package enrichment

import "context"

// Enricher derives metadata from a chunk of text. A nil, nil return means
// the enricher found nothing relevant, not an error.
type Enricher interface {
	Enrich(ctx context.Context, text string) (map[string]interface{}, error)
}

// Pipeline runs every configured enricher over a document and merges their
// metadata into one map.
type Pipeline struct {
	github *GitHubEnricher // optional; nil skips GitHub lookups
	story  *StoryExtractor
}

// NewPipeline builds an enrichment pipeline. github may be nil to disable
// GitHub issue/PR lookups while keeping story-reference extraction.
func NewPipeline(github *GitHubEnricher) *Pipeline {
	return &Pipeline{github: github, story: NewStoryExtractor()}
}

// Enrich runs every configured enricher and merges their results. A
// TransientBackend error from one enricher is returned alongside whatever
// metadata the others already produced, so the caller can log it without
// discarding the partial result.
func (p *Pipeline) Enrich(ctx context.Context, text string) (map[string]interface{}, error) {
	meta := map[string]interface{}{}

	if refs := p.story.ExtractStoryReferences(text); len(refs) > 0 {
		meta["story_references"] = refs
	}

	if p.github == nil {
		return metaOrNil(meta), nil
	}

	ghMeta, err := p.github.Enrich(ctx, text)
	for k, v := range ghMeta {
		meta[k] = v
	}
	if err != nil {
		return metaOrNil(meta), err
	}
	return metaOrNil(meta), nil
}

func metaOrNil(meta map[string]interface{}) map[string]interface{} {
	if len(meta) == 0 {
		return nil
	}
	return meta
}
