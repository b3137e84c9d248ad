package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ExtractsFrontmatterFields(t *testing.T) {
	raw := []byte(`---
title: Weekly Sync
date: 2026-03-01
people: [Alice, Bob]
projects: infra, onboarding
---
Discussed the roadmap.`)

	p := NewDocumentParser()
	doc := p.Parse(raw, "/vault/work/meetings/sync.md", "work", "/vault/work")

	assert.Equal(t, "Weekly Sync", doc.Title)
	assert.Equal(t, "2026-03-01", doc.Date)
	assert.Equal(t, []string{"Alice", "Bob"}, doc.People)
	assert.Equal(t, []string{"infra", "onboarding"}, doc.Projects)
	assert.Equal(t, "meetings", doc.Category)
	assert.Contains(t, doc.Content, "Discussed the roadmap.")
	assert.NotContains(t, doc.Content, "title:")
}

func TestParse_FallsBackToFilenameDateAndStem(t *testing.T) {
	raw := []byte("Just a note with no frontmatter at all.")

	p := NewDocumentParser()
	doc := p.Parse(raw, "/vault/work/journal/2026-04-12-notes.md", "work", "/vault/work")

	assert.Equal(t, "2026-04-12", doc.Date)
	assert.Equal(t, "2026-04-12-notes", doc.Title)
	assert.Equal(t, "journal", doc.Category)
	assert.Empty(t, doc.People)
}

func TestParse_MalformedFrontmatterDegradesToEmpty(t *testing.T) {
	raw := []byte(`---
title: [unterminated
---
Body text.`)

	p := NewDocumentParser()
	doc := p.Parse(raw, "/vault/work/note.md", "work", "/vault/work")

	assert.Equal(t, "note", doc.Title) // frontmatter failed to parse, falls back to filename stem
	assert.Contains(t, doc.Content, "---")
}

func TestParse_FileAtVaultRootIsCategoryOther(t *testing.T) {
	raw := []byte("Some content.")

	p := NewDocumentParser()
	doc := p.Parse(raw, "/vault/work/readme.md", "work", "/vault/work")

	assert.Equal(t, "other", doc.Category)
}

func TestParse_HashIsStableForIdenticalContent(t *testing.T) {
	raw := []byte("identical content")
	p := NewDocumentParser()

	a := p.Parse(raw, "/vault/work/a.md", "work", "/vault/work")
	b := p.Parse(raw, "/vault/work/b.md", "work", "/vault/work")

	assert.Equal(t, a.Hash, b.Hash)
}

func TestParse_PeopleAsCommaSeparatedString(t *testing.T) {
	raw := []byte(`---
people: Alice, Bob, Carol
---
content`)

	p := NewDocumentParser()
	doc := p.Parse(raw, "/vault/work/note.md", "work", "/vault/work")

	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, doc.People)
}

func TestParse_CapturesUnknownFrontmatterScalarsInMeta(t *testing.T) {
	raw := []byte(`---
title: Note
status: draft
---
content`)

	p := NewDocumentParser()
	doc := p.Parse(raw, "/vault/work/note.md", "work", "/vault/work")

	assert.Equal(t, "draft", doc.Meta["status"])
	_, hasTitle := doc.Meta["title"]
	assert.False(t, hasTitle)
}
