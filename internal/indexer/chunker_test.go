package indexer

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_BelowMinContentLengthProducesNoChunks(t *testing.T) {
	c := NewMarkdownChunker(500, 50)
	doc := Document{Hash: "h", Content: "too short"}

	chunks := c.Chunk(doc)
	assert.Empty(t, chunks)
}

func TestChunk_SingleSmallSectionProducesOneChunk(t *testing.T) {
	c := NewMarkdownChunker(500, 50)
	doc := Document{
		Hash:    "abc123",
		Content: strings.Repeat("This is a sentence about the roadmap. ", 10),
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 1)
	assert.Equal(t, "abc123_0", chunks[0].ID)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestChunk_SplitsOnParagraphBoundariesWhenOverSize(t *testing.T) {
	c := NewMarkdownChunker(10, 0) // maxChars = 40
	doc := Document{
		Hash: "doc1",
		Content: strings.Repeat("alpha beta gamma delta epsilon zeta eta theta. ", 1) +
			"\n\n" + strings.Repeat("iota kappa lambda mu nu xi omicron pi. ", 1) +
			"\n\n" + strings.Repeat("rho sigma tau upsilon phi chi psi omega. ", 1),
	}

	chunks := c.Chunk(doc)
	assert.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, "doc1_"+strconv.Itoa(i), chunk.ID)
	}
}

func TestChunk_CarriesMetadataFromDocument(t *testing.T) {
	c := NewMarkdownChunker(500, 50)
	doc := Document{
		Hash:     "h1",
		FilePath: "/vault/work/note.md",
		Vault:    "work",
		Category: "meetings",
		Title:    "Sync",
		Date:     "2026-01-01",
		People:   []string{"Alice"},
		Projects: []string{"infra"},
		Content:  strings.Repeat("content about the project plan. ", 10),
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 1)
	assert.Equal(t, doc.FilePath, chunks[0].FilePath)
	assert.Equal(t, doc.Vault, chunks[0].Vault)
	assert.Equal(t, doc.Title, chunks[0].Title)
	assert.Equal(t, doc.People, chunks[0].People)
	assert.Equal(t, doc.Hash, chunks[0].FileHash)
}

func TestChunk_OverlapCarriesTrailingTextIntoNextChunk(t *testing.T) {
	c := NewMarkdownChunker(10, 5) // maxChars=40, overlapChars=20
	section := func(s string) string { return strings.Repeat(s+" ", 6) }
	doc := Document{
		Hash: "h2",
		Content: section("wordsone") + "\n\n" + section("wordstwo") +
			"\n\n" + section("wordsthree"),
	}

	chunks := c.Chunk(doc)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.Contains(chunks[1].Content, "wordsone"),
		"expected chunk 1 to carry overlap from the end of chunk 0, got: %q", chunks[1].Content)
}
