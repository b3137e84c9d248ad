package indexer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// sectionSplit matches runs of two or more newlines. headerStart matches the
// start of a level-2/3 markdown header line; Chunk puts a blank line before
// each such header, so splitting on sectionSplit also splits immediately
// before every header and keeps it attached to the section that follows it.
var (
	sectionSplit = regexp.MustCompile(`\n\n+`)
	headerStart  = regexp.MustCompile(`(?m)^(#{2,3}\s)`)
)

// minContentChars is the invariant from spec §4.3: documents with fewer than
// this many non-whitespace characters produce zero chunks.
const minContentChars = 50

// MarkdownChunker splits a document's body on paragraph/header boundaries and
// accumulates sections into chunks bounded by chunkSize*4 characters, carrying
// the trailing chunkOverlap*4 characters of each emitted chunk into the next.
type MarkdownChunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewMarkdownChunker creates a chunker with the given size/overlap in
// token-equivalent units; both are interpreted as chars/4 internally.
func NewMarkdownChunker(chunkSize, chunkOverlap int) *MarkdownChunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &MarkdownChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits a Document's body into Chunks. Chunk IDs are
// "<file_hash>_<chunk_index>", dense 0..N-1 per file.
func (c *MarkdownChunker) Chunk(doc Document) []Chunk {
	if len(strings.TrimSpace(doc.Content)) < minContentChars {
		return nil
	}

	maxChars := c.chunkSize * 4
	overlapChars := c.chunkOverlap * 4

	sections := sectionSplit.Split(headerStart.ReplaceAllString(doc.Content, "\n\n$1"), -1)

	var chunks []Chunk
	var current strings.Builder

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		chunks = append(chunks, c.build(doc, text, len(chunks)))
	}

	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(section)+2 > maxChars {
			emitted := current.String()
			flush()

			if overlapChars > 0 && len(emitted) > 0 {
				tail := emitted
				if len(tail) > overlapChars {
					tail = tail[len(tail)-overlapChars:]
				}
				current.WriteString(tail)
				current.WriteString("\n\n")
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(section)
	}
	flush()

	return chunks
}

func (c *MarkdownChunker) build(doc Document, content string, index int) Chunk {
	return Chunk{
		ID:         doc.Hash + "_" + strconv.Itoa(index),
		FilePath:   doc.FilePath,
		Vault:      doc.Vault,
		Category:   doc.Category,
		Title:      doc.Title,
		Date:       doc.Date,
		People:     doc.People,
		Projects:   doc.Projects,
		Content:    content,
		ChunkIndex: index,
		FileHash:   doc.Hash,
		IndexedAt:  time.Now(),
	}
}
