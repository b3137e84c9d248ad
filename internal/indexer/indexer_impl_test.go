package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/enrichment"
	"github.com/noteflux/noteflux/internal/vectorstore"
)

func removeFile(path string) error {
	return os.Remove(path)
}

func newTestIndexer() *DefaultIndexer {
	return NewIndexer(NewFileWalker(), NewDocumentParser(), NewMarkdownChunker(500, 50))
}

func testOptions(root string) (IndexOptions, vectorstore.VectorStore, vectorstore.FullTextStore) {
	vs := vectorstore.NewMemoryStore()
	fts := vectorstore.NewMemoryFTSStore()
	return IndexOptions{
		VaultPaths:  map[string]string{"work": root},
		Embedder:    embedding.NewMock(32),
		VectorStore: vs,
		FTSStore:    fts,
	}, vs, fts
}

func TestIndexFile_WritesChunksToBothStores(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	writeFile(t, path, "This is a long enough note about the quarterly roadmap plan to pass the minimum content threshold.")

	idx := newTestIndexer()
	opts, vs, _ := testOptions(root)

	n, err := idx.IndexFile(context.Background(), opts, "work", path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIndexFile_ReplacesStaleChunksOnReindex(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	writeFile(t, path, "Initial content long enough to pass the minimum character threshold for chunking.")

	idx := newTestIndexer()
	opts, vs, _ := testOptions(root)

	_, err := idx.IndexFile(context.Background(), opts, "work", path)
	require.NoError(t, err)

	writeFile(t, path, "Completely different content, also long enough to pass the minimum character threshold.")
	_, err = idx.IndexFile(context.Background(), opts, "work", path)
	require.NoError(t, err)

	count, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "reindexing the same file should not accumulate stale chunks")
}

func TestIndexFile_ShortContentProducesZeroChunksWithoutError(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	writeFile(t, path, "too short")

	idx := newTestIndexer()
	opts, vs, _ := testOptions(root)

	n, err := idx.IndexFile(context.Background(), opts, "work", path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestIndexFile_UnknownVaultErrors(t *testing.T) {
	idx := newTestIndexer()
	opts, _, _ := testOptions(t.TempDir())

	_, err := idx.IndexFile(context.Background(), opts, "nonexistent", "/tmp/note.md")
	assert.Error(t, err)
}

func TestFullReindex_IndexesAllFilesAndReportsStatus(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "First note with enough content to clear the chunking threshold easily.")
	writeFile(t, filepath.Join(root, "b.md"), "Second note with enough content to clear the chunking threshold easily.")

	idx := newTestIndexer()
	opts, vs, _ := testOptions(root)

	status, err := idx.FullReindex(context.Background(), opts, "work")
	require.NoError(t, err)
	assert.Equal(t, 2, status.FilesProcessed)
	assert.False(t, status.Running)
	assert.False(t, status.Cancelled)

	count, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestFullReindex_OneBadFileDoesNotAbortThePass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.md"), "A perfectly good note with plenty of content for chunking purposes.")
	writeFile(t, filepath.Join(root, "bad.md"), "short")

	idx := newTestIndexer()
	opts, vs, _ := testOptions(root)

	status, err := idx.FullReindex(context.Background(), opts, "work")
	require.NoError(t, err)
	assert.Equal(t, 2, status.FilesProcessed) // zero-chunk files still count as processed, not failed

	count, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIncrementalIndex_SkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	writeFile(t, path, "Stable content that does not change between the two indexing passes at all.")

	idx := newTestIndexer()
	opts, vs, _ := testOptions(root)

	_, err := idx.FullReindex(context.Background(), opts, "work")
	require.NoError(t, err)

	status, err := idx.IncrementalIndex(context.Background(), opts, "work")
	require.NoError(t, err)
	assert.Equal(t, 0, status.FilesProcessed, "unchanged file should be silently skipped")

	count, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIncrementalIndex_RemovesEntriesForDeletedFiles(t *testing.T) {
	root := t.TempDir()
	pathA := filepath.Join(root, "a.md")
	pathB := filepath.Join(root, "b.md")
	writeFile(t, pathA, "Note A with enough content to clear the chunking threshold easily.")
	writeFile(t, pathB, "Note B with enough content to clear the chunking threshold easily.")

	idx := newTestIndexer()
	opts, vs, fts := testOptions(root)

	_, err := idx.FullReindex(context.Background(), opts, "work")
	require.NoError(t, err)

	require.NoError(t, removeFile(pathB))

	status, err := idx.IncrementalIndex(context.Background(), opts, "work")
	require.NoError(t, err)
	assert.False(t, status.Cancelled)

	count, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	results, err := fts.SearchBM25(context.Background(), "Note", vectorstore.SearchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRequestCancel_StopsAFullReindexEarly(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, filepath.Join(root, "note"+string(rune('a'+i%26))+string(rune('0'+i/26))+".md"),
			"Note content long enough to clear the minimum chunking threshold for indexing purposes.")
	}

	idx := newTestIndexer()
	opts, _, _ := testOptions(root)
	opts.Embedder = &cancellingEmbedder{Embedder: opts.Embedder, idx: idx}

	status, err := idx.FullReindex(context.Background(), opts, "work")
	require.NoError(t, err)
	assert.True(t, status.Cancelled)
	assert.Less(t, status.FilesProcessed, 50)
}

// cancellingEmbedder requests a cancel on idx each time it embeds, i.e.
// while a pass is running.
type cancellingEmbedder struct {
	embedding.Embedder
	idx *DefaultIndexer
}

func (c *cancellingEmbedder) Embed(ctx context.Context, text string) (*embedding.Embedding, error) {
	c.idx.RequestCancel()
	return c.Embedder.Embed(ctx, text)
}

func TestIndexFile_AttachesEnrichmentMetadata(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	writeFile(t, path, "Follow-up on the feature/PROJ-42 branch: remember to close #17 once the fix lands.")

	idx := newTestIndexer()
	opts, vs, _ := testOptions(root)
	opts.Enricher = enrichment.NewPipeline(nil)

	n, err := idx.IndexFile(context.Background(), opts, "work", path)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	indexed, err := vs.ListIndexedFiles(context.Background())
	require.NoError(t, err)
	hash, ok := indexed[path]
	require.True(t, ok, "expected %s to be indexed", path)

	doc, err := vs.Get(context.Background(), hash+"_0")
	require.NoError(t, err)

	refs, ok := doc.Metadata["story_references"].(map[string][]string)
	require.True(t, ok, "expected story_references in chunk metadata")
	assert.Contains(t, refs["issues"], "17")
	assert.Contains(t, refs["branches"], "PROJ-42")
}
