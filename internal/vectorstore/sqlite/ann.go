package sqlite

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/noteflux/noteflux/internal/embedding"
)

// annIndex is an in-memory approximate nearest-neighbor accelerator built on
// coder/hnsw. It mirrors chunk vectors already durable in SQLite; losing it
// on restart just costs a rebuild, never data.
type annIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
}

func newANNIndex() *annIndex {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.EuclideanDistance
	return &annIndex{graph: g}
}

func (a *annIndex) insert(id string, vector embedding.Vector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph.Add(hnsw.MakeNode(id, []float32(vector)))
}

func (a *annIndex) remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph.Delete(id)
}

func (a *annIndex) len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph.Len()
}

// search returns the k nearest chunk IDs to query. Callers re-score the
// returned candidates against the durable vectors rather than trusting the
// graph's internal distance, since the graph is rebuilt lazily and may lag a
// concurrent write.
func (a *annIndex) search(query embedding.Vector, k int) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.graph.Len() == 0 {
		return nil
	}
	neighbors := a.graph.Search([]float32(query), k)
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
	}
	return ids
}
