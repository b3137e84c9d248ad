// Package fusion implements the pure scoring math behind hybrid search:
// combining ranked result lists with Reciprocal Rank Fusion, blending RRF
// scores with reranker judgments, and min-max normalization. None of it
// touches a store or makes a network call — every function here is
// deterministic given its inputs.
package fusion

import "sort"

// RankedItem is one entry in a single ranked list going into fusion.
type RankedItem[T any] struct {
	ID    string
	Value T
}

// Scored is a fused result: an item plus the score fusion assigned it and
// its 0-based position in the fused ranking.
type Scored[T any] struct {
	ID      string
	Value   T
	Score   float64
	RRFRank int
}

// defaultK is the RRF constant used when k<=0 is passed.
const defaultK = 60

// ReciprocalRankFusion combines multiple ranked lists into one, scoring each
// document by Σ 1/(k + rank + 1) across every list it appears in. When
// topRankBonus is set, a document adds +0.05 to its score for reaching rank 0
// in any list, or +0.02 for reaching rank <=2 (its single best rank across
// all lists, not summed per list). Ties are broken by first-observed order —
// the order items are first seen scanning lists left to right, top to
// bottom — matching a stable sort over insertion order.
func ReciprocalRankFusion[T any](lists [][]RankedItem[T], k int, topRankBonus bool) []Scored[T] {
	if k <= 0 {
		k = defaultK
	}

	type entry struct {
		id       string
		value    T
		score    float64
		bestRank int
	}

	index := make(map[string]int)
	var entries []entry

	for _, list := range lists {
		for rank, item := range list {
			if item.ID == "" {
				continue
			}
			i, seen := index[item.ID]
			if !seen {
				entries = append(entries, entry{id: item.ID, value: item.Value, bestRank: rank})
				i = len(entries) - 1
				index[item.ID] = i
			}
			entries[i].score += 1.0 / float64(k+rank+1)
			if rank < entries[i].bestRank {
				entries[i].bestRank = rank
			}
		}
	}

	if topRankBonus {
		for i := range entries {
			switch {
			case entries[i].bestRank == 0:
				entries[i].score += 0.05
			case entries[i].bestRank <= 2:
				entries[i].score += 0.02
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })

	out := make([]Scored[T], len(entries))
	for i, e := range entries {
		out[i] = Scored[T]{ID: e.id, Value: e.value, Score: e.score, RRFRank: i}
	}
	return out
}

// PositionAwareBlend re-scores RRF results by blending each one's RRF score
// with a reranker judgment score, weighted by the item's position in the RRF
// ranking: 75/25 (RRF/rerank) for the top 3, 60/40 for ranks 3-9, 40/60 from
// rank 10 on — trusting the reranker more as lexical/vector rank confidence
// drops off. A document with no rerank score is treated as scoring 0 there.
// The result is re-sorted by the blended score.
func PositionAwareBlend[T any](rrfResults []Scored[T], rerankScores map[string]float64) []Scored[T] {
	out := make([]Scored[T], len(rrfResults))
	for i, r := range rrfResults {
		rerankScore := rerankScores[r.ID]

		var rrfWeight float64
		switch {
		case i < 3:
			rrfWeight = 0.75
		case i < 10:
			rrfWeight = 0.60
		default:
			rrfWeight = 0.40
		}

		out[i] = Scored[T]{
			ID:      r.ID,
			Value:   r.Value,
			Score:   rrfWeight*r.Score + (1-rrfWeight)*rerankScore,
			RRFRank: r.RRFRank,
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// NormalizeScores rescales scores to [0,1] via min-max normalization. When
// every result has the same score, all are normalized to 1.0.
func NormalizeScores[T any](results []Scored[T]) []Scored[T] {
	if len(results) == 0 {
		return results
	}

	min, max := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}

	out := make([]Scored[T], len(results))
	copy(out, results)

	if max == min {
		for i := range out {
			out[i].Score = 1.0
		}
		return out
	}

	for i := range out {
		out[i].Score = (out[i].Score - min) / (max - min)
	}
	return out
}
