package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReciprocalRankFusion_CombinesAndBonusesTopRank(t *testing.T) {
	bm25 := []RankedItem[string]{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	vector := []RankedItem[string]{{ID: "b"}, {ID: "a"}, {ID: "d"}}

	results := ReciprocalRankFusion([][]RankedItem[string]{bm25, vector}, 60, true)

	assert.Len(t, results, 4)
	// "a" and "b" each rank #1 in one list, so both get the +0.05 bonus and
	// outrank "c"/"d" which never reach rank 0.
	byID := map[string]Scored[string]{}
	for _, r := range results {
		byID[r.ID] = r
	}
	assert.Greater(t, byID["a"].Score, byID["c"].Score)
	assert.Greater(t, byID["b"].Score, byID["d"].Score)
}

func TestReciprocalRankFusion_TiesKeepFirstObservedOrder(t *testing.T) {
	// Two single-appearance items at the same rank in disjoint lists score
	// identically; "x" is seen first scanning list-then-rank order.
	listA := []RankedItem[string]{{ID: "x"}}
	listB := []RankedItem[string]{{ID: "y"}}

	results := ReciprocalRankFusion([][]RankedItem[string]{listA, listB}, 60, false)

	assert.Equal(t, "x", results[0].ID)
	assert.Equal(t, "y", results[1].ID)
	assert.Equal(t, 0, results[0].RRFRank)
	assert.Equal(t, 1, results[1].RRFRank)
}

func TestReciprocalRankFusion_EmptyListsYieldNoResults(t *testing.T) {
	results := ReciprocalRankFusion[string](nil, 60, true)
	assert.Empty(t, results)
}

func TestPositionAwareBlend_WeightsShiftByPosition(t *testing.T) {
	// The weight follows the item's index in the slice, so "mid" and "low"
	// sit at indices 5 and 12, with filler items around them.
	rrf := make([]Scored[string], 13)
	for i := range rrf {
		rrf[i] = Scored[string]{ID: "filler" + string(rune('a'+i)), Score: 1.0, RRFRank: i}
	}
	rrf[0] = Scored[string]{ID: "top", Score: 1.0, RRFRank: 0}
	rrf[5] = Scored[string]{ID: "mid", Score: 1.0, RRFRank: 5}
	rrf[12] = Scored[string]{ID: "low", Score: 1.0, RRFRank: 12}
	rerank := map[string]float64{"top": 0.0, "mid": 0.0, "low": 0.0}

	blended := PositionAwareBlend(rrf, rerank)

	byID := map[string]Scored[string]{}
	for _, r := range blended {
		byID[r.ID] = r
	}
	// With rerank_score=0 throughout, blended score equals rrf_weight, which
	// decreases with position: 0.75 > 0.60 > 0.40.
	assert.InDelta(t, 0.75, byID["top"].Score, 1e-9)
	assert.InDelta(t, 0.60, byID["mid"].Score, 1e-9)
	assert.InDelta(t, 0.40, byID["low"].Score, 1e-9)
}

func TestPositionAwareBlend_MissingRerankScoreTreatedAsZero(t *testing.T) {
	rrf := []Scored[string]{{ID: "nodata", Score: 0.5, RRFRank: 0}}
	blended := PositionAwareBlend(rrf, map[string]float64{})
	assert.InDelta(t, 0.75*0.5, blended[0].Score, 1e-9)
}

func TestNormalizeScores_MinMax(t *testing.T) {
	results := []Scored[string]{
		{ID: "a", Score: 1.0},
		{ID: "b", Score: 3.0},
		{ID: "c", Score: 5.0},
	}
	normalized := NormalizeScores(results)

	byID := map[string]Scored[string]{}
	for _, r := range normalized {
		byID[r.ID] = r
	}
	assert.InDelta(t, 0.0, byID["a"].Score, 1e-9)
	assert.InDelta(t, 0.5, byID["b"].Score, 1e-9)
	assert.InDelta(t, 1.0, byID["c"].Score, 1e-9)
}

func TestNormalizeScores_AllEqualYieldsOne(t *testing.T) {
	results := []Scored[string]{{ID: "a", Score: 2.0}, {ID: "b", Score: 2.0}}
	normalized := NormalizeScores(results)
	for _, r := range normalized {
		assert.Equal(t, float64(1.0), r.Score)
	}
}

func TestNormalizeScores_Empty(t *testing.T) {
	assert.Empty(t, NormalizeScores[string](nil))
}
