package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hit(id string) SearchHit {
	return SearchHit{ID: id, Text: "memory " + id}
}

func ids(hits []SearchHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

func TestMergeSemanticNewHitsFirst(t *testing.T) {
	old := []SearchHit{hit("X"), hit("Y"), hit("Z"), hit("W"), hit("V")}
	hits := []SearchHit{hit("A"), hit("B"), hit("C")}

	merged := mergeSemantic(old, hits)

	assert.Equal(t, []string{"A", "B", "C", "X", "Y"}, ids(merged))
}

func TestMergeSemanticDedupesByID(t *testing.T) {
	old := []SearchHit{hit("A"), hit("Y")}
	hits := []SearchHit{hit("A"), hit("B")}

	merged := mergeSemantic(old, hits)

	assert.Equal(t, []string{"A", "B", "Y"}, ids(merged))
}

func TestMergeSemanticEmptyBuffer(t *testing.T) {
	merged := mergeSemantic(nil, []SearchHit{hit("A"), hit("B")})
	assert.Equal(t, []string{"A", "B"}, ids(merged))
}

func TestMergeSpontaneousKeepsTwoHoldovers(t *testing.T) {
	old := []SearchHit{hit("X"), hit("Y"), hit("Z"), hit("W"), hit("V")}
	hits := []SearchHit{hit("P"), hit("Q"), hit("R")}

	merged := mergeSpontaneous(old, hits)

	assert.Equal(t, []string{"X", "Y", "P", "Q", "R"}, ids(merged))
}

func TestMergeSpontaneousEmptyBufferTakesHits(t *testing.T) {
	hits := []SearchHit{hit("P"), hit("Q")}
	merged := mergeSpontaneous(nil, hits)
	assert.Equal(t, []string{"P", "Q"}, ids(merged))
}

func TestMergeSpontaneousSkipsDuplicateHits(t *testing.T) {
	old := []SearchHit{hit("X"), hit("Y"), hit("Z")}
	hits := []SearchHit{hit("X"), hit("P")}

	merged := mergeSpontaneous(old, hits)

	assert.Equal(t, []string{"X", "Y", "P"}, ids(merged))
}

func TestMergeNeverExceedsLimit(t *testing.T) {
	old := []SearchHit{hit("1"), hit("2"), hit("3"), hit("4"), hit("5")}
	hits := []SearchHit{hit("6"), hit("7"), hit("8"), hit("9"), hit("10"), hit("11")}

	assert.Len(t, mergeSemantic(old, hits), BufferLimit)
	assert.Len(t, mergeSpontaneous(old, hits), BufferLimit)
}
