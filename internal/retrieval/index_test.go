package retrieval

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk-ai/server/internal/agent/model"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func writeIndexFile(t *testing.T, items []entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	b, err := json.Marshal(items)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	path := writeIndexFile(t, []entry{
		{Vector: []float32{0, 1, 0}, Record: model.Record{"order_id": "far"}},
		{Vector: []float32{1, 0, 0}, Record: model.Record{"order_id": "exact"}},
		{Vector: []float32{0.9, 0.1, 0}, Record: model.Record{"order_id": "close"}},
	})
	idx := NewIndex("orders", path, &stubEmbedder{vec: []float32{1, 0, 0}})

	hits, err := idx.Search(context.Background(), "anything", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].Str("order_id"))
	assert.Equal(t, "close", hits[1].Str("order_id"))
}

func TestSearchMissingIndexDegradesToEmpty(t *testing.T) {
	idx := NewIndex("orders", filepath.Join(t.TempDir(), "absent.json"),
		&stubEmbedder{vec: []float32{1}})

	hits, err := idx.Search(context.Background(), "anything", 6)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchEmbedderFailureDegradesToEmpty(t *testing.T) {
	path := writeIndexFile(t, []entry{
		{Vector: []float32{1, 0}, Record: model.Record{"order_id": "x"}},
	})
	idx := NewIndex("orders", path, &stubEmbedder{err: context.DeadlineExceeded})

	hits, err := idx.Search(context.Background(), "anything", 6)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}), "mismatched lengths")
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{0, 0}), "zero vector")
}
