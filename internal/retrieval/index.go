package retrieval

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// entry is one indexed record with its precomputed embedding.
type entry struct {
	Vector []float32    `json:"vector"`
	Record model.Record `json:"record"`
}

// Index is an in-process similarity index. The index file is loaded lazily
// on first use and then treated as immutable for the process lifetime;
// concurrent first use collapses to a single load.
type Index struct {
	name  string
	path  string
	embed Embedder

	group  singleflight.Group
	mu     sync.RWMutex
	loaded bool
	items  []entry
}

// NewIndex creates an index over the given file. A missing file is not an
// error; searches degrade to empty results.
func NewIndex(name, path string, embed Embedder) *Index {
	return &Index{name: name, path: path, embed: embed}
}

func (x *Index) ensureLoaded() {
	x.mu.RLock()
	loaded := x.loaded
	x.mu.RUnlock()
	if loaded {
		return
	}

	x.group.Do("load", func() (any, error) {
		x.mu.RLock()
		loaded := x.loaded
		x.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		var items []entry
		raw, err := os.ReadFile(x.path)
		if err != nil {
			logx.Warn().Err(err).Str("index", x.name).Str("path", x.path).
				Msg("index file unavailable, searches will return no hits")
		} else if err := json.Unmarshal(raw, &items); err != nil {
			logx.Error().Err(err).Str("index", x.name).Str("path", x.path).
				Msg("index file unreadable, searches will return no hits")
			items = nil
		} else {
			logx.Info().Str("index", x.name).Int("records", len(items)).Msg("index loaded")
		}

		x.mu.Lock()
		x.items = items
		x.loaded = true
		x.mu.Unlock()
		return nil, nil
	})
}

// Warm forces the lazy load, for start-up warm-up.
func (x *Index) Warm() {
	x.ensureLoaded()
}

// Len returns the number of indexed records (0 before load).
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

// Search returns up to k records ranked by cosine similarity to the query.
// Any failure (missing index, embedder outage) degrades to an empty result
// and never fails the turn.
func (x *Index) Search(ctx context.Context, query string, k int) ([]model.Record, error) {
	x.ensureLoaded()

	x.mu.RLock()
	items := x.items
	x.mu.RUnlock()
	if len(items) == 0 || k <= 0 {
		return nil, nil
	}

	vec, err := x.embed.Embed(ctx, query)
	if err != nil {
		logx.Warn().Err(err).Str("index", x.name).Msg("query embedding failed, returning no hits")
		return nil, nil
	}

	type scored struct {
		score  float32
		record model.Record
	}
	ranked := make([]scored, 0, len(items))
	for _, it := range items {
		ranked = append(ranked, scored{score: CosineSimilarity(vec, it.Vector), record: it.Record})
	}
	// stable sort preserves the underlying index order for tied scores
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]model.Record, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.record)
	}
	return out, nil
}

var _ model.Searcher = (*Index)(nil)
