// Package vectorindex provides read-only approximate nearest-neighbour search
// over a catalog's embeddings.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/coder/hnsw"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/logger"
)

const (
	// FanOut is the maximum number of neighbours per graph node.
	FanOut = 32
	// SearchDepth is the candidate list size used while building and querying.
	SearchDepth = 200
)

// ErrUnavailable is returned by Search when the index could not be built.
var ErrUnavailable = errors.New("index unavailable")

// Index is immutable after construction and safe for concurrent searches.
type Index struct {
	name  string
	graph *hnsw.Graph[int]
	dim   int
	size  int
	cause error
}

// Hit is a single search result.
type Hit struct {
	ID    int
	Score float32
}

// Open builds the index from the shards in dir. Failures are logged and
// produce an unavailable index instead of an error.
func Open(name, dir string, log *zap.Logger) *Index {
	log = logger.WithFields(log, zap.String(logger.FieldCatalog, name))

	idx, err := Load(name, dir)
	if err != nil {
		log.Warn("vector index unavailable", zap.String("dir", dir), zap.Error(err))
		return Unavailable(name, err)
	}

	log.Info("vector index built", zap.Int("size", idx.size), zap.Int("dim", idx.dim))
	return idx
}

// Load reads every shard in dir and builds the graph.
func Load(name, dir string) (*Index, error) {
	shards, err := DiscoverShards(dir)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("no embedding shards found in %q", dir)
	}

	var (
		ids     []int
		vectors [][]float32
	)
	for _, shard := range shards {
		rows, err := readShard(shard.Path)
		if err != nil {
			return nil, fmt.Errorf("shard %s: %w", shard.Path, err)
		}
		for r, row := range rows {
			ids = append(ids, shard.Start+r)
			vectors = append(vectors, row)
		}
	}

	return New(name, ids, vectors)
}

// New builds an index over explicit ids. ids and vectors must have the same
// length, every vector the same width and every id must be unique.
func New(name string, ids []int, vectors [][]float32) (*Index, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("got %d ids for %d vectors", len(ids), len(vectors))
	}
	if len(vectors) == 0 {
		return nil, errors.New("no vectors to index")
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("vectors have zero width")
	}

	graph := hnsw.NewGraph[int]()
	graph.M = FanOut
	graph.EfSearch = SearchDepth
	graph.Distance = hnsw.CosineDistance

	seen := make(map[int]struct{}, len(ids))
	nodes := make([]hnsw.Node[int], 0, len(ids))
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector %d has width %d, expected %d", ids[i], len(vec), dim)
		}
		if _, dup := seen[ids[i]]; dup {
			return nil, fmt.Errorf("duplicate id %d", ids[i])
		}
		seen[ids[i]] = struct{}{}
		nodes = append(nodes, hnsw.MakeNode(ids[i], Normalize(vec)))
	}
	graph.Add(nodes...)

	return &Index{name: name, graph: graph, dim: dim, size: len(nodes)}, nil
}

// Unavailable returns an index whose searches fail with ErrUnavailable.
func Unavailable(name string, cause error) *Index {
	return &Index{name: name, cause: cause}
}

func (i *Index) Name() string { return i.name }

func (i *Index) Available() bool { return i != nil && i.graph != nil }

// Cause reports why the index is unavailable.
func (i *Index) Cause() error {
	if i == nil {
		return ErrUnavailable
	}
	return i.cause
}

func (i *Index) Dim() int { return i.dim }

func (i *Index) Len() int { return i.size }

// Search returns up to k catalog ids ordered by non-increasing similarity.
func (i *Index) Search(query []float32, k int) ([]int, error) {
	hits, err := i.SearchHits(query, k)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(hits))
	for n, hit := range hits {
		ids[n] = hit.ID
	}
	return ids, nil
}

// SearchHits is Search with the cosine similarity of every hit.
func (i *Index) SearchHits(query []float32, k int) ([]Hit, error) {
	if !i.Available() {
		if i != nil && i.cause != nil {
			return nil, fmt.Errorf("%s: %w: %v", i.name, ErrUnavailable, i.cause)
		}
		return nil, ErrUnavailable
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("query has width %d, index expects %d", len(query), i.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > i.size {
		k = i.size
	}

	q := Normalize(query)
	nodes := i.graph.Search(q, k)

	hits := make([]Hit, 0, len(nodes))
	for _, node := range nodes {
		hits = append(hits, Hit{ID: node.Key, Score: dot(q, node.Value)})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Normalize returns a unit-length copy of vec.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sum) + 1e-12)

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
