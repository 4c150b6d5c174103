// Package index provides approximate nearest-neighbor search over a face
// corpus for the similar command. Clustering never uses this index; it
// relies on exact neighborhoods.
package index

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-sorter/internal/face"
)

const maxNeighbors = 16

// Match is one nearest-neighbor result.
type Match struct {
	Record   face.Record
	Distance float64
}

// FaceIndex wraps an HNSW graph keyed by corpus record index.
type FaceIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int]
	records []face.Record
}

// Build constructs the index from a corpus snapshot.
func Build(records []face.Record) *FaceIndex {
	g := hnsw.NewGraph[int]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for i := range records {
		g.Add(hnsw.MakeNode(i, records[i].Descriptor.Float32()))
	}

	return &FaceIndex{graph: g, records: records}
}

// Len returns the number of indexed faces.
func (x *FaceIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Search returns up to k faces nearest to the query descriptor, closest
// first, with exact Euclidean distances recomputed from the descriptors.
func (x *FaceIndex) Search(query face.Descriptor, k int) ([]Match, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.records) == 0 {
		return nil, errors.New("index is empty")
	}

	neighbors := x.graph.Search(query.Float32(), k)
	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		rec := x.records[n.Key]
		matches = append(matches, Match{
			Record:   rec,
			Distance: query.Distance(rec.Descriptor),
		})
	}

	return matches, nil
}
