// Package cluster implements density-based clustering (DBSCAN) over face
// descriptors. The implementation is deliberately the exact-neighborhood
// O(n^2) variant: approximate neighbor search would change recall and break
// run-to-run determinism for borderline points.
package cluster

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/face-sorter/internal/face"
)

// Noise is the label assigned to points that belong to no cluster.
const Noise = -1

// unvisited marks points not yet processed by the expansion loop.
const unvisited = -2

// Params are the DBSCAN tuning parameters.
type Params struct {
	// Eps is the neighborhood radius. Two descriptors are neighbors when
	// their Euclidean distance is <= Eps.
	Eps float64
	// MinSamples is the minimum neighborhood size (the point itself
	// included) for a point to be a core point.
	MinSamples int
}

// Validate checks the parameters before clustering runs.
func (p Params) Validate() error {
	if math.IsNaN(p.Eps) || math.IsInf(p.Eps, 0) {
		return errors.New("eps must be a finite number")
	}
	if p.Eps < 0 {
		return fmt.Errorf("eps must be non-negative, got %g", p.Eps)
	}
	if p.MinSamples < 1 {
		return fmt.Errorf("min-samples must be at least 1, got %d", p.MinSamples)
	}
	return nil
}

// Run clusters the descriptors and returns one label per input point, in
// input order. Labels are 0-based cluster ids or Noise. Cluster ids are
// assigned in the order clusters are first discovered scanning the input,
// and a border point reachable from several clusters keeps the assignment
// it receives first, so the result is deterministic for a fixed input
// order and fixed parameters.
func Run(points []face.Descriptor, params Params) ([]int, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := rangeQuery(points, i, params.Eps)
		if len(neighbors) < params.MinSamples {
			labels[i] = Noise
			continue
		}

		// Point i seeds a new cluster; expand it breadth-first.
		labels[i] = clusterID
		seeds := make([]int, 0, len(neighbors))
		for _, j := range neighbors {
			if j != i {
				seeds = append(seeds, j)
			}
		}

		for len(seeds) > 0 {
			q := seeds[0]
			seeds = seeds[1:]

			if labels[q] == Noise {
				// Previously judged noise, now reachable: border point.
				labels[q] = clusterID
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = clusterID

			qNeighbors := rangeQuery(points, q, params.Eps)
			if len(qNeighbors) >= params.MinSamples {
				seeds = append(seeds, qNeighbors...)
			}
		}

		clusterID++
	}

	return labels, nil
}

// NumClusters returns the number of distinct non-noise labels.
func NumClusters(labels []int) int {
	max := -1
	for _, l := range labels {
		if l > max {
			max = l
		}
	}
	return max + 1
}

// rangeQuery returns the indices of all points within eps of points[idx],
// including idx itself.
func rangeQuery(points []face.Descriptor, idx int, eps float64) []int {
	var result []int
	p := points[idx]
	for i := range points {
		if p.Distance(points[i]) <= eps {
			result = append(result, i)
		}
	}
	return result
}
