// Package organize turns cluster labels back into an output folder layout
// and copies the source photos into it.
package organize

import (
	"fmt"
	"sort"

	"github.com/kozaktomas/face-sorter/internal/cluster"
	"github.com/kozaktomas/face-sorter/internal/face"
)

// Options control how the folder assignment is built.
type Options struct {
	// UnclusteredFolder, when non-empty, collects photos whose faces were
	// all labeled noise. Empty means noise faces are dropped (they are
	// still counted in the assignment for reporting).
	UnclusteredFolder string
}

// Assignment maps output folder names to the unique source paths that must
// be copied into them. It is built once per run and not mutated afterwards.
type Assignment struct {
	// FolderOrder lists folder names in assignment order: Person_N folders
	// by first appearance in the corpus, then the unclustered bucket.
	FolderOrder []string
	// Folders maps folder name to sorted unique source paths.
	Folders map[string][]string
	// NoiseFaces is the number of noise-labeled faces, whether bucketed
	// or dropped.
	NoiseFaces int
}

// Plan reduces (corpus, labels) to a folder assignment. Records are walked
// in corpus order; the first time a cluster label appears it claims the
// next Person_N name, which makes naming deterministic given deterministic
// clustering. The same source path is added to a folder at most once, even
// when several faces from one image land in the same cluster.
func Plan(records []face.Record, labels []int, opts Options) (*Assignment, error) {
	if len(records) != len(labels) {
		return nil, fmt.Errorf("corpus has %d records but %d labels", len(records), len(labels))
	}

	folderFor := make(map[int]string) // cluster label -> folder name
	sets := make(map[string]map[string]bool)
	var order []string

	addPath := func(folder, path string) {
		set, ok := sets[folder]
		if !ok {
			set = make(map[string]bool)
			sets[folder] = set
			order = append(order, folder)
		}
		set[path] = true
	}

	a := &Assignment{}
	for i, rec := range records {
		label := labels[i]
		if label == cluster.Noise {
			a.NoiseFaces++
			if opts.UnclusteredFolder != "" {
				addPath(opts.UnclusteredFolder, rec.SourcePath)
			}
			continue
		}

		folder, ok := folderFor[label]
		if !ok {
			folder = fmt.Sprintf("Person_%d", len(folderFor)+1)
			folderFor[label] = folder
		}
		addPath(folder, rec.SourcePath)
	}

	// Keep the unclustered bucket last in the ordering.
	if opts.UnclusteredFolder != "" {
		for i, name := range order {
			if name == opts.UnclusteredFolder && i != len(order)-1 {
				order = append(append(order[:i], order[i+1:]...), name)
				break
			}
		}
	}

	a.FolderOrder = order
	a.Folders = make(map[string][]string, len(sets))
	for folder, set := range sets {
		paths := make([]string, 0, len(set))
		for p := range set {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		a.Folders[folder] = paths
	}

	return a, nil
}

// NumFolders returns the number of output folders in the assignment.
func (a *Assignment) NumFolders() int {
	return len(a.FolderOrder)
}

// NumFiles returns the total number of file copies the assignment implies.
func (a *Assignment) NumFiles() int {
	total := 0
	for _, paths := range a.Folders {
		total += len(paths)
	}
	return total
}
