// Package sorter runs the face sorting pipeline: discover images, extract
// descriptors in parallel, cluster them, and materialize per-person folders.
package sorter

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/face-sorter/internal/cluster"
	"github.com/kozaktomas/face-sorter/internal/face"
	"github.com/kozaktomas/face-sorter/internal/organize"
	"github.com/kozaktomas/face-sorter/internal/scanner"
)

// Extractor produces face detections for one image file.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) ([]face.Detection, error)
}

type Sorter struct {
	extractor Extractor
}

func New(extractor Extractor) *Sorter {
	return &Sorter{extractor: extractor}
}

// Options configure one sorting run.
type Options struct {
	Eps               float64
	MinSamples        int
	Concurrency       int // parallel extraction workers
	UnclusteredFolder string
	DryRun            bool
	ShowProgress      bool
}

// ImageResult is the extraction outcome for one image.
type ImageResult struct {
	Path  string
	Faces int
	Err   error
}

// ExtractResult is the merged outcome of the extraction stage.
type ExtractResult struct {
	Store         *face.Store
	PerImage      []ImageResult // traversal order
	FacesDetected int
	ImagesFailed  int
}

// Result summarizes a full sorting run.
type Result struct {
	RunID         string
	ImagesScanned int
	ImagesFailed  int
	FailedImages  []ImageResult
	FacesDetected int
	Clusters      int
	NoiseFaces    int
	Assignment    *organize.Assignment
	Copy          *organize.CopyResult
}

// Sort executes the whole pipeline. Zero discovered images or zero detected
// faces are valid outcomes, not errors. Clustering only starts once every
// image has been extracted; the corpus snapshot is the barrier.
func (s *Sorter) Sort(ctx context.Context, inputDir, outputDir string, opts Options) (*Result, error) {
	params := cluster.Params{Eps: opts.Eps, MinSamples: opts.MinSamples}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.New().String()}

	images, err := scanner.FindImages(inputDir)
	if err != nil {
		return nil, err
	}
	result.ImagesScanned = len(images)
	if len(images) == 0 {
		log.Printf("no supported image files found in %s", inputDir)
		result.Assignment = &organize.Assignment{Folders: map[string][]string{}}
		return result, nil
	}

	extracted, err := s.Extract(ctx, images, opts.Concurrency, opts.ShowProgress)
	if err != nil {
		return nil, err
	}
	result.FacesDetected = extracted.FacesDetected
	result.ImagesFailed = extracted.ImagesFailed
	for _, img := range extracted.PerImage {
		if img.Err != nil {
			result.FailedImages = append(result.FailedImages, img)
		}
	}

	records := extracted.Store.Snapshot()
	descriptors := make([]face.Descriptor, len(records))
	for i, rec := range records {
		descriptors[i] = rec.Descriptor
	}

	labels, err := cluster.Run(descriptors, params)
	if err != nil {
		return nil, err
	}
	result.Clusters = cluster.NumClusters(labels)

	assignment, err := organize.Plan(records, labels, organize.Options{
		UnclusteredFolder: opts.UnclusteredFolder,
	})
	if err != nil {
		return nil, err
	}
	result.Assignment = assignment
	result.NoiseFaces = assignment.NoiseFaces

	if opts.DryRun {
		return result, nil
	}

	copyResult, err := organize.Materialize(assignment, outputDir)
	if err != nil {
		return nil, err
	}
	result.Copy = copyResult

	return result, nil
}

// Extract runs face extraction over the given images with a bounded worker
// pool and merges the results back in traversal order, so the corpus order
// (and therefore cluster numbering) does not depend on scheduling.
func (s *Sorter) Extract(ctx context.Context, images []string, concurrency int, showProgress bool) (*ExtractResult, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription(fmt.Sprintf("Extracting faces (%d workers)", concurrency)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	type slot struct {
		detections []face.Detection
		err        error
	}
	slots := make([]slot, len(images))

	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, path := range images {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				slots[i].err = ctx.Err()
				return
			}

			detections, err := s.extractor.ExtractFile(ctx, path)
			slots[i] = slot{detections: detections, err: err}

			if bar != nil {
				_ = bar.Add(1)
			}
		}(i, path)
	}
	wg.Wait()

	if bar != nil {
		fmt.Println()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge in traversal order after the barrier.
	result := &ExtractResult{Store: face.NewStore()}
	for i, path := range images {
		img := ImageResult{Path: path}
		if slots[i].err != nil {
			img.Err = slots[i].err
			result.ImagesFailed++
			log.Printf("skipping %s: %v", path, slots[i].err)
		} else {
			img.Faces = len(slots[i].detections)
			result.FacesDetected += img.Faces
			for _, det := range slots[i].detections {
				result.Store.Add(det.Descriptor, path)
			}
		}
		result.PerImage = append(result.PerImage, img)
	}

	if result.ImagesFailed == len(images) {
		return nil, fmt.Errorf("extraction failed for all %d images, is the embedding server running?", len(images))
	}

	return result, nil
}
