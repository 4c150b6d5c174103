package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/extract"
	"github.com/kozaktomas/face-sorter/internal/face"
	"github.com/kozaktomas/face-sorter/internal/index"
	"github.com/kozaktomas/face-sorter/internal/scanner"
	"github.com/kozaktomas/face-sorter/internal/sorter"
)

var similarCmd = &cobra.Command{
	Use:   "similar [query-image] [input-dir]",
	Short: "Find photos containing a face similar to the query image",
	Long: `Find the photos under input-dir whose faces are closest to the face
in query-image. Distances are Euclidean over the face descriptors; lower
means more similar. When the query image contains several faces, the one
with the highest detection score is used.

Examples:
  # Who else appears with the person in portrait.jpg?
  face-sorter similar portrait.jpg ~/Pictures/holiday

  # Stricter matching, top 5 only
  face-sorter similar --threshold 0.5 --limit 5 portrait.jpg ./photos`,
	Args: cobra.ExactArgs(2),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	cfg := config.Load()
	similarCmd.Flags().Float64("threshold", cfg.Defaults.Similar.Threshold, "Maximum descriptor distance (lower = more similar)")
	similarCmd.Flags().Int("limit", cfg.Defaults.Similar.Limit, "Maximum number of photos to return")
	similarCmd.Flags().Int("concurrency", cfg.Defaults.Extraction.Concurrency, "Number of parallel extraction workers")
	similarCmd.Flags().Bool("json", false, "Output as JSON")
}

// similarPhoto is one result entry.
type similarPhoto struct {
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}

// similarOutput is the JSON output structure.
type similarOutput struct {
	QueryImage string         `json:"query_image"`
	Threshold  float64        `json:"threshold"`
	Results    []similarPhoto `json:"results"`
	Count      int            `json:"count"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	queryImage := args[0]
	inputDir := args[1]

	threshold := mustGetFloat64(cmd, "threshold")
	limit := mustGetInt(cmd, "limit")
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	client := extract.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	extractor := extract.NewFileExtractor(client, cfg.Defaults.Extraction.MaxImageSize)

	ctx := context.Background()

	query, err := queryDescriptor(ctx, extractor, queryImage)
	if err != nil {
		return err
	}

	images, err := scanner.FindImages(inputDir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no supported image files found in %s", inputDir)
	}

	s := sorter.New(extractor)
	extracted, err := s.Extract(ctx, images, concurrency, !jsonOutput)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	records := extracted.Store.Snapshot()
	if len(records) == 0 {
		return errors.New("no faces detected in the input directory")
	}

	idx := index.Build(records)

	// Over-fetch: several faces of the same photo can be neighbors and
	// collapse into one result after deduplication by path.
	matches, err := idx.Search(query, limit*4)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var results []similarPhoto
	for _, m := range matches {
		if m.Distance > threshold {
			continue
		}
		if seen[m.Record.SourcePath] {
			continue
		}
		seen[m.Record.SourcePath] = true
		results = append(results, similarPhoto{Path: m.Record.SourcePath, Distance: m.Distance})
		if len(results) >= limit {
			break
		}
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(similarOutput{
			QueryImage: queryImage,
			Threshold:  threshold,
			Results:    results,
			Count:      len(results),
		})
	}

	if len(results) == 0 {
		fmt.Printf("No photos within distance %.2f of the query face.\n", threshold)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PHOTO\tDISTANCE")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.3f\n", r.Path, r.Distance)
	}
	w.Flush()

	return nil
}

// queryDescriptor extracts the descriptor of the best face in the query
// image (highest detection score when there are several).
func queryDescriptor(ctx context.Context, extractor *extract.FileExtractor, path string) (face.Descriptor, error) {
	var zero face.Descriptor

	detections, err := extractor.ExtractFile(ctx, path)
	if err != nil {
		return zero, fmt.Errorf("failed to extract query image: %w", err)
	}
	if len(detections) == 0 {
		return zero, fmt.Errorf("no face found in query image %s", path)
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.DetScore > best.DetScore {
			best = d
		}
	}
	return best.Descriptor, nil
}
