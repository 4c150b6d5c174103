package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/extract"
	"github.com/kozaktomas/face-sorter/internal/scanner"
	"github.com/kozaktomas/face-sorter/internal/sorter"
)

var scanCmd = &cobra.Command{
	Use:   "scan [input-dir]",
	Short: "Count faces per photo without sorting",
	Long: `Scan input-dir, run face detection on every image and report the
face count per photo. Nothing is clustered or copied; use this to check
the embedding server works and to get a feel for the corpus before
running sort.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	cfg := config.Load()
	scanCmd.Flags().Int("concurrency", cfg.Defaults.Extraction.Concurrency, "Number of parallel extraction workers")
	scanCmd.Flags().Bool("json", false, "Output as JSON")
}

// scanImage is one per-photo entry in the JSON output.
type scanImage struct {
	Path  string `json:"path"`
	Faces int    `json:"faces"`
	Error string `json:"error,omitempty"`
}

// scanOutput is the JSON output structure.
type scanOutput struct {
	ImagesScanned int         `json:"images_scanned"`
	ImagesFailed  int         `json:"images_failed"`
	FacesDetected int         `json:"faces_detected"`
	Images        []scanImage `json:"images"`
}

func runScan(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	client := extract.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	extractor := extract.NewFileExtractor(client, cfg.Defaults.Extraction.MaxImageSize)

	images, err := scanner.FindImages(inputDir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Printf("No supported image files found in %s\n", inputDir)
		return nil
	}

	s := sorter.New(extractor)
	result, err := s.Extract(context.Background(), images, concurrency, !jsonOutput)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if jsonOutput {
		out := scanOutput{
			ImagesScanned: len(images),
			ImagesFailed:  result.ImagesFailed,
			FacesDetected: result.FacesDetected,
		}
		for _, img := range result.PerImage {
			entry := scanImage{Path: img.Path, Faces: img.Faces}
			if img.Err != nil {
				entry.Error = img.Err.Error()
			}
			out.Images = append(out.Images, entry)
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PHOTO\tFACES")
	for _, img := range result.PerImage {
		if img.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", img.Path, img.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", img.Path, img.Faces)
	}
	w.Flush()

	fmt.Printf("\nImages scanned: %d\n", len(images))
	fmt.Printf("Images failed:  %d\n", result.ImagesFailed)
	fmt.Printf("Faces detected: %d\n", result.FacesDetected)

	return nil
}
