package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/extract"
	"github.com/kozaktomas/face-sorter/internal/sorter"
)

var sortCmd = &cobra.Command{
	Use:   "sort [input-dir] [output-dir]",
	Short: "Sort photos into per-person folders",
	Long: `Sort photos from input-dir into per-person folders under output-dir.

Every image is scanned for faces, the face descriptors are clustered with
DBSCAN, and each photo is copied into the folder of every person found in
it. Photos whose faces could not be grouped are skipped unless
--unclustered names a bucket folder for them.

Examples:
  # Sort with defaults (eps 0.55, a face must appear at least twice)
  face-sorter sort ~/Pictures/holiday ~/Pictures/by-person

  # Looser grouping and a bucket for leftover faces
  face-sorter sort --eps 0.6 --unclustered Unsorted ./in ./out

  # Preview the folder plan without copying anything
  face-sorter sort --dry-run ./in ./out`,
	Args: cobra.ExactArgs(2),
	RunE: runSort,
}

func init() {
	rootCmd.AddCommand(sortCmd)

	cfg := config.Load()
	sortCmd.Flags().Float64("eps", cfg.Defaults.Clustering.Eps, "DBSCAN neighborhood radius (lower = stricter grouping)")
	sortCmd.Flags().Int("min-samples", cfg.Defaults.Clustering.MinSamples, "Minimum neighborhood size for a core face")
	sortCmd.Flags().Int("concurrency", cfg.Defaults.Extraction.Concurrency, "Number of parallel extraction workers")
	sortCmd.Flags().String("unclustered", "", "Folder name for photos with only unclustered faces (empty = skip them)")
	sortCmd.Flags().Bool("dry-run", false, "Plan folders without copying any files")
}

func runSort(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	outputDir := args[1]

	cfg := config.Load()
	opts := sorter.Options{
		Eps:               mustGetFloat64(cmd, "eps"),
		MinSamples:        mustGetInt(cmd, "min-samples"),
		Concurrency:       mustGetInt(cmd, "concurrency"),
		UnclusteredFolder: mustGetString(cmd, "unclustered"),
		DryRun:            mustGetBool(cmd, "dry-run"),
		ShowProgress:      true,
	}

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	client := extract.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	extractor := extract.NewFileExtractor(client, cfg.Defaults.Extraction.MaxImageSize)

	fmt.Printf("Sorting %s into %s\n", inputDir, outputDir)
	fmt.Printf("Parameters: eps=%.2f min-samples=%d\n", opts.Eps, opts.MinSamples)
	if opts.DryRun {
		fmt.Println("Mode: DRY RUN (no files will be copied)")
	}
	fmt.Println()

	s := sorter.New(extractor)
	result, err := s.Sort(ctx, inputDir, outputDir, opts)
	if err != nil {
		return fmt.Errorf("sorting failed: %w", err)
	}

	fmt.Printf("\nRun %s\n", result.RunID)
	fmt.Printf("Images scanned:  %d\n", result.ImagesScanned)
	fmt.Printf("Images skipped:  %d\n", result.ImagesFailed)
	fmt.Printf("Faces detected:  %d\n", result.FacesDetected)
	fmt.Printf("People found:    %d\n", result.Clusters)
	if result.NoiseFaces > 0 {
		if opts.UnclusteredFolder != "" {
			fmt.Printf("Unclustered faces routed to %s: %d\n", opts.UnclusteredFolder, result.NoiseFaces)
		} else {
			fmt.Printf("Unclustered faces skipped: %d\n", result.NoiseFaces)
		}
	}

	if opts.DryRun {
		fmt.Println("\nPlanned folders:")
		for _, folder := range result.Assignment.FolderOrder {
			fmt.Printf("  %s: %d photos\n", folder, len(result.Assignment.Folders[folder]))
		}
		return nil
	}

	if result.Copy != nil {
		fmt.Printf("Files copied:    %d\n", result.Copy.Copied)
		if result.Copy.Skipped > 0 {
			fmt.Printf("Already present: %d\n", result.Copy.Skipped)
		}
		if len(result.Copy.Failures) > 0 {
			fmt.Printf("\nCopy failures: %d\n", len(result.Copy.Failures))
			for _, f := range result.Copy.Failures {
				fmt.Printf("  - %s: %v\n", f.Source, f.Err)
			}
		}
	}

	if len(result.FailedImages) > 0 {
		fmt.Printf("\nSkipped images: %d\n", len(result.FailedImages))
		for _, img := range result.FailedImages {
			fmt.Printf("  - %s: %v\n", img.Path, img.Err)
		}
	}

	return nil
}
