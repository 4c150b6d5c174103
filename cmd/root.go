package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-sorter",
	Short: "A CLI tool that sorts photos into per-person folders by face",
	Long: `Face Sorter scans a folder of photos, detects the faces in every
image, clusters the face descriptors with DBSCAN and copies each photo
into Person_1, Person_2, ... folders, one per person found.

Face detection and descriptors come from a local face embedding server;
set FACE_EMBEDDING_URL to point at it.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
