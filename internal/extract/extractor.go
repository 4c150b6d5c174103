package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-sorter/internal/face"
)

// FileExtractor reads an image file, downscales it and sends it to the
// embedding server. It is the production implementation of the pipeline's
// extractor dependency.
type FileExtractor struct {
	client  *Client
	maxSize int
}

// NewFileExtractor wires a client with the resize cap.
func NewFileExtractor(client *Client, maxSize int) *FileExtractor {
	return &FileExtractor{client: client, maxSize: maxSize}
}

// ExtractFile returns the face detections for one image file. A corrupt or
// undecodable file is an error for that file only; callers skip and move on.
func (e *FileExtractor) ExtractFile(ctx context.Context, path string) ([]face.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	prepared, err := PrepareImage(data, e.maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s: %w", path, err)
	}

	return e.client.DetectFaces(ctx, prepared)
}
