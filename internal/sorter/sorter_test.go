package sorter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kozaktomas/face-sorter/internal/face"
)

// fakeExtractor serves canned detections keyed by file basename.
type fakeExtractor struct {
	faces map[string][]face.Detection
	errs  map[string]error
}

func (f *fakeExtractor) ExtractFile(_ context.Context, path string) ([]face.Detection, error) {
	base := filepath.Base(path)
	if err, ok := f.errs[base]; ok {
		return nil, err
	}
	return f.faces[base], nil
}

func detection(x float64) face.Detection {
	var d face.Descriptor
	d[0] = x
	return face.Detection{Descriptor: d, DetScore: 0.9}
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func defaultOptions() Options {
	return Options{Eps: 0.55, MinSamples: 2, Concurrency: 2}
}

func TestSortTwoPeople(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeImages(t, inputDir, "a.jpg", "b.jpg", "c.jpg", "d.jpg")

	// a+b are one person, c+d another.
	ext := &fakeExtractor{faces: map[string][]face.Detection{
		"a.jpg": {detection(0.0)},
		"b.jpg": {detection(0.1)},
		"c.jpg": {detection(10.0)},
		"d.jpg": {detection(10.1)},
	}}

	result, err := New(ext).Sort(context.Background(), inputDir, outputDir, defaultOptions())
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	if result.ImagesScanned != 4 || result.FacesDetected != 4 {
		t.Errorf("scanned=%d faces=%d, want 4/4", result.ImagesScanned, result.FacesDetected)
	}
	if result.Clusters != 2 {
		t.Errorf("Clusters = %d, want 2", result.Clusters)
	}
	if result.Copy == nil || result.Copy.Copied != 4 {
		t.Errorf("Copy = %+v, want 4 copies", result.Copy)
	}

	// Lexical traversal order means a.jpg's cluster is Person_1.
	if _, err := os.Stat(filepath.Join(outputDir, "Person_1", "a.jpg")); err != nil {
		t.Errorf("Person_1/a.jpg missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "Person_2", "c.jpg")); err != nil {
		t.Errorf("Person_2/c.jpg missing: %v", err)
	}
}

func TestSortMultiFaceImageCopiedOnce(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeImages(t, inputDir, "group.jpg", "solo.jpg")

	// Both faces in group.jpg belong to the same person as solo.jpg.
	ext := &fakeExtractor{faces: map[string][]face.Detection{
		"group.jpg": {detection(0.0), detection(0.05)},
		"solo.jpg":  {detection(0.1)},
	}}

	result, err := New(ext).Sort(context.Background(), inputDir, outputDir, defaultOptions())
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	if result.Clusters != 1 {
		t.Fatalf("Clusters = %d, want 1", result.Clusters)
	}
	paths := result.Assignment.Folders["Person_1"]
	if len(paths) != 2 {
		t.Errorf("Person_1 has %d paths, want 2 (group.jpg once): %v", len(paths), paths)
	}
}

func TestSortNoiseSkippedAndReported(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeImages(t, inputDir, "a.jpg", "b.jpg", "lonely.jpg")

	ext := &fakeExtractor{faces: map[string][]face.Detection{
		"a.jpg":      {detection(0.0)},
		"b.jpg":      {detection(0.1)},
		"lonely.jpg": {detection(50.0)},
	}}

	result, err := New(ext).Sort(context.Background(), inputDir, outputDir, defaultOptions())
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	if result.NoiseFaces != 1 {
		t.Errorf("NoiseFaces = %d, want 1", result.NoiseFaces)
	}
	if result.Assignment.NumFolders() != 1 {
		t.Errorf("NumFolders = %d, want 1 (noise dropped by default)", result.Assignment.NumFolders())
	}
}

func TestSortNoiseBucket(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeImages(t, inputDir, "a.jpg", "b.jpg", "lonely.jpg")

	ext := &fakeExtractor{faces: map[string][]face.Detection{
		"a.jpg":      {detection(0.0)},
		"b.jpg":      {detection(0.1)},
		"lonely.jpg": {detection(50.0)},
	}}

	opts := defaultOptions()
	opts.UnclusteredFolder = "Unclustered"
	result, err := New(ext).Sort(context.Background(), inputDir, outputDir, opts)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	if result.Assignment.NumFolders() != 2 {
		t.Fatalf("NumFolders = %d, want 2", result.Assignment.NumFolders())
	}
	if _, err := os.Stat(filepath.Join(outputDir, "Unclustered", "lonely.jpg")); err != nil {
		t.Errorf("Unclustered/lonely.jpg missing: %v", err)
	}
}

func TestSortEmptyInputDir(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")

	result, err := New(&fakeExtractor{}).Sort(context.Background(), inputDir, outputDir, defaultOptions())
	if err != nil {
		t.Fatalf("zero images must not be an error: %v", err)
	}
	if result.ImagesScanned != 0 || result.FacesDetected != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Error("no folders should be created for an empty run")
	}
}

func TestSortNoFacesAnywhere(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeImages(t, inputDir, "a.jpg", "b.jpg")

	result, err := New(&fakeExtractor{}).Sort(context.Background(), inputDir, outputDir, defaultOptions())
	if err != nil {
		t.Fatalf("zero faces must not be an error: %v", err)
	}
	if result.FacesDetected != 0 || result.Clusters != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Assignment.NumFolders() != 0 {
		t.Errorf("expected no folders, got %v", result.Assignment.FolderOrder)
	}
}

func TestSortPerImageErrorSkipped(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeImages(t, inputDir, "a.jpg", "bad.jpg", "b.jpg")

	ext := &fakeExtractor{
		faces: map[string][]face.Detection{
			"a.jpg": {detection(0.0)},
			"b.jpg": {detection(0.1)},
		},
		errs: map[string]error{"bad.jpg": errors.New("corrupt image")},
	}

	result, err := New(ext).Sort(context.Background(), inputDir, outputDir, defaultOptions())
	if err != nil {
		t.Fatalf("one corrupt image must not abort the run: %v", err)
	}

	if result.ImagesFailed != 1 {
		t.Errorf("ImagesFailed = %d, want 1", result.ImagesFailed)
	}
	if len(result.FailedImages) != 1 || filepath.Base(result.FailedImages[0].Path) != "bad.jpg" {
		t.Errorf("FailedImages = %+v", result.FailedImages)
	}
	if result.Clusters != 1 {
		t.Errorf("Clusters = %d, want 1", result.Clusters)
	}
}

func TestSortAllImagesFail(t *testing.T) {
	inputDir := t.TempDir()
	writeImages(t, inputDir, "a.jpg", "b.jpg")

	ext := &fakeExtractor{errs: map[string]error{
		"a.jpg": errors.New("connection refused"),
		"b.jpg": errors.New("connection refused"),
	}}

	if _, err := New(ext).Sort(context.Background(), inputDir, t.TempDir(), defaultOptions()); err == nil {
		t.Error("expected error when every extraction fails")
	}
}

func TestSortDryRun(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeImages(t, inputDir, "a.jpg", "b.jpg")

	ext := &fakeExtractor{faces: map[string][]face.Detection{
		"a.jpg": {detection(0.0)},
		"b.jpg": {detection(0.1)},
	}}

	opts := defaultOptions()
	opts.DryRun = true
	result, err := New(ext).Sort(context.Background(), inputDir, outputDir, opts)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	if result.Assignment.NumFolders() != 1 {
		t.Errorf("dry run should still plan folders: %+v", result.Assignment)
	}
	if result.Copy != nil {
		t.Error("dry run must not copy")
	}
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Error("dry run must not create the output directory")
	}
}

func TestSortInvalidParams(t *testing.T) {
	opts := defaultOptions()
	opts.Eps = -1
	if _, err := New(&fakeExtractor{}).Sort(context.Background(), t.TempDir(), t.TempDir(), opts); err == nil {
		t.Error("expected error for invalid eps")
	}
}

func TestSortDeterministicAcrossRuns(t *testing.T) {
	inputDir := t.TempDir()
	writeImages(t, inputDir, "a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg")

	ext := &fakeExtractor{faces: map[string][]face.Detection{
		"a.jpg": {detection(0.0)},
		"b.jpg": {detection(10.0)},
		"c.jpg": {detection(0.1)},
		"d.jpg": {detection(10.1)},
		"e.jpg": {detection(99.0)},
	}}

	opts := defaultOptions()
	opts.DryRun = true
	// High worker count to shake out any scheduling dependence.
	opts.Concurrency = 8

	s := New(ext)
	first, err := s.Sort(context.Background(), inputDir, "", opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := s.Sort(context.Background(), inputDir, "", opts)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Assignment, again.Assignment) {
			t.Fatalf("assignment changed between runs:\n%+v\n%+v", first.Assignment, again.Assignment)
		}
	}
}
