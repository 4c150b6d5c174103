package organize

import (
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CopyFailure records one file that could not be copied.
type CopyFailure struct {
	Source string
	Dest   string
	Err    error
}

// CopyResult summarizes a materialization run.
type CopyResult struct {
	Copied   int
	Skipped  int // destination already existed
	Failures []CopyFailure
}

// Materialize creates the folder layout under outputDir and copies every
// assigned file into it. Pre-existing folders are fine and a destination
// file that already exists is skipped, so re-running over a partially
// organized output is safe. Per-file copy errors are logged and collected;
// only an unusable output root aborts the run.
func Materialize(a *Assignment, outputDir string) (*CopyResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create output directory %s: %w", outputDir, err)
	}

	result := &CopyResult{}
	for _, folder := range a.FolderOrder {
		folderPath := filepath.Join(outputDir, folder)
		if err := os.MkdirAll(folderPath, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create folder %s: %w", folderPath, err)
		}

		taken := make(map[string]bool)
		for _, src := range a.Folders[folder] {
			dest := filepath.Join(folderPath, destName(src, taken))
			if _, err := os.Stat(dest); err == nil {
				result.Skipped++
				continue
			}
			if err := copyFile(src, dest); err != nil {
				log.Printf("failed to copy %s to %s: %v", src, folder, err)
				result.Failures = append(result.Failures, CopyFailure{Source: src, Dest: dest, Err: err})
				continue
			}
			result.Copied++
		}
	}

	return result, nil
}

// destName picks the destination filename for src within one folder.
// The first source file to claim a basename keeps it; later files with the
// same basename (same-named files from different source subdirectories)
// get a crc32 suffix of their full source path, which is deterministic
// across runs. Assignment paths are sorted, so claiming order is stable.
func destName(src string, taken map[string]bool) string {
	base := filepath.Base(src)
	if !taken[base] {
		taken[base] = true
		return base
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	sum := crc32.ChecksumIEEE([]byte(src))
	name := fmt.Sprintf("%s_%08x%s", stem, sum, ext)
	taken[name] = true
	return name
}

// copyFile copies src to dst preserving the source modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
