package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ExtractArchive fully decompresses the archive into stagingDir and returns
// the number of files extracted. The count anchors restore progress math.
func ExtractArchive(archivePath, stagingDir string) (int, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return 0, fmt.Errorf("archive not found: %s", archivePath)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create staging directory: %w", err)
	}

	count := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		target, err := sanitizeEntryPath(stagingDir, entry.Name)
		if err != nil {
			return 0, err
		}

		if err := extractEntry(entry, target); err != nil {
			return 0, err
		}
		count++
	}

	return count, nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create staging subdirectory: %w", err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, entry.Mode().Perm()|0200)
	if err != nil {
		return fmt.Errorf("failed to create staged file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}

	return dst.Close()
}

func sanitizeEntryPath(stagingDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("archive entry escapes staging directory: %s", name)
	}
	return filepath.Join(stagingDir, cleaned), nil
}

// MergeEngine synchronizes staged files into a destination tree, writing one
// line per transferred file to the stream. Implementations never overwrite
// existing destination files.
type MergeEngine interface {
	Merge(stagingDir, destDir string, lines io.Writer) error
}

// FSMerge is the filesystem merge engine. Each staged file is copied only
// when absent at the destination and removed from staging after a successful
// copy; staging is consumed, not preserved.
type FSMerge struct{}

// Merge performs the additive merge
func (FSMerge) Merge(stagingDir, destDir string, lines io.Writer) error {
	return filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return fmt.Errorf("failed to resolve staged path: %w", err)
		}

		destPath := filepath.Join(destDir, relPath)
		if _, err := os.Lstat(destPath); err == nil {
			// Existing destination files are never touched.
			return nil
		}

		if err := copyFile(path, destPath); err != nil {
			return err
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to consume staged file: %w", err)
		}

		if lines != nil {
			fmt.Fprintln(lines, filepath.ToSlash(relPath))
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat staged file: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return out.Close()
}
