package backup

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveInfo contains metadata about a created archive
type ArchiveInfo struct {
	Filename  string
	Path      string
	SizeBytes int64
	FileCount int
	CreatedAt time.Time
}

// ArchiveOptions contains settings for archive creation
type ArchiveOptions struct {
	// Root anchors the relative entry paths. Source directories are
	// resolved against it when not absolute.
	Root        string
	Directories []string
	Exclude     []string
	Level       int
}

// CreateArchive collects all regular files under the configured source
// directories into a single zip archive at archivePath. Entry paths are
// stored relative to the root. Missing source directories are skipped;
// excluded paths are omitted. The archive is written to a temporary file and
// renamed into place only on success, so a failed run leaves nothing behind.
func CreateArchive(archivePath string, opts ArchiveOptions) (*ArchiveInfo, error) {
	level := NormalizeLevel(opts.Level)

	partPath := archivePath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	zw := zip.NewWriter(out)
	if level > 0 {
		zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		})
	}

	fileCount := 0
	archiveAbs, _ := filepath.Abs(archivePath)

	addFile := func(path, relPath string, info fs.FileInfo) error {
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("failed to build entry header: %w", err)
		}
		header.Name = filepath.ToSlash(relPath)
		if level == 0 {
			header.Method = zip.Store
		} else {
			header.Method = zip.Deflate
		}

		writer, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create archive entry: %w", err)
		}

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open source file: %w", err)
		}
		defer file.Close()

		if _, err := io.Copy(writer, file); err != nil {
			return fmt.Errorf("failed to write archive entry: %w", err)
		}

		fileCount++
		return nil
	}

	walkErr := func() error {
		for _, dir := range opts.Directories {
			sourceDir := dir
			if !filepath.IsAbs(sourceDir) {
				sourceDir = filepath.Join(opts.Root, sourceDir)
			}

			if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
				// Missing source directories are skipped, not errors.
				continue
			}

			err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if isExcluded(relativeTo(opts.Root, path), opts.Exclude) {
						return filepath.SkipDir
					}
					return nil
				}
				if !d.Type().IsRegular() {
					return nil
				}

				// Skip the archive itself and its in-progress part file.
				if abs, err := filepath.Abs(path); err == nil {
					if abs == archiveAbs || abs == archiveAbs+".part" {
						return nil
					}
				}

				relPath := relativeTo(opts.Root, path)
				if isExcluded(relPath, opts.Exclude) {
					return nil
				}

				info, err := d.Info()
				if err != nil {
					return err
				}
				return addFile(path, relPath, info)
			})
			if err != nil {
				return err
			}
		}
		return nil
	}()

	if walkErr == nil {
		walkErr = zw.Close()
	} else {
		zw.Close()
	}

	if closeErr := out.Close(); walkErr == nil {
		walkErr = closeErr
	}

	if walkErr != nil {
		os.Remove(partPath)
		return nil, fmt.Errorf("failed to create archive: %w", walkErr)
	}

	if err := os.Rename(partPath, archivePath); err != nil {
		os.Remove(partPath)
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	stat, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	return &ArchiveInfo{
		Filename:  filepath.Base(archivePath),
		Path:      archivePath,
		SizeBytes: stat.Size(),
		FileCount: fileCount,
		CreatedAt: stat.ModTime(),
	}, nil
}

// relativeTo returns path relative to root, falling back to the basename
// when the path lies outside the root.
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return rel
}

// isExcluded matches the relative path, its basename, and every path
// component against the glob patterns, the way tar --exclude does.
func isExcluded(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	slashed := filepath.ToSlash(relPath)
	components := strings.Split(slashed, "/")

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return true
		}
		for _, component := range components {
			if ok, _ := filepath.Match(pattern, component); ok {
				return true
			}
		}
	}

	return false
}
