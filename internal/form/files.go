package form

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ErrTooManyFiles is returned with a truncated index
var ErrTooManyFiles = errors.New("too many files, index truncated")

// skippedDirs are never descended into when indexing
var skippedDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"vendor":       true,
}

// IndexFiles lists files under dir as sorted relative paths, for use as file
// choices. Hidden directories are skipped. At most limit paths are returned;
// when more exist the partial list comes back with ErrTooManyFiles.
func IndexFiles(dir string, limit int) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries that cause errors
		}

		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		if limit > 0 && len(files) >= limit {
			return ErrTooManyFiles
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, rel)
		return nil
	})

	sort.Strings(files)
	return files, err
}
