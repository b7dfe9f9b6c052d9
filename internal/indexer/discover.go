package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Discover walks each root and returns the absolute paths of regular files whose
// extension is in exts (all files when exts is empty). Paths come back root by
// root, each root in lexical order; a path reachable from two roots is listed once.
// A root that is missing or not a directory is an error.
func Discover(roots []string, exts []string, recursive bool) ([]string, error) {
	var paths []string
	seen := make(map[string]struct{})
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("absolute path: %w", err)
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, fmt.Errorf("stat root: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("not a directory: %s", absRoot)
		}
		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if !recursive && path != absRoot {
					return filepath.SkipDir
				}
				return nil
			}
			if len(exts) > 0 && !extensionAllowed(filepath.Ext(path), exts) {
				return nil
			}
			// Resolve symlinks so only regular files are ingested
			finfo, statErr := os.Stat(path)
			if statErr != nil || !finfo.Mode().IsRegular() {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", absRoot, err)
		}
	}
	return paths, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
