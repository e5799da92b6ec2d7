package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	apperrors "github.com/duynguyendang/routescan/pkg/common/errors"
	"github.com/duynguyendang/routescan/pkg/routes"
)

// testDirs are directory names that are never scanned.
var testDirs = map[string]bool{"test": true, "tests": true, "__tests__": true}

// SelectFiles returns the absolute paths under root that match the include
// pattern and survive both the configured and the built-in exclusions.
// Any traversal failure aborts the selection with a FileSystemError.
func SelectFiles(ctx context.Context, root string, cfg routes.Config) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, apperrors.NewFileSystemError("resolve", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, apperrors.NewFileSystemError("stat", absRoot, err)
	}
	if !info.IsDir() {
		return nil, apperrors.NewFileSystemError("stat", absRoot, fmt.Errorf("not a directory"))
	}

	pattern := filepath.ToSlash(cfg.IncludePattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, apperrors.NewFileSystemError("glob", pattern, doublestar.ErrBadPattern)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || testDirs[name] || cfg.Excludes(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}
		if IsTestFile(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewFileSystemError("walk", absRoot, err)
	}
	return files, nil
}

// IsTestFile reports whether a path follows a test naming convention:
// a test/tests/__tests__ segment, or a .test./.spec. infix in the file name.
func IsTestFile(path string) bool {
	path = filepath.ToSlash(path)
	name := strings.ToLower(filepath.Base(path))
	if strings.Contains(name, ".test.") || strings.Contains(name, ".spec.") {
		return true
	}
	for _, seg := range strings.Split(path, "/") {
		if testDirs[seg] {
			return true
		}
	}
	return false
}
