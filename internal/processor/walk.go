package processor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"squish/pkg/imgutil"
)

// Walk lists the supported images under root in lexical order. root may also
// be a single file. When outDir lies inside root it is skipped, so a rerun
// does not pick up its own outputs.
func Walk(root, outDir string) ([]Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !imgutil.Supported(absRoot) {
			return nil, fmt.Errorf("processor: %s is not a supported image", root)
		}
		return []Entry{{Path: absRoot, RelPath: filepath.Base(absRoot)}}, nil
	}

	var outputAbs string
	if outDir != "" {
		if abs, err := filepath.Abs(outDir); err == nil && abs != absRoot && isWithin(abs, absRoot) {
			outputAbs = abs
		}
	}

	var entries []Entry
	err = fs.WalkDir(os.DirFS(absRoot), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		fullPath := filepath.Join(absRoot, filepath.FromSlash(path))
		if d.IsDir() {
			if outputAbs != "" && isWithin(fullPath, outputAbs) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !imgutil.Supported(path) {
			return nil
		}
		entries = append(entries, Entry{Path: fullPath, RelPath: filepath.FromSlash(path)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
