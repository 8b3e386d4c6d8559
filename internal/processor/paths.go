package processor

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// outputPath maps a relative input path to its location under outDir. ext
// includes the dot.
func outputPath(outDir string, spec TargetSpec, relPath, ext string) string {
	relDir := filepath.Dir(relPath)
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))

	switch spec.Naming {
	case NamingPrefix:
		return filepath.Join(outDir, relDir, stem+spec.Suffix()+ext)
	default:
		return filepath.Join(outDir, spec.FolderName(), relDir, stem+ext)
	}
}

// pathClaims hands out unique output paths in input order. It is used from a
// single goroutine while jobs are planned.
type pathClaims struct {
	taken map[string]bool
}

func newPathClaims() *pathClaims {
	return &pathClaims{taken: make(map[string]bool)}
}

// claim returns path, or when it is already taken a sibling whose stem carries
// the source extension ("photo_png.jpg"), then a counter.
func (c *pathClaims) claim(path, srcExt string) string {
	if !c.taken[path] {
		c.taken[path] = true
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	tag := strings.ToLower(strings.TrimPrefix(srcExt, "."))
	if tag == "" {
		tag = "dup"
	}

	candidate := fmt.Sprintf("%s_%s%s", base, tag, ext)
	for n := 2; c.taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%s_%d%s", base, tag, n, ext)
	}
	c.taken[candidate] = true
	return candidate
}

// writeAtomic fills a temp file next to destPath and renames it into place,
// so a destination is either absent or complete.
func writeAtomic(destPath string, mode fs.FileMode, fill func(w io.Writer) error) error {
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(destDir, "squish-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := fill(tmpFile); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), destPath)
}

func writeBytes(destPath string, data []byte) error {
	return writeAtomic(destPath, 0o644, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func copyFile(srcPath, destPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, err
	}

	var n int64
	err = writeAtomic(destPath, info.Mode().Perm(), func(w io.Writer) error {
		var copyErr error
		n, copyErr = io.Copy(w, src)
		return copyErr
	})
	return n, err
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
