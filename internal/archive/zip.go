// Package archive packs build output into zip files.
package archive

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// ZipDir writes every regular file below dir into a new zip at target. Entry
// names are relative to base, which must contain dir, and use forward slashes.
// Directories get their own entries so unzip recreates empty ones. It returns
// the number of files added.
func ZipDir(dir, base, target string) (int, error) {
	root, err := filepath.Rel(base, dir)
	if err != nil || root == ".." || strings.HasPrefix(root, ".."+string(filepath.Separator)) {
		return 0, errors.ValidationError("zip root is not below base").
			WithContext("dir", dir).
			WithContext("base", base).
			Build()
	}

	out, err := os.Create(target) //nolint:gosec // target chosen by the pipeline
	if err != nil {
		return 0, fsError("cannot create zip", target, err)
	}
	zw := zip.NewWriter(out)

	count, walkErr := addTree(zw, dir, base)
	closeErr := zw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if walkErr != nil || closeErr != nil {
		_ = os.Remove(target)
		if walkErr != nil {
			return 0, walkErr
		}
		return 0, fsError("cannot finish zip", target, closeErr)
	}
	slog.Info("Created zip", logfields.Path(target), slog.Int("files", count))
	return count, nil
}

func addTree(zw *zip.Writer, dir, base string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return 0, fsError("cannot walk directory", dir, err)
	}
	sort.Strings(paths)

	count := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return 0, fsError("cannot stat file", path, err)
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return 0, fsError("cannot relativize path", path, err)
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return 0, fsError("cannot build zip header", path, err)
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
			if _, err := zw.CreateHeader(header); err != nil {
				return 0, fsError("cannot add directory", path, err)
			}
			continue
		}
		header.Method = zip.Deflate
		w, err := zw.CreateHeader(header)
		if err != nil {
			return 0, fsError("cannot add file", path, err)
		}
		if err := copyFile(w, path); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path) //nolint:gosec // walking our own artifact dir
	if err != nil {
		return fsError("cannot open file", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return fsError("cannot compress file", path, err)
	}
	return nil
}

func fsError(msg, path string, err error) error {
	return errors.FileSystemError(msg).WithCause(err).WithContext("file", path).Build()
}
