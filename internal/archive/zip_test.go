package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestZipDir_NamesRelativeToBase(t *testing.T) {
	artifacts := t.TempDir()
	schema := filepath.Join(artifacts, "geowebcache-1.8.0", "schema")
	write(t, filepath.Join(schema, "index.html"), "<html/>")
	write(t, filepath.Join(schema, "types", "gwc.html"), "type")
	require.NoError(t, os.MkdirAll(filepath.Join(schema, "empty"), 0o750))

	target := filepath.Join(artifacts, "geowebcache-1.8.0-xsddoc.zip")
	n, err := ZipDir(schema, artifacts, target)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]string)
	for _, f := range zr.File {
		content := ""
		if !f.FileInfo().IsDir() {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			_ = rc.Close()
			content = string(data)
		}
		names[f.Name] = content
	}
	assert.Equal(t, map[string]string{
		"geowebcache-1.8.0/schema/":               "",
		"geowebcache-1.8.0/schema/empty/":         "",
		"geowebcache-1.8.0/schema/index.html":     "<html/>",
		"geowebcache-1.8.0/schema/types/":         "",
		"geowebcache-1.8.0/schema/types/gwc.html": "type",
	}, names)
}

func TestZipDir_DirOutsideBase(t *testing.T) {
	_, err := ZipDir(t.TempDir(), t.TempDir(), filepath.Join(t.TempDir(), "x.zip"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestZipDir_MissingDirRemovesTarget(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "out.zip")
	_, err := ZipDir(filepath.Join(base, "missing"), base, target)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}
