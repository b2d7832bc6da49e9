package patch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestPatch_NoWindowTransformsEveryLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "one\ntwo\nthree\n", 0o644)

	err := NewLinePatcher(nil).Patch(context.Background(), Request{
		Path:      path,
		Transform: strings.ToUpper,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ONE\nTWO\nTHREE\n", string(got))
}

func TestPatch_WindowIsInclusiveAndReopens(t *testing.T) {
	src := strings.Join([]string{
		"x before",
		"<start x",
		"x inside",
		"x end>",
		"x after",
		"<start again x>",
		"x trailing",
	}, "\n")

	var out bytes.Buffer
	Apply(&out, []byte(src), Between(`<start`, `>`), GSub(regexp.MustCompile(`x`), "Y"))

	want := strings.Join([]string{
		"x before",
		"<start Y",
		"Y inside",
		"Y end>",
		"x after",
		"<start again Y>",
		"x trailing",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestApply_PreservesTerminatorsAndLineCount(t *testing.T) {
	src := "a\r\nb\nc"
	var out bytes.Buffer
	n := Apply(&out, []byte(src), Window{}, func(s string) string { return s + "!" })

	assert.Equal(t, "a!\r\nb!\nc!", out.String())
	assert.Equal(t, 3, n)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(out.String(), "\n"))
}

func TestApply_OutsideWindowIsByteIdentical(t *testing.T) {
	src := "keep  \t spaces\r\n<root a=\"1\">\r\nafter\r\n"
	var out bytes.Buffer
	Apply(&out, []byte(src), Between(`<root`, `>`), func(string) string { return "patched" })
	assert.Equal(t, "keep  \t spaces\r\npatched\r\nafter\r\n", out.String())
}

func TestPatch_BackupHoldsOriginalAndModeKept(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.sh", "echo 1.8\n", 0o755)
	backup := filepath.Join(dir, "nested", "run.sh.bak")

	err := NewLinePatcher(nil).Patch(context.Background(), Request{
		Path:      path,
		Transform: Sub(regexp.MustCompile(`1\.8`), "1.9"),
		Backup:    backup,
	})
	require.NoError(t, err)

	got, _ := os.ReadFile(path)
	assert.Equal(t, "echo 1.9\n", string(got))
	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "echo 1.8\n", string(old))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".new"), "temporary file left behind: %s", e.Name())
	}
}

func TestPatch_MissingFile(t *testing.T) {
	err := NewLinePatcher(nil).Patch(context.Background(), Request{
		Path:      filepath.Join(t.TempDir(), "missing.xml"),
		Transform: func(s string) string { return s },
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestPatch_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "x\n", 0o644)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLinePatcher(nil).Patch(ctx, Request{Path: path, Transform: strings.ToUpper})
	require.ErrorIs(t, err, context.Canceled)
	got, _ := os.ReadFile(path)
	assert.Equal(t, "x\n", string(got))
}

func TestRules(t *testing.T) {
	re := regexp.MustCompile(`v(\d)`)

	assert.Equal(t, "w1 v2", Sub(re, "w${1}")("v1 v2"))
	assert.Equal(t, "w1 w2", GSub(re, "w${1}")("v1 v2"))
	assert.Equal(t, "no match", GSub(re, "w")("no match"))
	assert.Equal(t, "cost $5", Sub(regexp.MustCompile(`X`), Escape("$5"))("cost X"))

	upper := Chain(Sub(re, "a${1}"), strings.ToUpper)
	assert.Equal(t, "A1", upper("v1"))
}

func TestCollector(t *testing.T) {
	var c Collector
	re := regexp.MustCompile(`schema/([^"/]*)`)
	fn := c.GSub(re, 1, "schema/1.9.0")

	assert.Equal(t, `"schema/1.9.0" "schema/1.9.0"`, fn(`"schema/1.8.0" "schema/1.8.0"`))
	v, ok := c.Consistent()
	assert.True(t, ok)
	assert.Equal(t, "1.8.0", v)

	fn(`"schema/1.7.0"`)
	_, ok = c.Consistent()
	assert.False(t, ok)
	assert.Equal(t, []string{"1.8.0", "1.8.0", "1.7.0"}, c.Values())

	var empty Collector
	_, ok = empty.Consistent()
	assert.False(t, ok)

	var first Collector
	quoted := regexp.MustCompile(`version=(["'])(.*?)["']`)
	sub := first.Sub(quoted, 2, "version=${1}2.0${1}")
	assert.Equal(t, `version="2.0" version='x'`, sub(`version="1.0" version='x'`))
	assert.Equal(t, []string{"1.0"}, first.Values())
}
