package errors

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: NewError(CategoryValidation, "invalid input").Build(), expected: 2},
		{name: "auth", err: NewError(CategoryAuth, "unauthorized").Build(), expected: 5},
		{name: "config", err: ConfigError("missing options").Build(), expected: 7},
		{name: "git", err: GitError("push rejected").Build(), expected: 8},
		{name: "network", err: NetworkError("dial failed").Build(), expected: 8},
		{name: "internal", err: InternalError("bug").Build(), expected: 10},
		{name: "build", err: BuildError("mvn failed").Build(), expected: 11},
		{name: "filesystem", err: FileSystemError("rename failed").Build(), expected: 11},
		{name: "wrapped classified", err: fmt.Errorf("stage update: %w", GitError("fetch").Build()), expected: 8},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.ExitCodeFor(tt.err)
			if got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "nil error",
			err:      nil,
			contains: []string{""},
		},
		{
			name: "context keys are printed",
			err: ValidationError("replaced versions not identical").
				WithContext("file", "geowebcache.xml").
				WithContext("versions", []string{"1.8.0", "1.9.0"}).
				Build(),
			contains: []string{"replaced versions not identical", "file: geowebcache.xml", "versions: [1.8.0 1.9.0]"},
		},
		{
			name:     "cause is printed",
			err:      WrapError(io.ErrUnexpectedEOF, CategoryFileSystem, "read failed").Build(),
			contains: []string{"read failed", "unexpected EOF"},
		},
		{
			name:     "unclassified error",
			err:      &customError{msg: "something went wrong"},
			contains: []string{"Error: something went wrong"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.FormatError(tt.err)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("FormatError() = %q, want to contain %q", got, want)
				}
			}
		})
	}
}

func TestCLIErrorAdapter_FormatContextOrder(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())
	err := ConfigError("bad").WithContext("zeta", 1).WithContext("alpha", 2).Build()

	got := adapter.FormatError(err)
	if strings.Index(got, "alpha") > strings.Index(got, "zeta") {
		t.Errorf("context keys not sorted: %q", got)
	}
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := NewCLIErrorAdapter(true, logger)

	var buf bytes.Buffer
	code := adapter.Report(&buf, BuildError("mvn failed").WithContext("exit_status", 1).Build())
	if code != 11 {
		t.Fatalf("Report() code = %d, want 11", code)
	}
	if !strings.Contains(buf.String(), "[build] mvn failed") {
		t.Errorf("verbose output missing category prefix: %q", buf.String())
	}

	buf.Reset()
	if code := adapter.Report(&buf, nil); code != 0 || buf.Len() != 0 {
		t.Errorf("Report(nil) = %d, %q", code, buf.String())
	}
}

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
