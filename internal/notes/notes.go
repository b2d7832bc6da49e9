// Package notes maintains RELEASE_NOTES.txt: it prepends the entry template
// for a new version, checks that the template placeholders were filled in and
// renders the newest entry to HTML for the web site.
package notes

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// DraftSuffix is appended to the notes path while the human edits the draft.
const DraftSuffix = ".new"

// Placeholders left in the template for the human to replace.
var Placeholders = []string{"<Release Description>", "<New feature>", "<Bug fix>"}

// Header is the first line of the entry for version.
func Header(version string, date time.Time) string {
	return fmt.Sprintf("GeoWebCache %s (%s)", version, date.Format(time.DateOnly))
}

// Template is the entry prepended for version, ending in two blank lines.
func Template(version string, date time.Time) string {
	header := Header(version, date)
	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)) + "\n")
	b.WriteString("\n")
	b.WriteString("<Release Description>\n")
	b.WriteString("\n")
	b.WriteString("Improvements:\n")
	b.WriteString("+++++++++++++\n")
	b.WriteString("- <New feature>\n")
	b.WriteString("\n")
	b.WriteString("Fixes:\n")
	b.WriteString("++++++\n")
	b.WriteString("- <Bug fix>\n")
	b.WriteString("\n")
	b.WriteString("\n")
	return b.String()
}

// Prepend writes path+DraftSuffix holding the template for version followed
// by the current notes, and returns the draft path. path itself is untouched.
func Prepend(path, version string, date time.Time) (string, error) {
	current, err := os.ReadFile(path)
	if err != nil {
		return "", errors.FileSystemError("cannot read release notes").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	draft := path + DraftSuffix
	content := append([]byte(Template(version, date)), current...)
	if len(current) > 0 && !bytes.HasSuffix(current, []byte("\n")) {
		content = append(content, '\n')
	}
	if err := os.WriteFile(draft, content, 0o644); err != nil { //nolint:gosec // notes are committed, world readable
		return "", errors.FileSystemError("cannot write release notes draft").
			WithCause(err).
			WithContext("file", draft).
			Build()
	}
	return draft, nil
}

// Unfilled lists the placeholders still present in the newest entry of content.
func Unfilled(content []byte) []string {
	section := LatestSection(content)
	var left []string
	for _, p := range Placeholders {
		if bytes.Contains(section, []byte(p)) {
			left = append(left, p)
		}
	}
	return left
}

// Finalize replaces path with the edited draft.
func Finalize(draft, path string) error {
	if err := os.Rename(draft, path); err != nil {
		return errors.FileSystemError("cannot replace release notes").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	return nil
}

var sectionUnderline = regexp.MustCompile(`^-{3,}\s*$`)

// LatestSection returns the newest entry: everything from the first
// underlined header up to the next one.
func LatestSection(content []byte) []byte {
	lines := strings.SplitAfter(string(content), "\n")
	start, end := -1, len(lines)
	for i := 0; i+1 < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" || !sectionUnderline.MatchString(strings.TrimRight(lines[i+1], "\r\n")) {
			continue
		}
		if start < 0 {
			start = i
			i++
			continue
		}
		end = i
		break
	}
	if start < 0 {
		return bytes.TrimSpace(content)
	}
	return []byte(strings.TrimSpace(strings.Join(lines[start:end], "")))
}
