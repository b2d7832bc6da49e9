package notes

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

var subsectionUnderline = regexp.MustCompile(`^\+{3,}\s*$`)

// toMarkdown rewrites the "+++" underlined subsection titles of the notes
// into ATX headings. Dash underlines are already setext headings.
func toMarkdown(section []byte) []byte {
	lines := strings.Split(string(section), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if subsectionUnderline.MatchString(line) && len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out[len(out)-1] = "### " + strings.TrimSpace(out[len(out)-1])
			continue
		}
		out = append(out, line)
	}
	return []byte(strings.Join(out, "\n"))
}

// RenderHTML converts one notes entry to an HTML fragment.
func RenderHTML(section []byte) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Linkify))
	var buf bytes.Buffer
	if err := md.Convert(toMarkdown(section), &buf); err != nil {
		return nil, errors.InternalError("cannot render release notes").WithCause(err).Build()
	}
	return buf.Bytes(), nil
}

// RenderLatest renders the newest entry of the notes file at path.
func RenderLatest(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemError("cannot read release notes").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	return RenderHTML(LatestSection(content))
}
