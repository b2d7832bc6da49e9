package deploy

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/patch"
)

const archiveIndent = "            "

// PatchIndex updates the documentation index at path for a new release:
// the text of the link to "<link>/" becomes version, and an entry for
// version is added at the top of the list under the Archived heading unless
// one already exists.
func PatchIndex(ctx context.Context, p patch.Patcher, path, version, link string) error {
	current := regexp.MustCompile(`<a href="` + regexp.QuoteMeta(link) + `/">[^<]*</a>`)
	err := p.Patch(ctx, patch.Request{
		Path:      path,
		Transform: patch.Sub(current, patch.Escape(fmt.Sprintf(`<a href="%s/">%s</a>`, link, version))),
	})
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.FileSystemError("cannot read index").WithCause(err).WithContext("file", path).Build()
	}
	if strings.Contains(string(data), archiveEntry(version)) {
		return nil
	}
	return p.Patch(ctx, patch.Request{
		Path:      path,
		Window:    patch.Between(`<h2>Archived</h2>`, `<ul>`),
		Transform: patch.Sub(regexp.MustCompile(`<ul>`), patch.Escape("<ul>\n"+archiveIndent+"<li>"+archiveEntry(version)+"</li>")),
	})
}

func archiveEntry(version string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, version, version)
}

// VerifyIndex parses the patched index and checks that the "<link>/" link
// reads version and that the Archived list starts with version.
func VerifyIndex(path, version, link string) error {
	f, err := os.Open(path) //nolint:gosec // workspace file
	if err != nil {
		return errors.FileSystemError("cannot open index").WithCause(err).WithContext("file", path).Build()
	}
	defer func() { _ = f.Close() }()
	doc, err := html.Parse(f)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "failed to parse index").WithContext("file", path).Build()
	}

	var linkText []string
	var archived *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if getAttr(n, "href") == link+"/" {
					linkText = append(linkText, strings.TrimSpace(textOf(n)))
				}
			case "h2":
				if archived == nil && strings.TrimSpace(textOf(n)) == "Archived" {
					archived = nextElement(n, "ul")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	invalid := func(msg string) error {
		return errors.ValidationError(msg).
			WithContext("file", path).
			WithContext("version", version).
			WithContext("link", link).
			Build()
	}
	if len(linkText) == 0 {
		return invalid("index has no link to the release")
	}
	for _, text := range linkText {
		if text != version {
			return invalid("index link does not name the release")
		}
	}
	if archived == nil {
		return invalid("index has no archived list")
	}
	first := firstElement(archived, "li")
	if first == nil {
		return invalid("archived list is empty")
	}
	a := firstElement(first, "a")
	if a == nil || getAttr(a, "href") != version || strings.TrimSpace(textOf(a)) != version {
		return invalid("archived list does not start with the release")
	}
	return nil
}

// nextElement finds the first element named tag after n in document order.
func nextElement(n *html.Node, tag string) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		for sib := cur.NextSibling; sib != nil; sib = sib.NextSibling {
			if found := firstElement(sib, tag); found != nil {
				return found
			}
		}
	}
	return nil
}

func firstElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
