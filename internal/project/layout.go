// Package project knows where things live inside a GeoWebCache checkout.
package project

import (
	"path/filepath"
	"strings"
)

const configPackage = "org/geowebcache/config"

// Layout resolves project paths relative to the checkout root.
type Layout struct {
	Root string
}

// New returns the layout of the checkout at root.
func New(root string) Layout {
	return Layout{Root: root}
}

func (l Layout) join(parts ...string) string {
	return filepath.Join(append([]string{l.Root}, parts...)...)
}

// Rel returns path relative to the root, using forward slashes as git does.
func (l Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// SourceDir is the maven multi-module root.
func (l Layout) SourceDir() string { return l.join("geowebcache") }

// RootPOM is the aggregate pom.xml.
func (l Layout) RootPOM() string { return l.join("geowebcache", "pom.xml") }

// CoreDir is staged as a whole after the compatibility fixtures are written.
func (l Layout) CoreDir() string { return l.join("geowebcache", "core") }

// ReleaseDescriptors are the assembly descriptors carrying the release version.
func (l Layout) ReleaseDescriptors() []string {
	return []string{
		l.join("geowebcache", "release", "src.xml"),
		l.join("geowebcache", "release", "doc.xml"),
	}
}

// SphinxConf is the documentation build configuration.
func (l Layout) SphinxConf() string {
	return l.join("documentation", "en", "user", "source", "conf.py")
}

// UserDocsDir is where the documentation makefile lives.
func (l Layout) UserDocsDir() string { return l.join("documentation", "en", "user") }

// ReleaseNotes is the plain text changelog.
func (l Layout) ReleaseNotes() string { return l.join("RELEASE_NOTES.txt") }

// DefaultConfig is the bundled geowebcache.xml.
func (l Layout) DefaultConfig() string {
	return l.join("geowebcache", "core", "src", "main", "resources", "geowebcache.xml")
}

// ConfigSchema is the configuration XSD.
func (l Layout) ConfigSchema() string {
	return l.join("geowebcache", "core", "src", "main", "resources", filepath.FromSlash(configPackage), "geowebcache.xsd")
}

// DiskQuotaSchema is the disk quota XSD published alongside the main schema.
func (l Layout) DiskQuotaSchema() string {
	return l.join("geowebcache", "diskquota", "core", "src", "main", "resources", filepath.FromSlash(configPackage), "geowebcache-diskquota.xsd")
}

// ConfigFixture is where the previous default config is kept for compatibility tests.
func (l Layout) ConfigFixture(suffix string) string {
	return l.join("geowebcache", "core", "src", "test", "resources", filepath.FromSlash(configPackage), "geowebcache_"+suffix+".xml")
}

// SchemaFixture is where the previous schema is kept, next to the current one.
func (l Layout) SchemaFixture(suffix string) string {
	return l.join("geowebcache", "core", "src", "main", "resources", filepath.FromSlash(configPackage), "geowebcache_"+suffix+".xsd")
}

// ArtifactDir collects everything a build produces for upload.
func (l Layout) ArtifactDir() string { return l.join("geowebcache", "target", "release") }

// SchemaDocDir is the intermediate xsddoc output for version.
func (l Layout) SchemaDocDir(version string) string {
	return filepath.Join(l.ArtifactDir(), "geowebcache-"+version, "schema")
}

// SchemaDocZip is the zipped xsddoc output for version.
func (l Layout) SchemaDocZip(version string) string {
	return filepath.Join(l.ArtifactDir(), "geowebcache-"+version+"-xsddoc.zip")
}

// DocZip is the documentation bundle built by the maven assembly.
func (l Layout) DocZip(version string) string {
	return filepath.Join(l.ArtifactDir(), "geowebcache-"+version+"-doc.zip")
}

// FixtureSuffix strips dots from a version token so it can be used in a file name.
func FixtureSuffix(version string) string {
	return strings.ReplaceAll(version, ".", "")
}
