package versioning

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/patch"
	"git.home.luguber.info/inful/gwcrelease/internal/project"
)

var (
	pomVersion   = regexp.MustCompile(`<version>[^<]*</version><!-- GWC VERSION -->`)
	pomGTVersion = regexp.MustCompile(`<gt\.version>[^<]*</gt\.version>`)
	pomFinalName = regexp.MustCompile(`<finalName>geowebcache-[^<]*</finalName>`)

	releaseMarker = regexp.MustCompile(`<!-- GWC VERSION -->[^<]*<!-- /GWC VERSION -->`)

	sphinxVersion = regexp.MustCompile(`^version = '[^']*'`)
	sphinxRelease = regexp.MustCompile(`^release = '[^']*'`)

	schemaNamespace = regexp.MustCompile(`http://geowebcache\.org/schema/([^"'/\s]*)`)
	schemaAttribute = regexp.MustCompile(`version=(?:"([^"]*)"|'([^']*)')`)

	defaultConfigWindow = patch.Between(`<gwcConfiguration`, `>`)
	schemaWindow        = patch.Between(`<xs:schema`, `>`)
)

// Propagator writes version numbers into a checkout.
type Propagator struct {
	layout  project.Layout
	patcher patch.Patcher
	logger  *slog.Logger
}

// NewPropagator returns a Propagator for the checkout described by layout.
func NewPropagator(layout project.Layout, patcher patch.Patcher, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{layout: layout, patcher: patcher, logger: logger}
}

// UpdatePOMs sets the project version, the GeoTools version and the final
// artifact name in every pom.xml below the source directory. It returns the
// files it patched.
func (p *Propagator) UpdatePOMs(ctx context.Context, gwcVersion, gtVersion string) ([]string, error) {
	poms, err := doublestar.FilepathGlob(filepath.Join(p.layout.SourceDir(), "**", "pom.xml"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot list pom files").
			WithContext("dir", p.layout.SourceDir()).
			Build()
	}
	sort.Strings(poms)

	rule := patch.Chain(
		patch.Sub(pomVersion, "<version>"+patch.Escape(gwcVersion)+"</version><!-- GWC VERSION -->"),
		patch.Sub(pomGTVersion, "<gt.version>"+patch.Escape(gtVersion)+"</gt.version>"),
		patch.Sub(pomFinalName, "<finalName>geowebcache-"+patch.Escape(gwcVersion)+"</finalName>"),
	)
	for _, pom := range poms {
		if err := p.patcher.Patch(ctx, patch.Request{Path: pom, Transform: rule}); err != nil {
			return nil, err
		}
	}
	p.logger.Info("Updated pom versions",
		logfields.Version(gwcVersion),
		slog.String("gt_version", gtVersion),
		slog.Int("files", len(poms)))
	return poms, nil
}

// UpdateRelease sets the version between the GWC VERSION markers of the
// assembly descriptors. Descriptors that do not exist are skipped.
func (p *Propagator) UpdateRelease(ctx context.Context, version string) error {
	rule := patch.Sub(releaseMarker, "<!-- GWC VERSION -->"+patch.Escape(version)+"<!-- /GWC VERSION -->")
	for _, path := range p.layout.ReleaseDescriptors() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			p.logger.Debug("Release descriptor not present", logfields.Path(path))
			continue
		}
		if err := p.patcher.Patch(ctx, patch.Request{Path: path, Transform: rule}); err != nil {
			return err
		}
	}
	p.logger.Info("Updated release descriptors", logfields.Version(version))
	return nil
}

// UpdateDocs sets the Sphinx release (long) and version (short) assignments.
func (p *Propagator) UpdateDocs(ctx context.Context, release, version string) error {
	rule := patch.Chain(
		patch.Sub(sphinxVersion, "version = '"+patch.Escape(version)+"'"),
		patch.Sub(sphinxRelease, "release = '"+patch.Escape(release)+"'"),
	)
	if err := p.patcher.Patch(ctx, patch.Request{Path: p.layout.SphinxConf(), Transform: rule}); err != nil {
		return err
	}
	p.logger.Info("Updated documentation version", slog.String("release", release), logfields.Version(version))
	return nil
}

// UpdateConfig points the default configuration and the schema at
// schemaVersion and returns the version both referenced before. The previous
// files are kept as compatibility fixtures named after the old version.
// Nothing is written unless both files agree on the old version.
func (p *Propagator) UpdateConfig(ctx context.Context, schemaVersion string) (string, error) {
	defaultOld, err := p.scan(p.layout.DefaultConfig(), defaultConfigWindow, defaultConfigRule)
	if err != nil {
		return "", err
	}
	schemaOld, err := p.scan(p.layout.ConfigSchema(), schemaWindow, schemaRule)
	if err != nil {
		return "", err
	}
	if defaultOld != schemaOld {
		return "", consistencyError(
			fmt.Sprintf("%s, %s", filepath.Base(p.layout.DefaultConfig()), filepath.Base(p.layout.ConfigSchema())),
			[]string{defaultOld, schemaOld})
	}

	if _, err := p.UpdateConfigDefault(ctx, schemaVersion); err != nil {
		return "", err
	}
	if _, err := p.UpdateConfigSchema(ctx, schemaVersion); err != nil {
		return "", err
	}
	return defaultOld, nil
}

// UpdateConfigDefault rewrites the schema namespace URLs in the root element of
// geowebcache.xml and moves the previous file to the test fixtures.
func (p *Propagator) UpdateConfigDefault(ctx context.Context, schemaVersion string) (string, error) {
	path := p.layout.DefaultConfig()
	return p.updateTracked(ctx, path, defaultConfigWindow, defaultConfigRule, schemaVersion, p.layout.ConfigFixture)
}

// UpdateConfigSchema rewrites the namespace URLs and the version attribute in
// the root element of geowebcache.xsd and keeps the previous schema next to it.
func (p *Propagator) UpdateConfigSchema(ctx context.Context, schemaVersion string) (string, error) {
	path := p.layout.ConfigSchema()
	return p.updateTracked(ctx, path, schemaWindow, schemaRule, schemaVersion, p.layout.SchemaFixture)
}

// trackedRule builds a line rule that replaces version tokens with version
// and records the tokens it replaced in c.
type trackedRule func(c *patch.Collector, version string) patch.LineFunc

func defaultConfigRule(c *patch.Collector, version string) patch.LineFunc {
	return c.GSub(schemaNamespace, 1, "http://geowebcache.org/schema/"+patch.Escape(version))
}

func schemaRule(c *patch.Collector, version string) patch.LineFunc {
	return patch.Chain(
		defaultConfigRule(c, version),
		versionAttribute(c, version),
	)
}

// versionAttribute replaces the first version="…" or version='…' on a line,
// keeping its quote style.
func versionAttribute(c *patch.Collector, version string) patch.LineFunc {
	double := c.Sub(regexp.MustCompile(`version="([^"]*)"`), 1, `version="`+patch.Escape(version)+`"`)
	single := c.Sub(regexp.MustCompile(`version='([^']*)'`), 1, `version='`+patch.Escape(version)+`'`)
	return func(line string) string {
		loc := schemaAttribute.FindStringSubmatchIndex(line)
		if loc == nil {
			return line
		}
		if loc[2] >= 0 {
			return line[:loc[0]] + double(line[loc[0]:])
		}
		return line[:loc[0]] + single(line[loc[0]:])
	}
}

// scan returns the single version token a rule would replace in path.
func (p *Propagator) scan(path string, win patch.Window, rule trackedRule) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot read file").
			WithContext("file", path).
			Build()
	}
	var c patch.Collector
	patch.Apply(io.Discard, data, win, rule(&c, ""))
	old, ok := c.Consistent()
	if !ok {
		return "", consistencyError(path, c.Values())
	}
	return old, nil
}

func (p *Propagator) updateTracked(ctx context.Context, path string, win patch.Window, rule trackedRule, version string, fixture func(string) string) (string, error) {
	old, err := p.scan(path, win, rule)
	if err != nil {
		return "", err
	}

	backup := path + ".bak"
	var c patch.Collector
	if err := p.patcher.Patch(ctx, patch.Request{Path: path, Window: win, Transform: rule(&c, version), Backup: backup}); err != nil {
		return "", err
	}

	target := fixture(project.FixtureSuffix(old))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot create fixture directory").
			WithContext("file", target).
			Build()
	}
	if err := os.Rename(backup, target); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot keep previous configuration").
			WithContext("file", target).
			Build()
	}
	p.logger.Info("Updated configuration version",
		logfields.Path(p.layout.Rel(path)),
		slog.String("previous", old),
		logfields.Version(version),
		slog.String("fixture", p.layout.Rel(target)))
	return old, nil
}
