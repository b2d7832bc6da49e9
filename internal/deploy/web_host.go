package deploy

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/patch"
	"git.home.luguber.info/inful/gwcrelease/internal/workspace"
)

// Documentation web site.
const (
	WebHostName  = "wedge.boundlessgeo.com"
	WebHostPort  = 7777
	WebRoot      = "/var/www/geowebcache.org/htdocs"
	WebIndexPath = WebRoot + "/docs/index.html"
	// WebTemp is the staging tree in the login directory. Moving it into
	// WebRoot needs root and is left to a human.
	WebTemp = "web_temp"
	// NotesFile is the rendered release notes inside the versioned docs.
	NotesFile = "release-notes.html"
)

// WebRelease is everything WebHost.Publish uploads.
type WebRelease struct {
	Version         string
	Type            config.ReleaseType
	SchemaDocZip    string
	DocZip          string
	ConfigSchema    string
	DiskQuotaSchema string
	// NotesHTML is optional.
	NotesHTML []byte
}

// WebHost stages a release of the documentation site.
type WebHost struct {
	dialer    Dialer
	endpoint  Endpoint
	patcher   patch.Patcher
	workspace *workspace.Manager
	logger    *slog.Logger
}

// NewWebHost creates a WebHost logging in as user.
func NewWebHost(dialer Dialer, user, password string, patcher patch.Patcher, ws *workspace.Manager, logger *slog.Logger) *WebHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebHost{
		dialer:    dialer,
		endpoint:  Endpoint{Host: WebHostName, Port: WebHostPort, User: user, Password: password},
		patcher:   patcher,
		workspace: ws,
		logger:    logger,
	}
}

// Endpoint returns the login used by Publish.
func (w *WebHost) Endpoint() Endpoint { return w.endpoint }

// Publish patches the docs index and stages docs, schemas and schema docs
// of rel under WebTemp on the web host.
func (w *WebHost) Publish(ctx context.Context, rel WebRelease) error {
	v := rel.Version
	link := rel.Type.IndexLink()
	for _, local := range []string{rel.SchemaDocZip, rel.DocZip, rel.ConfigSchema, rel.DiskQuotaSchema} {
		if _, err := os.Stat(local); err != nil {
			return errors.FileSystemError("missing web artifact").
				WithCause(err).
				WithContext("file", local).
				Build()
		}
	}

	w.logger.Info("Updating web site", logfields.Host(w.endpoint.Address()), logfields.Version(v), slog.String("link", link), slog.String("symlink", rel.Type.Symlink()))
	sess, err := w.dialer.Dial(ctx, w.endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	dir, err := w.workspace.Create()
	if err != nil {
		return err
	}
	defer func() { _ = w.workspace.Cleanup() }()

	index := filepath.Join(dir, "index.html")
	if err := sess.Download(ctx, WebIndexPath, index); err != nil {
		return err
	}
	if err := PatchIndex(ctx, w.patcher, index, v, link); err != nil {
		return err
	}
	if err := VerifyIndex(index, v, link); err != nil {
		return err
	}

	schemaDir := path.Join(WebTemp, "schema", v)
	docsDir := path.Join(WebTemp, "docs", v)
	bundle := "geowebcache-" + v
	xsddocZip := bundle + "-xsddoc.zip"
	docZip := bundle + "-doc.zip"

	steps := []func() error{
		w.exec(ctx, sess, "rm", "-rf", WebTemp),
		w.exec(ctx, sess, "mkdir", "-p", path.Join(WebTemp, "docs")),
		w.exec(ctx, sess, "mkdir", "-p", schemaDir),
		w.exec(ctx, sess, "mkdir", "-p", path.Join(WebTemp, "schema", "docs")),
		func() error { return sess.Upload(ctx, rel.SchemaDocZip, xsddocZip) },
		func() error { return sess.Upload(ctx, rel.DocZip, docZip) },
		func() error { return sess.Upload(ctx, rel.ConfigSchema, path.Join(schemaDir, "geowebcache.xsd")) },
		func() error {
			return sess.Upload(ctx, rel.DiskQuotaSchema, path.Join(schemaDir, "geowebcache-diskquota.xsd"))
		},
		func() error { return sess.Upload(ctx, index, path.Join(WebTemp, "docs", "index.html")) },
		w.exec(ctx, sess, "unzip", "-o", "-q", xsddocZip),
		w.exec(ctx, sess, "unzip", "-o", "-q", docZip),
		w.exec(ctx, sess, "mv", path.Join(bundle, "doc"), docsDir),
		w.exec(ctx, sess, "mv", path.Join(bundle, "schema"), path.Join(WebTemp, "schema", "docs", v)),
		w.exec(ctx, sess, "rm", "-rf", bundle, xsddocZip, docZip),
		w.exec(ctx, sess, "ln", "-s", v, path.Join(WebTemp, "docs", rel.Type.Symlink())),
	}
	if len(rel.NotesHTML) > 0 {
		notes := filepath.Join(dir, NotesFile)
		steps = append(steps, func() error {
			if err := os.WriteFile(notes, rel.NotesHTML, 0o600); err != nil {
				return errors.FileSystemError("cannot stage release notes").WithCause(err).WithContext("file", notes).Build()
			}
			return sess.Upload(ctx, notes, path.Join(docsDir, NotesFile))
		})
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	w.logger.Warn("Documentation artifacts uploaded; log in, move them into the web root and set ownership to www-data www-data with mode 755 to complete the update",
		slog.String("staged", w.endpoint.String()+":~/"+WebTemp+"/"),
		slog.String("web_root", WebRoot))
	w.logger.Info("Done updating web site", logfields.Version(v))
	return nil
}

func (w *WebHost) exec(ctx context.Context, sess Session, words ...string) func() error {
	return func() error {
		_, err := sess.Exec(ctx, ShellJoin(words...))
		return err
	}
}
