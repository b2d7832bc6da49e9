package config

import (
	"fmt"
	"os"
)

// DefaultApplier applies defaults for one group of options.
type DefaultApplier interface {
	ApplyDefaults(opts *Options) error
	Domain() string
}

// PathDefaultApplier fills the project directory and upstream remote.
type PathDefaultApplier struct{}

func (PathDefaultApplier) Domain() string { return "paths" }

func (PathDefaultApplier) ApplyDefaults(opts *Options) error {
	if opts.Directory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		opts.Directory = wd
	}
	if opts.UpstreamRemote == "" {
		opts.UpstreamRemote = "origin"
	}
	return nil
}

// ToolDefaultApplier fills external executables, resolved through PATH at run time.
type ToolDefaultApplier struct{}

func (ToolDefaultApplier) Domain() string { return "tools" }

func (ToolDefaultApplier) ApplyDefaults(opts *Options) error {
	if opts.XSDDocBin == "" {
		opts.XSDDocBin = "xsddoc"
	}
	if opts.MavenBin == "" {
		opts.MavenBin = "mvn"
	}
	if opts.MakeBin == "" {
		opts.MakeBin = "make"
	}
	if opts.EditorBin == "" {
		opts.EditorBin = os.Getenv("EDITOR")
	}
	return nil
}

// NotifyDefaultApplier fills the event subject when a NATS server is configured.
type NotifyDefaultApplier struct{}

func (NotifyDefaultApplier) Domain() string { return "notify" }

func (NotifyDefaultApplier) ApplyDefaults(opts *Options) error {
	if opts.NATSURL != "" && opts.NATSSubject == "" {
		opts.NATSSubject = "gwcrelease.events"
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	PathDefaultApplier{},
	ToolDefaultApplier{},
	NotifyDefaultApplier{},
}

// Defaults returns the built-in option values.
func Defaults() (Options, error) {
	var opts Options
	if err := ApplyDefaults(&opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// ApplyDefaults fills every unset option that has a built-in default.
func ApplyDefaults(opts *Options) error {
	for _, applier := range defaultAppliers {
		if err := applier.ApplyDefaults(opts); err != nil {
			return fmt.Errorf("%s defaults: %w", applier.Domain(), err)
		}
	}
	return nil
}
