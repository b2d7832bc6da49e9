package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// DefaultUserDefaultsFiles are looked up in the working directory when no file is given.
var DefaultUserDefaultsFiles = []string{"user_defaults.yml", "user_defaults.yaml", "user_defaults.toml"}

// LoadUserDefaults reads per-user option defaults. YAML is used unless the
// file has a .toml extension.
func LoadUserDefaults(path string) (Options, error) {
	read := foundation.FromTuple(os.ReadFile(path))
	parsed := foundation.FlatMap(read, func(data []byte) foundation.Result[Options, error] {
		return foundation.FromTuple(decodeOptions(path, data))
	})
	opts, err := parsed.ToTuple()
	if err != nil {
		return Options{}, errors.WrapError(err, errors.CategoryConfig, "cannot load user defaults").
			WithContext("file", path).
			Build()
	}
	return opts, nil
}

// FindUserDefaults returns explicit when set, otherwise the first default file in dir.
// An empty result means no user defaults apply.
func FindUserDefaults(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultUserDefaultsFiles {
		candidate := filepath.Join(dir, name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

func decodeOptions(path string, data []byte) (Options, error) {
	var opts Options
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &opts)
		if err != nil {
			return Options{}, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Options{}, fmt.Errorf("unknown keys: %v", undecoded)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&opts); err != nil && !stderrors.Is(err, io.EOF) {
			return Options{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	return opts, nil
}
