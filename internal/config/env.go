package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables consulted for credentials.
const (
	EnvSFPassword  = "GWC_SF_PASSWORD"
	EnvWebPassword = "GWC_WEB_PASSWORD"
)

// DefaultEnvFiles are loaded, when present, before credentials are read.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads every existing file into the process environment.
// Variables already set in the environment win.
func LoadEnvFiles(paths ...string) ([]string, error) {
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, err
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// ApplyEnv fills unset credentials from the environment.
func ApplyEnv(opts *Options) {
	if opts.SFPassword == "" {
		opts.SFPassword = os.Getenv(EnvSFPassword)
	}
	if opts.WebPassword == "" {
		opts.WebPassword = os.Getenv(EnvWebPassword)
	}
}
