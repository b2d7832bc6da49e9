package config

import (
	"sort"
	"strings"
)

// Key names a release option. Keys are snake_case, matching the user defaults file.
type Key string

const (
	KeyDirectory      Key = "dir"
	KeyUpstreamRemote Key = "upstream_remote"
	KeyType           Key = "type"
	KeyLongVersion    Key = "long_version"
	KeyShortVersion   Key = "short_version"
	KeyGTVersion      Key = "gt_version"
	KeyBranch         Key = "branch"
	KeyOldBranch      Key = "old_branch"
	KeyNewBranch      Key = "new_branch"
	KeyReleaseCommit  Key = "release_commit"
	KeySFUser         Key = "sf_user"
	KeySFPassword     Key = "sf_password"
	KeyWebUser        Key = "web_user"
	KeyWebPassword    Key = "web_password"
	KeyMavenBin       Key = "maven_bin"
	KeyMakeBin        Key = "make_bin"
	KeyXSDDocBin      Key = "xsddoc_bin"
	KeyEditorBin      Key = "editor_bin"
	KeyEditorTimeout  Key = "editor_timeout"
	KeyKnownHosts     Key = "known_hosts"
	KeySSHKey         Key = "ssh_key"
	KeyJournal        Key = "journal"
	KeyMetricsFile    Key = "metrics_file"
	KeyNATSURL        Key = "nats_url"
	KeyNATSSubject    Key = "nats_subject"
)

// flagNames holds the keys whose command-line flag differs from the key itself.
var flagNames = map[Key]string{
	KeyDirectory:      "--directory",
	KeyUpstreamRemote: "--upstream",
}

// Flag returns the command-line spelling of the key.
func (k Key) Flag() string {
	if f, ok := flagNames[k]; ok {
		return f
	}
	return "--" + strings.ReplaceAll(string(k), "_", "-")
}

// Options is the merged release configuration. Empty strings mean "not set".
type Options struct {
	Directory      string `yaml:"dir,omitempty" toml:"dir,omitempty"`
	UpstreamRemote string `yaml:"upstream_remote,omitempty" toml:"upstream_remote,omitempty"`
	Type           string `yaml:"type,omitempty" toml:"type,omitempty"`

	LongVersion  string `yaml:"long_version,omitempty" toml:"long_version,omitempty"`
	ShortVersion string `yaml:"short_version,omitempty" toml:"short_version,omitempty"`
	GTVersion    string `yaml:"gt_version,omitempty" toml:"gt_version,omitempty"`

	Branch        string `yaml:"branch,omitempty" toml:"branch,omitempty"`
	OldBranch     string `yaml:"old_branch,omitempty" toml:"old_branch,omitempty"`
	NewBranch     string `yaml:"new_branch,omitempty" toml:"new_branch,omitempty"`
	ReleaseCommit string `yaml:"release_commit,omitempty" toml:"release_commit,omitempty"`

	SFUser      string `yaml:"sf_user,omitempty" toml:"sf_user,omitempty"`
	SFPassword  string `yaml:"sf_password,omitempty" toml:"sf_password,omitempty"`
	WebUser     string `yaml:"web_user,omitempty" toml:"web_user,omitempty"`
	WebPassword string `yaml:"web_password,omitempty" toml:"web_password,omitempty"`
	KnownHosts  string `yaml:"known_hosts,omitempty" toml:"known_hosts,omitempty"`
	SSHKey      string `yaml:"ssh_key,omitempty" toml:"ssh_key,omitempty"`

	// SSHRetries is how often a failed connection to a release host is redialed.
	SSHRetries int `yaml:"ssh_retries,omitempty" toml:"ssh_retries,omitempty"`

	MavenBin      string `yaml:"maven_bin,omitempty" toml:"maven_bin,omitempty"`
	MakeBin       string `yaml:"make_bin,omitempty" toml:"make_bin,omitempty"`
	XSDDocBin     string `yaml:"xsddoc_bin,omitempty" toml:"xsddoc_bin,omitempty"`
	EditorBin     string `yaml:"editor_bin,omitempty" toml:"editor_bin,omitempty"`
	EditorTimeout string `yaml:"editor_timeout,omitempty" toml:"editor_timeout,omitempty"`
	EditorWatch   bool   `yaml:"editor_watch,omitempty" toml:"editor_watch,omitempty"`

	Journal     string `yaml:"journal,omitempty" toml:"journal,omitempty"`
	MetricsFile string `yaml:"metrics_file,omitempty" toml:"metrics_file,omitempty"`
	NATSURL     string `yaml:"nats_url,omitempty" toml:"nats_url,omitempty"`
	NATSSubject string `yaml:"nats_subject,omitempty" toml:"nats_subject,omitempty"`

	GitAuth AuthConfig `yaml:"git_auth,omitempty" toml:"git_auth,omitempty"`
}

func (o *Options) fields() map[Key]*string {
	return map[Key]*string{
		KeyDirectory:      &o.Directory,
		KeyUpstreamRemote: &o.UpstreamRemote,
		KeyType:           &o.Type,
		KeyLongVersion:    &o.LongVersion,
		KeyShortVersion:   &o.ShortVersion,
		KeyGTVersion:      &o.GTVersion,
		KeyBranch:         &o.Branch,
		KeyOldBranch:      &o.OldBranch,
		KeyNewBranch:      &o.NewBranch,
		KeyReleaseCommit:  &o.ReleaseCommit,
		KeySFUser:         &o.SFUser,
		KeySFPassword:     &o.SFPassword,
		KeyWebUser:        &o.WebUser,
		KeyWebPassword:    &o.WebPassword,
		KeyMavenBin:       &o.MavenBin,
		KeyMakeBin:        &o.MakeBin,
		KeyXSDDocBin:      &o.XSDDocBin,
		KeyEditorBin:      &o.EditorBin,
		KeyEditorTimeout:  &o.EditorTimeout,
		KeyKnownHosts:     &o.KnownHosts,
		KeySSHKey:         &o.SSHKey,
		KeyJournal:        &o.Journal,
		KeyMetricsFile:    &o.MetricsFile,
		KeyNATSURL:        &o.NATSURL,
		KeyNATSSubject:    &o.NATSSubject,
	}
}

// Get returns the value stored under key, or "" when the key is unknown or unset.
func (o *Options) Get(key Key) string {
	if p, ok := o.fields()[key]; ok {
		return *p
	}
	return ""
}

// Set stores value under key. Unknown keys are ignored and reported as false.
func (o *Options) Set(key Key, value string) bool {
	p, ok := o.fields()[key]
	if ok {
		*p = value
	}
	return ok
}

// Has reports whether key holds a non-empty value.
func (o *Options) Has(key Key) bool {
	return o.Get(key) != ""
}

// Merge returns a copy of o overlaid with every option set in over.
func (o *Options) Merge(over Options) Options {
	merged := *o
	dst := merged.fields()
	for key, src := range over.fields() {
		if *src != "" {
			*dst[key] = *src
		}
	}
	if over.SSHRetries > 0 {
		merged.SSHRetries = over.SSHRetries
	}
	if over.EditorWatch {
		merged.EditorWatch = true
	}
	if !over.GitAuth.IsZero() {
		merged.GitAuth = over.GitAuth
	}
	return merged
}

// Require returns a MissingOptionError naming every key without a value.
func (o *Options) Require(keys ...Key) error {
	var missing []Key
	for _, key := range keys {
		if !o.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return newMissingOptionError(missing)
}

// Redacted renders the set options for logging with credentials masked.
func (o *Options) Redacted() map[string]string {
	out := make(map[string]string)
	for key, p := range o.fields() {
		if *p == "" {
			continue
		}
		switch key {
		case KeySFPassword, KeyWebPassword:
			out[string(key)] = "***"
		default:
			out[string(key)] = *p
		}
	}
	return out
}

// SortedKeys returns the keys of m in order, for stable log output.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
