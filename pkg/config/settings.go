package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/httputil"
	"github.com/matzehuels/moxie/pkg/repository"
)

// Environment variables overlaid on the settings file.
const (
	EnvRoot          = "MOXIE_ROOT"
	EnvMavenCache    = "MOXIE_MAVEN_CACHE"
	EnvOffline       = "MOXIE_OFFLINE"
	EnvRedisAddr     = "MOXIE_REDIS_ADDR"
	EnvProxyPassword = "MOXIE_PROXY_PASSWORD"
)

// Settings are per-user resolver settings from ~/.moxie/settings.toml.
type Settings struct {
	// Root holds the artifact cache and side-data.
	Root string `toml:"root"`
	// MavenCache is an upstream local repository consulted before the
	// network, usually ~/.m2/repository. Empty disables it.
	MavenCache  string `toml:"mavenCache"`
	PathPattern string `toml:"pathPattern"`

	Repositories []repository.Repository `toml:"repositories"`
	Proxies      []httputil.Proxy        `toml:"proxies"`

	UpdatePolicy     string      `toml:"updatePolicy"`
	Purge            PurgePolicy `toml:"purge"`
	StrictProperties bool        `toml:"strictProperties"`
	Workers          int         `toml:"workers"`
	Offline          bool        `toml:"offline"`
	Retries          int         `toml:"retries"`
	ConnectTimeout   Duration    `toml:"connectTimeout"`
	ReadTimeout      Duration    `toml:"readTimeout"`

	// RedisAddr shares remembered not-found answers between hosts.
	RedisAddr     string `toml:"redisAddr"`
	RedisPassword string `toml:"redisPassword"`
}

// PurgePolicy is the snapshot retention policy.
type PurgePolicy struct {
	Keep int `toml:"keep"` // newest snapshots always kept
	Days int `toml:"days"` // older ones are purged after this many days, 0 purges at once
}

// DefaultPurgePolicy keeps the newest snapshot and anything from the last
// week.
var DefaultPurgePolicy = PurgePolicy{Keep: 1, Days: 7}

// DefaultSettingsPath returns ~/.moxie/settings.toml.
func DefaultSettingsPath() string {
	return filepath.Join(defaultRoot(), "settings.toml")
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".moxie"
	}
	return filepath.Join(home, ".moxie")
}

func defaultMavenCache() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".m2", "repository")
}

// DefaultSettings returns the settings used without a settings file.
func DefaultSettings() *Settings {
	s := baseSettings()
	s.fillDefaults()
	return s
}

// baseSettings leaves slices empty so a settings file replaces rather than
// extends them.
func baseSettings() *Settings {
	return &Settings{
		Root:         defaultRoot(),
		MavenCache:   defaultMavenCache(),
		UpdatePolicy: repository.DefaultUpdatePolicy.String(),
		Purge:        DefaultPurgePolicy,
		Workers:      8,
		Retries:      3,
	}
}

// fillDefaults sets what a settings file may leave empty.
func (s *Settings) fillDefaults() {
	if len(s.Repositories) == 0 {
		s.Repositories = []repository.Repository{repository.Central}
	}
}

// LoadSettings reads path over the defaults. A missing file yields the
// defaults.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	s := baseSettings()
	md, err := toml.Decode(string(data), s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeMalformedDescriptor, "%s: unknown setting %q", path, undecoded[0].String())
	}
	s.fillDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyEnv overlays environment variables read through lookup.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRoot); ok && v != "" {
		s.Root = v
	}
	if v, ok := lookup(EnvMavenCache); ok {
		s.MavenCache = v
	}
	if v, ok := lookup(EnvOffline); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			s.Offline = b
		}
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		s.RedisAddr = v
	}
	if v, ok := lookup(EnvProxyPassword); ok {
		for i := range s.Proxies {
			if s.Proxies[i].Username != "" && s.Proxies[i].Password == "" {
				s.Proxies[i].Password = v
			}
		}
	}
}

// Validate checks values the decoder cannot.
func (s *Settings) Validate() error {
	if _, err := repository.ParseUpdatePolicy(s.UpdatePolicy); err != nil {
		return err
	}
	if s.Purge.Keep < 0 || s.Purge.Days < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "purge keep and days must not be negative")
	}
	if s.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative")
	}
	for _, p := range s.Proxies {
		if p.Host == "" {
			return errors.New(errors.ErrCodeInvalidInput, "proxy %q has no host", p.ID)
		}
	}
	return nil
}
