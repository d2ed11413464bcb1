package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up in the
// current directory.
const DefaultConfigFile = ".sitescribe"

// xdgConfigFile is the file name looked up in XDGConfigDir.
const xdgConfigFile = "config.yaml"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidSiteConfig is returned when a site entry of the configuration
	// file cannot be used: a negative depth or a malformed glob pattern.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)

// LoadConfigFile reads the per-site settings from the YAML file at path.
//
// Unknown keys are rejected so that a misspelled "ignorePattern" does not
// silently crawl pages the user meant to skip. Site keys are host names and
// are matched case-insensitively. An empty file is a valid, empty
// configuration.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, site := range cf.Sites {
		sites[strings.ToLower(strings.TrimSpace(host))] = site
	}
	cf.Sites = sites

	if err := cf.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cf, nil
}

// validate checks the defaults and every site entry.
func (cf *File) validate() error {
	if err := cf.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for host, site := range cf.Sites {
		if host == "" {
			return fmt.Errorf("%w: empty host key", ErrInvalidSiteConfig)
		}
		if err := site.validate(); err != nil {
			return fmt.Errorf("site %s: %w", host, err)
		}
	}
	return nil
}

func (sc SiteConfig) validate() error {
	if sc.Depth != nil && *sc.Depth < 0 {
		return fmt.Errorf("%w: depth %d is negative", ErrInvalidSiteConfig, *sc.Depth)
	}
	for _, pattern := range append(append([]string(nil), sc.IgnorePatterns...), sc.FollowPatterns...) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: pattern %q: %w", ErrInvalidSiteConfig, pattern, err)
		}
	}
	return nil
}

// XDGConfigFile returns the user-wide configuration file path.
// On Linux: ~/.config/sitescribe/config.yaml
func XDGConfigFile() string {
	return filepath.Join(XDGConfigDir(), xdgConfigFile)
}

// FindConfigFile returns the configuration file to load, or "" when there
// is none. An explicit configPath wins; otherwise ./.sitescribe is tried,
// then config.yaml in the XDG config directory.
func FindConfigFile(configPath string) string {
	candidates := []string{configPath}
	if configPath == "" {
		candidates = candidates[:0]
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
		}
		candidates = append(candidates, XDGConfigFile())
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
