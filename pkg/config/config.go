// Package config implements the on-disk configuration file the c2patool
// commands load: signer identity, trust anchors and the timestamp service,
// in the same local-file-plus-YAML style as the teacher's authfile package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/timestamp"
	"github.com/wuxler/c2pa/pkg/trust"
	"github.com/wuxler/c2pa/pkg/util/homedir"
)

// DefaultPath returns the c2patool config file's default location,
// ~/.config/c2patool.yaml, used when no --config flag is given.
func DefaultPath() (string, error) {
	home, err := homedir.Get()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "c2patool.yaml"), nil
}

// Signer names the private key and certificate chain used to sign
// manifests, and the COSE algorithm they imply.
type Signer struct {
	Algorithm string `yaml:"algorithm"`
	KeyFile   string `yaml:"key_file"`
	CertFile  string `yaml:"cert_file"`
	TSAURL    string `yaml:"tsa_url,omitempty"`
}

// TrustPolicy names the root/intermediate bundles a validation run chains
// signing credentials against. Absent means trust-policy checks are
// skipped (signature math is still always checked).
type TrustPolicy struct {
	RootsFile         string `yaml:"roots_file"`
	IntermediatesFile string `yaml:"intermediates_file,omitempty"`
}

// Config is the full c2patool configuration file shape.
type Config struct {
	Signer     *Signer       `yaml:"signer,omitempty"`
	Trust      *TrustPolicy  `yaml:"trust,omitempty"`
	TSATimeout time.Duration `yaml:"tsa_timeout,omitempty"`
}

// Load reads and decodes a Config from the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config %q: %v", errdefs.ErrInvalidParameter, path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config %q: %v", errdefs.ErrInvalidParameter, path, err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandPaths resolves a leading "~" in every file path the config carries,
// so a signer or trust bundle can live under the user's home directory
// regardless of the working directory c2patool is invoked from.
func (c *Config) expandPaths() error {
	var err error
	expand := func(p string) string {
		if err != nil || p == "" {
			return p
		}
		var expanded string
		expanded, err = homedir.Expand(p)
		if err != nil {
			return p
		}
		return expanded
	}
	if c.Signer != nil {
		c.Signer.KeyFile = expand(c.Signer.KeyFile)
		c.Signer.CertFile = expand(c.Signer.CertFile)
	}
	if c.Trust != nil {
		c.Trust.RootsFile = expand(c.Trust.RootsFile)
		c.Trust.IntermediatesFile = expand(c.Trust.IntermediatesFile)
	}
	return err
}

// Save encodes c and writes it to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %q: %w", path, err)
	}
	return nil
}

// NewTrustStore builds a trust.Store from c.Trust's root/intermediate
// bundle files, or returns nil, nil if no trust policy is configured.
func (c *Config) NewTrustStore() (*trust.Store, error) {
	if c.Trust == nil || c.Trust.RootsFile == "" {
		return nil, nil
	}
	rootPEM, err := os.ReadFile(c.Trust.RootsFile)
	if err != nil {
		return nil, fmt.Errorf("reading trust roots %q: %w", c.Trust.RootsFile, err)
	}
	store, err := trust.NewStore(rootPEM)
	if err != nil {
		return nil, err
	}
	if c.Trust.IntermediatesFile != "" {
		intPEM, err := os.ReadFile(c.Trust.IntermediatesFile)
		if err != nil {
			return nil, fmt.Errorf("reading trust intermediates %q: %w", c.Trust.IntermediatesFile, err)
		}
		if err := store.AddIntermediatesPEM(intPEM); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// NewTimestampClient builds a timestamp.Client from c.Signer.TSAURL, or
// returns nil if no timestamp authority is configured.
func (c *Config) NewTimestampClient() *timestamp.Client {
	if c.Signer == nil || c.Signer.TSAURL == "" {
		return nil
	}
	client := timestamp.NewClient(c.Signer.TSAURL)
	if c.TSATimeout > 0 {
		client.Timeout = c.TSATimeout
	}
	return client
}
