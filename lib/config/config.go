// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "ETHERS_BUILD_CONFIG"

// ProjectFilename is the config file looked for in the project
// directory when neither --config nor EnvironmentVariable is set.
const ProjectFilename = "ethers-build.yaml"

// SignerKind selects how slugs are signed.
type SignerKind string

const (
	// SignerAccount unlocks a passphrase-encrypted account file.
	SignerAccount SignerKind = "account"
	// SignerKey reads a hex private key from an environment variable.
	SignerKey SignerKind = "key"
	// SignerNode asks a JSON-RPC node holding the key to sign.
	SignerNode SignerKind = "node"
)

// ColorMode controls terminal styling.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Config is the ethers-build configuration.
type Config struct {
	// APIURL is the publishing service endpoint.
	APIURL string `yaml:"api_url" json:"api_url"`

	// AccountFile is the encrypted account path. Relative paths are
	// resolved against the project directory by the caller.
	AccountFile string `yaml:"account_file" json:"account_file"`

	// Signer selects the signing backend.
	Signer SignerKind `yaml:"signer" json:"signer"`

	// NodeURL is the JSON-RPC endpoint used when Signer is "node".
	NodeURL string `yaml:"node_url" json:"node_url"`

	// NodeAddress is the account the node signs with. Required when
	// Signer is "node".
	NodeAddress string `yaml:"node_address" json:"node_address"`

	// PrivateKeyEnv names the environment variable holding a hex
	// private key when Signer is "key".
	PrivateKeyEnv string `yaml:"private_key_env" json:"private_key_env"`

	// CacheDir holds the last published versions per address.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Exclude lists glob patterns never included in generated slugs,
	// in addition to the built-in exclusions.
	Exclude []string `yaml:"exclude" json:"exclude"`

	// Color controls styled output.
	Color ColorMode `yaml:"color" json:"color"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:        "https://api.ethers.io/api/v1/",
		AccountFile:   "account.json",
		Signer:        SignerAccount,
		PrivateKeyEnv: "ETHERS_PRIVATE_KEY",
		CacheDir:      "${XDG_CACHE_HOME:-${HOME}/.cache}/ethers-build",
		Color:         ColorAuto,
	}
}

// Resolve finds and loads the configuration for a project. flagPath is
// the --config value and takes precedence; projectDir is searched for
// ProjectFilename last. It returns the loaded config and the path it
// came from ("" when the defaults were used).
func Resolve(flagPath, projectDir string) (*Config, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		candidate := filepath.Join(projectDir, ProjectFilename)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("checking for %s: %w", candidate, err)
		}
	}

	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, "", nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadFile loads configuration from a specific file, on top of the
// defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		err = cfg.decodeJSON(data)
	default:
		err = cfg.decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) decodeYAML(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) decodeJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	return decoder.Decode(c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// and URL fields.
func (c *Config) expandVariables() {
	c.APIURL = expandVars(c.APIURL)
	c.AccountFile = expandVars(c.AccountFile)
	c.NodeURL = expandVars(c.NodeURL)
	c.CacheDir = expandVars(c.CacheDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. A default may itself
// contain one level of ${VAR}.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return expandVars(parts[2])
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.APIURL == "" {
		errs = append(errs, fmt.Errorf("api_url is required"))
	}

	switch c.Signer {
	case SignerAccount:
		if c.AccountFile == "" {
			errs = append(errs, fmt.Errorf("account_file is required for signer %q", c.Signer))
		}
	case SignerKey:
		if c.PrivateKeyEnv == "" {
			errs = append(errs, fmt.Errorf("private_key_env is required for signer %q", c.Signer))
		}
	case SignerNode:
		if c.NodeURL == "" {
			errs = append(errs, fmt.Errorf("node_url is required for signer %q", c.Signer))
		}
		if c.NodeAddress == "" {
			errs = append(errs, fmt.Errorf("node_address is required for signer %q", c.Signer))
		}
	default:
		errs = append(errs, fmt.Errorf("signer must be one of: account, key, node (got %q)", c.Signer))
	}

	colorModes := []ColorMode{ColorAuto, ColorAlways, ColorNever}
	if !slices.Contains(colorModes, c.Color) {
		errs = append(errs, fmt.Errorf("color must be one of: %v", colorModes))
	}

	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("exclude pattern %q: %w", pattern, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AccountPath returns AccountFile resolved against projectDir.
func (c *Config) AccountPath(projectDir string) string {
	if filepath.IsAbs(c.AccountFile) {
		return c.AccountFile
	}
	return filepath.Join(projectDir, c.AccountFile)
}

// EnsureCacheDir creates CacheDir if it does not exist.
func (c *Config) EnsureCacheDir() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir is not set")
	}
	if err := os.MkdirAll(c.CacheDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.CacheDir, err)
	}
	return nil
}
