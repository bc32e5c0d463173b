// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/account"
	"github.com/bureau-foundation/slug/lib/config"
	"github.com/bureau-foundation/slug/lib/git"
	"github.com/bureau-foundation/slug/lib/publishapi"
	"github.com/bureau-foundation/slug/lib/render"
	"github.com/bureau-foundation/slug/lib/secret"
	"github.com/bureau-foundation/slug/lib/signer"
	"github.com/bureau-foundation/slug/lib/versions"
)

// GlobalParams holds the flags every command accepts.
type GlobalParams struct {
	ConfigPath     string `json:"-" flag:"config"          desc:"configuration file (default: $ETHERS_BUILD_CONFIG, then ./ethers-build.yaml)"`
	Dir            string `json:"-" flag:"dir,C"           desc:"project directory" default:"."`
	PassphraseFile string `json:"-" flag:"passphrase-file" desc:"read the account passphrase from this file (\"-\" for stdin)"`
	cli.Verbosity
}

// environment is the resolved project a command operates on.
type environment struct {
	options    Options
	config     *config.Config
	dir        string
	passphrase string
	repository *git.Repository
	renderer   *render.Renderer
	logger     *slog.Logger
}

func (o Options) environment(global *GlobalParams, logger *slog.Logger) (*environment, error) {
	dir, err := filepath.Abs(global.Dir)
	if err != nil {
		return nil, cli.Validation("resolving project directory %q: %w", global.Dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, cli.NotFound("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, cli.Validation("project directory %s is not a directory", dir)
	}

	cfg, source, err := config.Resolve(global.ConfigPath, dir)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration %s: %w", describeSource(source), err)
	}
	logger.Debug("configuration loaded", "source", describeSource(source), "signer", cfg.Signer)

	return &environment{
		options:    o,
		config:     cfg,
		dir:        dir,
		passphrase: global.PassphraseFile,
		repository: git.NewRepository(dir),
		renderer:   render.New(o.Stdout, string(cfg.Color)),
		logger:     logger,
	}, nil
}

func describeSource(source string) string {
	if source == "" {
		return "(defaults)"
	}
	return source
}

// accountPath is the configured account file within the project.
func (e *environment) accountPath() string {
	return e.config.AccountPath(e.dir)
}

// address returns the signing address without unlocking anything, or
// "" when no account is configured.
func (e *environment) address() (string, error) {
	switch e.config.Signer {
	case config.SignerAccount:
		address, err := account.ReadAddress(e.accountPath())
		if errors.Is(err, account.ErrNotFound) {
			return "", nil
		}
		return address, err
	case config.SignerKey:
		if os.Getenv(e.config.PrivateKeyEnv) == "" {
			return "", nil
		}
		keySigner, err := e.keySigner()
		if err != nil {
			return "", err
		}
		defer keySigner.Close()
		return keySigner.Address(), nil
	case config.SignerNode:
		if !signer.ValidAddress(e.config.NodeAddress) {
			return "", cli.Validation("node_address %q is not a valid address", e.config.NodeAddress)
		}
		return signer.ChecksumAddress(e.config.NodeAddress), nil
	default:
		return "", cli.Validation("unknown signer %q", e.config.Signer)
	}
}

// signer returns the configured signer. Account files are unlocked
// with the passphrase from [environment.readPassphrase]. The returned release function
// must be called when signing is done.
func (e *environment) signer(purpose string) (signer.Signer, func(), error) {
	switch e.config.Signer {
	case config.SignerAccount:
		path := e.accountPath()
		if _, err := os.Stat(path); err != nil {
			return nil, nil, cli.NotFound("%s requires an account (use ethers-build init): %w", purpose, err)
		}
		passphrase, err := e.readPassphrase("Account passphrase: ", false)
		if err != nil {
			return nil, nil, err
		}
		defer passphrase.Close()

		keySigner, err := account.Unlock(path, passphrase)
		if err != nil {
			return nil, nil, err
		}
		e.logger.Debug("account unlocked", "address", keySigner.Address())
		return keySigner, func() { keySigner.Close() }, nil

	case config.SignerKey:
		if os.Getenv(e.config.PrivateKeyEnv) == "" {
			return nil, nil, cli.Validation("%s requires a private key in $%s", purpose, e.config.PrivateKeyEnv)
		}
		keySigner, err := e.keySigner()
		if err != nil {
			return nil, nil, err
		}
		return keySigner, func() { keySigner.Close() }, nil

	case config.SignerNode:
		nodeSigner, err := signer.NewNodeSigner(e.config.NodeURL, e.config.NodeAddress, e.options.HTTPClient)
		if err != nil {
			return nil, nil, cli.Validation("%w", err)
		}
		return nodeSigner, func() {}, nil

	default:
		return nil, nil, cli.Validation("unknown signer %q", e.config.Signer)
	}
}

// readPassphrase reads from --passphrase-file when given, otherwise
// prompts on stdin.
func (e *environment) readPassphrase(prompt string, confirm bool) (*secret.Buffer, error) {
	if e.passphrase == "" {
		return cli.ReadPassphrase(e.options.Stdin, e.options.Stderr, prompt, confirm)
	}
	if e.passphrase == "-" {
		buffer, err := secret.ReadFirstLine(e.options.Stdin)
		if err != nil {
			return nil, cli.Validation("reading passphrase: %w", err)
		}
		return buffer, nil
	}
	buffer, err := secret.ReadFromPath(e.passphrase)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return buffer, nil
}

func (e *environment) keySigner() (*signer.KeySigner, error) {
	key, err := signer.ParsePrivateKeyHex(os.Getenv(e.config.PrivateKeyEnv))
	if err != nil {
		return nil, cli.Validation("$%s: %w", e.config.PrivateKeyEnv, err)
	}
	keySigner, err := signer.NewKeySigner(key)
	if err != nil {
		return nil, cli.Validation("$%s: %w", e.config.PrivateKeyEnv, err)
	}
	return keySigner, nil
}

func (e *environment) publisher() (*publishapi.Client, error) {
	client, err := publishapi.NewClient(publishapi.Config{
		URL:        e.config.APIURL,
		HTTPClient: e.options.HTTPClient,
		Logger:     e.logger,
	})
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return client, nil
}

// cache returns the published-versions cache, or nil when the cache
// directory cannot be used. A missing cache only disables offline
// comparisons.
func (e *environment) cache() versions.Cache {
	if err := e.config.EnsureCacheDir(); err != nil {
		e.logger.Warn("published versions cache unavailable", "error", err)
		return nil
	}
	cache, err := publishapi.NewCache(e.config.CacheDir)
	if err != nil {
		e.logger.Warn("published versions cache unavailable", "error", err)
		return nil
	}
	return cache
}

// readSlugFile reads an envelope from path.
func readSlugFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading slug: %w", err)
	}
	return data, nil
}

// unexpectedArgs rejects extra positional arguments.
func unexpectedArgs(args []string, want int) error {
	if len(args) > want {
		return cli.Validation("unexpected argument: %s", args[want])
	}
	return nil
}

// requireArgs checks for exactly the named positional arguments.
func requireArgs(args []string, names ...string) error {
	if len(args) < len(names) {
		return cli.Validation("missing %s argument", names[len(args)])
	}
	return unexpectedArgs(args, len(names))
}
