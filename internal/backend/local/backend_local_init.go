// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/document"
)

type BackendLocalOption = func(ctx context.Context, cmd *cli.Command, be *BackendLocal) error

// NewBackendLocal returns a BackendLocal object that implements the Backend
// interface.
func NewBackendLocal(ctx context.Context, cmd *cli.Command, options ...BackendLocalOption) (*BackendLocal, error) {
	options = append([]BackendLocalOption{WithDefaults()}, options...)

	be := &BackendLocal{Ctx: ctx, Cmd: cmd}

	for _, opt := range options {
		if err := opt(ctx, cmd, be); err != nil {
			return nil, err
		}
	}

	return be, nil
}

func WithDefaults() BackendLocalOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendLocal) error {
		cwd, _ := os.Getwd()
		be.RootDir = cwd

		be.Version = 4
		be.Backend.Type = "local"
		be.Backend.Config.Path = "terraform.tfstate"

		return nil
	}
}

// FromDocument configures the backend from a parsed configuration document.
// An empty backend "local" {} block is valid and keeps the default path.
func FromDocument(doc *document.Document) BackendLocalOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendLocal) error {
		be.RootDir = doc.RootDir
		if !filepath.IsAbs(be.RootDir) {
			cwd, _ := os.Getwd()
			be.RootDir = filepath.Join(cwd, be.RootDir)
		}

		if doc.Backend == nil || doc.Backend.Type != "local" {
			return errors.New("document does not declare a local backend")
		}

		if doc.Backend.Path != "" {
			be.Backend.Config.Path = doc.Backend.Path
		}

		log.Debugf("NewBackendLocal FromDocument(): path=%s", be.Backend.Config.Path)

		return nil
	}
}

// FromRootDir configures the backend from the config an init recorded under
// .terraform/, falling back to the implicit local backend when there is none.
func FromRootDir(rootDir string) BackendLocalOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendLocal) error {
		if filepath.IsAbs(rootDir) {
			be.RootDir = rootDir
		} else {
			cwd, _ := os.Getwd()
			be.RootDir = filepath.Join(cwd, rootDir)
		}

		return be.load()
	}
}

func WithEnvOverride(env string) BackendLocalOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendLocal) error {
		if env != "" {
			be.EnvOverride = env
		}
		return nil
	}
}

// load reads the init-time config file. A missing file is the implicit local
// backend (an empty terraform.backend {} situation), not an error.
func (be *BackendLocal) load() error {
	tfFile := filepath.Join(be.RootDir, ".terraform", "terraform.tfstate")
	data, err := os.ReadFile(tfFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("local backend config file %s does not exist, assuming no backend", tfFile)
			be.Backend.Type = "local"
			return nil
		}
		return fmt.Errorf("failed to read local config file: %w", err)
	}

	var temp BackendLocal
	if err := json.Unmarshal(data, &temp); err != nil {
		return fmt.Errorf("failed to unmarshal local config file: %w", err)
	}

	if temp.Backend.Type != "local" {
		return fmt.Errorf("%w: backend type is not local: %s", errors.New("bad"), temp.Backend.Type)
	}

	be.Version = temp.Version
	be.Backend = temp.Backend
	if be.Backend.Config.Path == "" {
		be.Backend.Config.Path = "terraform.tfstate"
	}

	return nil
}
