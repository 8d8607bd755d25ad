// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/document"
)

type BackendGCSOption = func(ctx context.Context, cmd *cli.Command, be *BackendGCS) error

// NewBackendGCS returns a BackendGCS object that implements the Backend
// interface, configured from the document or from the init-time config file.
func NewBackendGCS(ctx context.Context, cmd *cli.Command, options ...BackendGCSOption) (*BackendGCS, error) {
	options = append([]BackendGCSOption{WithDefaults()}, options...)

	be := &BackendGCS{Ctx: ctx, Cmd: cmd}

	for _, opt := range options {
		if err := opt(ctx, cmd, be); err != nil {
			return nil, err
		}
	}

	return be, nil
}

func WithDefaults() BackendGCSOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendGCS) error {
		cwd, _ := os.Getwd()
		be.RootDir = cwd

		be.Version = 4
		be.Backend.Type = "gcs"

		return nil
	}
}

// FromDocument configures the backend from a parsed configuration document.
func FromDocument(doc *document.Document) BackendGCSOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendGCS) error {
		be.RootDir = doc.RootDir
		if !filepath.IsAbs(be.RootDir) {
			cwd, _ := os.Getwd()
			be.RootDir = filepath.Join(cwd, be.RootDir)
		}

		if doc.Backend == nil || doc.Backend.Type != "gcs" {
			return errors.New("document does not declare a gcs backend")
		}

		be.Backend.Config.Bucket = doc.Backend.Bucket
		be.Backend.Config.Prefix = doc.Backend.Prefix
		for _, attr := range doc.Backend.Attributes {
			switch attr.Name {
			case "credentials":
				be.Backend.Config.Credentials = attr.Value
			case "access_token":
				be.Backend.Config.AccessToken = attr.Value
			case "storage_custom_endpoint":
				be.Backend.Config.Endpoint = attr.Value
			}
		}

		if be.Backend.Config.Bucket == "" {
			return errors.New("gcs backend declares no bucket")
		}

		log.Debugf("NewBackendGCS FromDocument(): bucket=%s, prefix=%s",
			be.Backend.Config.Bucket, be.Backend.Config.Prefix)

		return nil
	}
}

// FromRootDir configures the backend from the config an init recorded under
// .terraform/.
func FromRootDir(rootDir string, required ...bool) BackendGCSOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendGCS) error {
		if filepath.IsAbs(rootDir) {
			be.RootDir = rootDir
		} else {
			cwd, _ := os.Getwd()
			be.RootDir = filepath.Join(cwd, rootDir)
		}

		log.Debugf("NewBackendGCS FromRootDir(): rootDir = %s", be.RootDir)

		err := be.load()

		if len(required) > 0 && !required[0] {
			return nil
		}
		return err
	}
}

func WithEnvOverride(env string) BackendGCSOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendGCS) error {
		if env != "" {
			be.EnvOverride = env
		}
		return nil
	}
}

func WithSvOverride() BackendGCSOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendGCS) error {
		sv := cmd.String("sv")
		if sv != "" {
			be.SvOverride = sv
		}
		return nil
	}
}

// WithStorageClient injects a pre-built storage client, for tests and
// emulators.
func WithStorageClient(client *storage.Client) BackendGCSOption {
	return func(ctx context.Context, cmd *cli.Command, be *BackendGCS) error {
		be.storageClient = client
		return nil
	}
}

func (be *BackendGCS) load() error {
	tfFile := filepath.Join(be.RootDir, ".terraform", "terraform.tfstate")
	data, err := os.ReadFile(tfFile)
	if err != nil {
		return fmt.Errorf("failed to read local config file: %w", err)
	}

	var temp BackendGCS
	if err := json.Unmarshal(data, &temp); err != nil {
		return fmt.Errorf("failed to unmarshal local config file: %w", err)
	}

	if temp.Backend.Type != "gcs" {
		return fmt.Errorf("%w: backend type is not gcs: %s", errors.New("bad"), temp.Backend.Type)
	}

	be.Version = temp.Version
	be.Backend = temp.Backend

	return nil
}
