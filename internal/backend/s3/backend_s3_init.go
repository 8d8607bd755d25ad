// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/document"
)

type BackendS3Option = func(ctx context.Context, cmd *cli.Command, be *BackendS3) error

// NewBackendS3 returns a BackendS3 object that implements the Backend
// interface, configured from the document or from the init-time config file.
func NewBackendS3(ctx context.Context, cmd *cli.Command, options ...BackendS3Option) (*BackendS3, error) {
	options = append([]BackendS3Option{WithDefaults()}, options...)

	be := &BackendS3{Ctx: ctx, Cmd: cmd}

	for _, opt := range options {
		if err := opt(ctx, cmd, be); err != nil {
			return nil, err
		}
	}

	return be, nil
}

func WithDefaults() BackendS3Option {
	return func(ctx context.Context, cmd *cli.Command, be *BackendS3) error {
		cwd, _ := os.Getwd()
		be.RootDir = cwd

		be.Version = 4
		be.Backend.Type = "s3"

		return nil
	}
}

// FromDocument configures the backend from a parsed configuration document.
func FromDocument(doc *document.Document) BackendS3Option {
	return func(ctx context.Context, cmd *cli.Command, be *BackendS3) error {
		be.RootDir = doc.RootDir
		if !filepath.IsAbs(be.RootDir) {
			cwd, _ := os.Getwd()
			be.RootDir = filepath.Join(cwd, be.RootDir)
		}

		if doc.Backend == nil || doc.Backend.Type != "s3" {
			return errors.New("document does not declare an s3 backend")
		}

		be.Backend.Config.Bucket = doc.Backend.Bucket
		be.Backend.Config.Key = doc.Backend.Key
		be.Backend.Config.Prefix = doc.Backend.Prefix
		be.Backend.Config.Region = doc.Backend.Region

		if be.Backend.Config.Bucket == "" || be.Backend.Config.Key == "" {
			return errors.New("s3 backend declares no bucket or key")
		}

		log.Debugf("NewBackendS3 FromDocument(): bucket=%s, key=%s",
			be.Backend.Config.Bucket, be.Backend.Config.Key)

		return nil
	}
}

// FromRootDir configures the backend from the config an init recorded under
// .terraform/.
func FromRootDir(rootDir string, required ...bool) BackendS3Option {
	return func(ctx context.Context, cmd *cli.Command, be *BackendS3) error {
		if filepath.IsAbs(rootDir) {
			be.RootDir = rootDir
		} else {
			cwd, _ := os.Getwd()
			be.RootDir = filepath.Join(cwd, rootDir)
		}

		log.Debugf("NewBackendS3 FromRootDir(): rootDir = %s", be.RootDir)

		err := be.load()

		if len(required) > 0 && !required[0] {
			return nil
		}
		return err
	}
}

func WithEnvOverride(env string) BackendS3Option {
	return func(ctx context.Context, cmd *cli.Command, be *BackendS3) error {
		if env != "" {
			be.EnvOverride = env
		}
		return nil
	}
}

func WithSvOverride() BackendS3Option {
	return func(ctx context.Context, cmd *cli.Command, be *BackendS3) error {
		sv := cmd.String("sv")
		if sv != "" {
			be.SvOverride = sv
		}
		return nil
	}
}

// WithS3Client injects a pre-built S3 client, for tests and localstack-style
// endpoints.
func WithS3Client(client *s3v2.Client) BackendS3Option {
	return func(ctx context.Context, cmd *cli.Command, be *BackendS3) error {
		be.s3Client = client
		return nil
	}
}

func (be *BackendS3) load() error {
	tfFile := filepath.Join(be.RootDir, ".terraform", "terraform.tfstate")
	data, err := os.ReadFile(tfFile)
	if err != nil {
		return fmt.Errorf("failed to read local config file: %w", err)
	}

	var temp BackendS3
	if err := json.Unmarshal(data, &temp); err != nil {
		return fmt.Errorf("failed to unmarshal local config file: %w", err)
	}

	if temp.Backend.Type != "s3" {
		return fmt.Errorf("%w: backend type is not s3: %s", errors.New("bad"), temp.Backend.Type)
	}

	be.Version = temp.Version
	be.Backend = temp.Backend

	return nil
}
