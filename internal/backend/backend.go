// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/hashicorp/go-tfe"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/backend/gcs"
	"github.com/tfcheck/tfcheck/internal/backend/local"
	"github.com/tfcheck/tfcheck/internal/backend/s3"
	"github.com/tfcheck/tfcheck/internal/document"
	"github.com/tfcheck/tfcheck/internal/meta"
)

// Backend abstracts the state stores a configuration document can designate.
type Backend interface {
	// State returns the CSV~0 state document.
	State() ([]byte, error)
	// States returns the state documents specified by the specs.
	States(...string) ([][]byte, error)
	// StateVersions returns the known versions of the workspace's state,
	// most recent first.
	StateVersions() ([]*tfe.StateVersion, error)
	// Workspaces returns the workspace names found in the store, "default"
	// first.
	Workspaces() ([]string, error)
	String() string
	Type() string
}

// SelfDiffer is implemented by backends that can diff state snapshots without
// an external differ.
type SelfDiffer interface {
	DiffStates(ctx context.Context, cmd *cli.Command) ([][]byte, error)
}

// NewBackend returns the Backend implementation for the root dir resolved in
// command metadata. The configuration document is authoritative; a
// .terraform/terraform.tfstate peek covers initialized workspaces whose
// document didn't load, and a bare terraform.tfstate means local.
func NewBackend(ctx context.Context, cmd cli.Command) (Backend, error) {
	meta := cmd.Metadata["meta"].(meta.Meta)
	log.Debugf("NewBackend: meta: %v", meta)

	// --workspace outranks the rootDir::env override.
	if ws := cmd.String("workspace"); ws != "" {
		meta.Env = ws
	}

	if doc, err := document.Load(meta.RootDir); err == nil && doc.Backend != nil {
		return fromDocument(ctx, &cmd, meta, doc)
	} else if err != nil {
		log.Debugf("document load failed, falling back to peek: %v", err)
	}

	if _, err := os.Stat(filepath.Join(meta.RootDir, ".terraform", "terraform.tfstate")); err == nil {
		typ, err := peek(meta)
		if err != nil {
			return nil, err
		}
		return fromPeek(ctx, &cmd, meta, typ)
	}

	// A bare state file, or a terraform.tfstate.d workspace tree, with no
	// backend block anywhere is the implicit local backend.
	_, sErr := os.Stat(filepath.Join(meta.RootDir, "terraform.tfstate"))
	_, eErr := os.Stat(filepath.Join(meta.RootDir, ".terraform", "environment"))
	if sErr == nil || eErr == nil {
		return local.NewBackendLocal(ctx, &cmd,
			local.FromRootDir(meta.RootDir),
			local.WithEnvOverride(meta.Env),
		)
	}

	return nil, fmt.Errorf("no backend designation found in %s", meta.RootDir)
}

// fromDocument builds a backend from the parsed configuration document.
func fromDocument(ctx context.Context, cmd *cli.Command, meta meta.Meta, doc *document.Document) (Backend, error) {
	switch doc.Backend.Type {
	case "gcs":
		return gcs.NewBackendGCS(ctx, cmd,
			gcs.FromDocument(doc),
			gcs.WithEnvOverride(meta.Env),
			gcs.WithSvOverride(),
		)
	case "s3":
		return s3.NewBackendS3(ctx, cmd,
			s3.FromDocument(doc),
			s3.WithEnvOverride(meta.Env),
			s3.WithSvOverride(),
		)
	case "local":
		return local.NewBackendLocal(ctx, cmd,
			local.FromDocument(doc),
			local.WithEnvOverride(meta.Env),
		)
	default:
		return nil, fmt.Errorf("unsupported backend type %q declared in %s", doc.Backend.Type, meta.RootDir)
	}
}

// fromPeek builds a backend from the type recorded by a previous init.
func fromPeek(ctx context.Context, cmd *cli.Command, meta meta.Meta, typ string) (Backend, error) {
	switch typ {
	case "gcs":
		return gcs.NewBackendGCS(ctx, cmd,
			gcs.FromRootDir(meta.RootDir),
			gcs.WithEnvOverride(meta.Env),
			gcs.WithSvOverride(),
		)
	case "s3":
		return s3.NewBackendS3(ctx, cmd,
			s3.FromRootDir(meta.RootDir),
			s3.WithEnvOverride(meta.Env),
			s3.WithSvOverride(),
		)
	case "local":
		return local.NewBackendLocal(ctx, cmd,
			local.FromRootDir(meta.RootDir),
			local.WithEnvOverride(meta.Env),
		)
	default:
		return nil, fmt.Errorf("unsupported backend type %q", typ)
	}
}

// peek returns the backend type by reading the local terraform state file.
func peek(meta meta.Meta) (string, error) {
	raw, err := os.ReadFile(filepath.Join(meta.RootDir, ".terraform", "terraform.tfstate"))
	if err != nil {
		return "", err
	}

	var peeker map[string]json.RawMessage
	if err := json.Unmarshal(raw, &peeker); err != nil {
		return "", fmt.Errorf("can't peek: %w", err)
	}

	if err := json.Unmarshal(peeker["backend"], &peeker); err != nil {
		return "", fmt.Errorf("can't peek: %w", err)
	}

	var typ string
	if err := json.Unmarshal(peeker["type"], &typ); err != nil {
		return "", fmt.Errorf("can't peek: %w", err)
	}
	log.Debugf("type: %s", typ)

	return typ, nil
}
