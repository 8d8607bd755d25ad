// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfcheck/tfcheck/internal/document"
)

// stubResolver satisfies VersionResolver with canned answers keyed by source.
type stubResolver struct {
	ok     map[string]bool
	latest string
	err    error
}

func (s *stubResolver) Satisfiable(_ context.Context, source string, _ string) (bool, string, error) {
	if s.err != nil {
		return false, "", s.err
	}
	return s.ok[source], s.latest, nil
}

func loadFixture(t *testing.T, files map[string]string) *document.Document {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	doc, err := document.Load(dir)
	require.NoError(t, err)
	return doc
}

const goodTF = `terraform {
  backend "gcs" {
    bucket = "postspot-terraform-state"
    prefix = "post-service"
  }

  required_providers {
    google = {
      source  = "hashicorp/google"
      version = "~> 4.84.0"
    }
  }
}

provider "google" {
  project = var.gcp_project_id
  region  = var.gcp_region
}

variable "gcp_project_id" {
  type = string
}

variable "gcp_region" {
  type    = string
  default = "europe-central2"
}
`

func TestCheckParse(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		doc := loadFixture(t, map[string]string{"main.tf": goodTF})
		r := CheckParse(doc)
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("broken", func(t *testing.T) {
		doc := loadFixture(t, map[string]string{
			"main.tf": goodTF,
			"bad.tf":  `variable "x" {`,
		})
		r := CheckParse(doc)
		assert.Equal(t, StatusFail, r.Status)
		assert.NotEmpty(t, r.Detail)
	})
}

func TestCheckBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend *document.Backend
		status  Status
		detail  string
	}{
		{
			name:    "missing",
			backend: nil,
			status:  StatusFail,
			detail:  "no backend block declared",
		},
		{
			name:    "gcs_ok",
			backend: &document.Backend{Type: "gcs", Bucket: "postspot-terraform-state", Prefix: "post-service"},
			status:  StatusPass,
		},
		{
			name:    "gcs_no_prefix_ok",
			backend: &document.Backend{Type: "gcs", Bucket: "postspot-terraform-state"},
			status:  StatusPass,
		},
		{
			name:    "unsupported_type",
			backend: &document.Backend{Type: "consul"},
			status:  StatusFail,
			detail:  `backend type "consul" is not supported`,
		},
		{
			name:    "cloud_block",
			backend: &document.Backend{Type: "cloud"},
			status:  StatusFail,
			detail:  `backend type "cloud" is not supported`,
		},
		{
			name:    "missing_bucket",
			backend: &document.Backend{Type: "gcs", Prefix: "post-service"},
			status:  StatusFail,
			detail:  "bucket is required",
		},
		{
			name:    "bad_bucket_name",
			backend: &document.Backend{Type: "gcs", Bucket: "Bad_Bucket!"},
			status:  StatusFail,
			detail:  `bucket "Bad_Bucket!" is not a valid bucket name`,
		},
		{
			name:    "absolute_prefix",
			backend: &document.Backend{Type: "gcs", Bucket: "ok-bucket", Prefix: "/abs"},
			status:  StatusFail,
			detail:  `prefix "/abs" must not start with '/'`,
		},
		{
			name:    "empty_segment_prefix",
			backend: &document.Backend{Type: "gcs", Bucket: "ok-bucket", Prefix: "a//b"},
			status:  StatusFail,
			detail:  `prefix "a//b" must not contain empty segments`,
		},
		{
			name:    "parent_escape_prefix",
			backend: &document.Backend{Type: "gcs", Bucket: "ok-bucket", Prefix: "a/../b"},
			status:  StatusFail,
			detail:  `prefix "a/../b" must not contain '..'`,
		},
		{
			name:    "s3_missing_key",
			backend: &document.Backend{Type: "s3", Bucket: "acme-state"},
			status:  StatusFail,
			detail:  "key is required",
		},
		{
			name:    "s3_ok",
			backend: &document.Backend{Type: "s3", Bucket: "acme-state", Key: "net/terraform.tfstate"},
			status:  StatusPass,
		},
		{
			name:    "local_ok",
			backend: &document.Backend{Type: "local", Path: "terraform.tfstate"},
			status:  StatusPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &document.Document{RootDir: "env/" + tt.name, Backend: tt.backend}
			r := CheckBackend(doc)
			assert.Equal(t, tt.status, r.Status)
			if tt.detail != "" {
				assert.Contains(t, r.Detail, tt.detail)
			}
		})
	}
}

func TestCheckVars(t *testing.T) {
	t.Run("all_declared", func(t *testing.T) {
		doc := loadFixture(t, map[string]string{"main.tf": goodTF})
		r := CheckVars(doc)
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("undeclared", func(t *testing.T) {
		doc := loadFixture(t, map[string]string{
			"main.tf": `provider "google" {
  project = var.gcp_project_id
}
`,
		})
		r := CheckVars(doc)
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Detail, "var.gcp_project_id referenced at")
		assert.Contains(t, r.Detail, "never declared")
	})
}

func TestCheckProviders(t *testing.T) {
	doc := loadFixture(t, map[string]string{"main.tf": goodTF})

	t.Run("no_requirements", func(t *testing.T) {
		empty := loadFixture(t, map[string]string{
			"main.tf": `variable "x" {}`,
		})
		r := CheckProviders(context.Background(), empty, nil)
		assert.Equal(t, StatusSkip, r.Status)
	})

	t.Run("offline", func(t *testing.T) {
		r := CheckProviders(context.Background(), doc, nil)
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("satisfiable", func(t *testing.T) {
		resolver := &stubResolver{ok: map[string]bool{"hashicorp/google": true}}
		r := CheckProviders(context.Background(), doc, resolver)
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("unsatisfiable", func(t *testing.T) {
		resolver := &stubResolver{ok: map[string]bool{}, latest: "5.0.0"}
		r := CheckProviders(context.Background(), doc, resolver)
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Detail, `no published release satisfies "~> 4.84.0"`)
		assert.Contains(t, r.Detail, "latest is 5.0.0")
	})

	t.Run("registry_error", func(t *testing.T) {
		resolver := &stubResolver{err: fmt.Errorf("connection refused")}
		r := CheckProviders(context.Background(), doc, resolver)
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Detail, "registry lookup failed")
	})

	t.Run("bad_constraint", func(t *testing.T) {
		badDoc := loadFixture(t, map[string]string{
			"main.tf": `terraform {
  required_providers {
    google = {
      source  = "hashicorp/google"
      version = "not-a-constraint"
    }
  }
}
`,
		})
		r := CheckProviders(context.Background(), badDoc, nil)
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Detail, "does not parse")
	})

	t.Run("bad_source", func(t *testing.T) {
		badDoc := loadFixture(t, map[string]string{
			"main.tf": `terraform {
  required_providers {
    google = {
      source = "a/b/c/d"
    }
  }
}
`,
		})
		r := CheckProviders(context.Background(), badDoc, nil)
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Detail, "too many segments")
	})
}

func TestCheckIsolation(t *testing.T) {
	gcs := func(root, bucket, prefix string) *document.Document {
		return &document.Document{
			RootDir: root,
			Backend: &document.Backend{Type: "gcs", Bucket: bucket, Prefix: prefix},
		}
	}

	t.Run("isolated", func(t *testing.T) {
		r := CheckIsolation([]*document.Document{
			gcs("envs/dev", "postspot-terraform-state", "dev/post-service"),
			gcs("envs/prod", "postspot-terraform-state", "prod/post-service"),
		})
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("collision", func(t *testing.T) {
		r := CheckIsolation([]*document.Document{
			gcs("envs/dev", "postspot-terraform-state", "post-service"),
			gcs("envs/prod", "postspot-terraform-state", "post-service"),
		})
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Detail, "envs/dev and envs/prod share state location")
		assert.Contains(t, r.Detail, "gcs://postspot-terraform-state/post-service")
	})

	t.Run("different_backend_kinds_do_not_collide", func(t *testing.T) {
		r := CheckIsolation([]*document.Document{
			gcs("envs/dev", "shared", "svc"),
			{
				RootDir: "envs/prod",
				Backend: &document.Backend{Type: "s3", Bucket: "shared", Prefix: "svc", Key: "k"},
			},
		})
		assert.Equal(t, StatusPass, r.Status)
	})

	local := func(root, path string) *document.Document {
		return &document.Document{
			RootDir: root,
			Backend: &document.Backend{Type: "local", Path: path},
		}
	}

	t.Run("pathless_local_backends_are_isolated", func(t *testing.T) {
		// A bare `backend "local" {}` means <rootdir>/terraform.tfstate, so
		// two root dirs are two locations.
		r := CheckIsolation([]*document.Document{
			local("envs/dev", ""),
			local("envs/prod", ""),
		})
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("same_relative_local_path_is_isolated", func(t *testing.T) {
		r := CheckIsolation([]*document.Document{
			local("envs/dev", "state/terraform.tfstate"),
			local("envs/prod", "state/terraform.tfstate"),
		})
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("same_absolute_local_path_collides", func(t *testing.T) {
		r := CheckIsolation([]*document.Document{
			local("envs/dev", "/shared/terraform.tfstate"),
			local("envs/prod", "/shared/terraform.tfstate"),
		})
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Detail, "local:///shared/terraform.tfstate")
	})
}

func TestStateLocation(t *testing.T) {
	doc := &document.Document{RootDir: "/work/envs/dev"}

	doc.Backend = &document.Backend{Type: "gcs", Bucket: "b", Prefix: "p"}
	assert.Equal(t, "gcs://b/p", StateLocation(doc))

	doc.Backend = &document.Backend{Type: "s3", Bucket: "b", Prefix: "p", Key: "k"}
	assert.Equal(t, "s3://b/p/k", StateLocation(doc))

	doc.Backend = &document.Backend{Type: "local"}
	assert.Equal(t, "local:///work/envs/dev/terraform.tfstate", StateLocation(doc))

	doc.Backend = &document.Backend{Type: "local", Path: "state/terraform.tfstate"}
	assert.Equal(t, "local:///work/envs/dev/state/terraform.tfstate", StateLocation(doc))

	doc.Backend = &document.Backend{Type: "local", Path: "/shared/terraform.tfstate"}
	assert.Equal(t, "local:///shared/terraform.tfstate", StateLocation(doc))
}

func TestRun(t *testing.T) {
	doc := loadFixture(t, map[string]string{"main.tf": goodTF})

	results := Run(context.Background(), []*document.Document{doc}, nil)
	require.Len(t, results, 4)
	assert.False(t, Failed(results))

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"parse", "backend", "vars", "providers"}, names)

	// A second root triggers the isolation check and, with the same
	// bucket+prefix, a failure.
	results = Run(context.Background(), []*document.Document{doc, doc}, nil)
	require.Len(t, results, 9)
	assert.Equal(t, "isolation", results[8].Name)
	assert.True(t, Failed(results))
}
