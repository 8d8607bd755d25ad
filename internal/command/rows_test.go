// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfcheck/tfcheck/internal/contract"
	"github.com/tfcheck/tfcheck/internal/document"
)

func writeTF(t *testing.T, dir string, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "main.tf"), []byte(content), 0o644)
	require.NoError(t, err)
}

func sampleDocument() *document.Document {
	return &document.Document{
		RootDir: "/work/post-service",
		Backend: &document.Backend{
			Type:   "gcs",
			Bucket: "postspot-terraform-state",
			Prefix: "post-service",
		},
		RequiredProviders: []document.ProviderRequirement{
			{LocalName: "google", Source: "hashicorp/google", Constraint: "~> 4.84.0"},
		},
		ProviderConfigs: []document.ProviderConfig{
			{
				LocalName: "google",
				Attributes: []document.Attribute{
					{Name: "project", Value: "var.gcp_project_id", VarRefs: []string{"gcp_project_id"}},
					{Name: "region", Value: "var.gcp_region", VarRefs: []string{"gcp_region"}},
				},
			},
		},
		Variables: map[string]document.Variable{
			"gcp_project_id": {Name: "gcp_project_id", Description: "GCP project ID"},
			"gcp_region":     {Name: "gcp_region", Description: "GCP region", HasDefault: true, Default: "us-east1"},
		},
	}
}

func TestDocumentRows(t *testing.T) {
	rows := documentRows(sampleDocument())
	require.Len(t, rows, 5)

	assert.Equal(t, "backend", rows[0]["kind"])
	assert.Equal(t, "gcs", rows[0]["name"])
	assert.Equal(t, "gcs://postspot-terraform-state/post-service", rows[0]["detail"])

	assert.Equal(t, "required_provider", rows[1]["kind"])
	assert.Equal(t, "google", rows[1]["name"])
	assert.Equal(t, "hashicorp/google ~> 4.84.0", rows[1]["detail"])

	assert.Equal(t, "provider", rows[2]["kind"])
	assert.Equal(t, "google", rows[2]["name"])
	assert.Equal(t, "project=var.gcp_project_id, region=var.gcp_region", rows[2]["detail"])

	// Variables come last, sorted by name.
	assert.Equal(t, "variable", rows[3]["kind"])
	assert.Equal(t, "gcp_project_id", rows[3]["name"])
	assert.Equal(t, "gcp_region", rows[4]["name"])
}

func TestDocumentRowsAliasedProvider(t *testing.T) {
	doc := sampleDocument()
	doc.ProviderConfigs = append(doc.ProviderConfigs, document.ProviderConfig{
		LocalName: "google",
		Alias:     "dr",
	})

	rows := documentRows(doc)
	assert.Equal(t, "google.dr", rows[3]["name"])
}

func TestDocumentRowsSensitiveVariable(t *testing.T) {
	doc := sampleDocument()
	doc.Variables["db_password"] = document.Variable{
		Name:      "db_password",
		Sensitive: true,
	}

	rows := documentRows(doc)
	var found bool
	for _, row := range rows {
		if row["name"] == "db_password" {
			found = true
			assert.Equal(t, "(sensitive)", row["detail"])
		}
	}
	assert.True(t, found)
}

func TestVariableRows(t *testing.T) {
	rows := variableRows(sampleDocument())
	require.Len(t, rows, 2)

	assert.Equal(t, "gcp_project_id", rows[0]["name"])
	assert.Equal(t, true, rows[0]["declared"])
	assert.Equal(t, "", rows[0]["default"])

	assert.Equal(t, "gcp_region", rows[1]["name"])
	assert.Equal(t, "us-east1", rows[1]["default"])
}

func TestVariableRowsUndeclared(t *testing.T) {
	dir := t.TempDir()
	writeTF(t, dir, `
variable "gcp_project_id" {}

provider "google" {
  project = var.gcp_project_id
  region  = var.gcp_region
}
`)

	doc, err := document.Load(dir)
	require.NoError(t, err)

	rows := variableRows(doc)
	require.Len(t, rows, 2)

	assert.Equal(t, "gcp_project_id", rows[0]["name"])
	assert.Equal(t, true, rows[0]["declared"])
	assert.Equal(t, 1, rows[0]["refs"])

	assert.Equal(t, "gcp_region", rows[1]["name"])
	assert.Equal(t, false, rows[1]["declared"])
	assert.Equal(t, 1, rows[1]["refs"])
	assert.Contains(t, rows[1]["description"], "referenced at")
}

func TestProviderRowsOffline(t *testing.T) {
	rows := providerRows(sampleDocument(), nil)
	require.Len(t, rows, 1)

	assert.Equal(t, "google", rows[0]["name"])
	assert.Equal(t, "hashicorp/google", rows[0]["source"])
	assert.Equal(t, "~> 4.84.0", rows[0]["constraint"])
	assert.NotContains(t, rows[0], "latest")
}

func TestProviderRowsResolved(t *testing.T) {
	rs := func(req document.ProviderRequirement) (bool, string, error) {
		return true, "4.84.2", nil
	}

	rows := providerRows(sampleDocument(), rs)
	require.Len(t, rows, 1)
	assert.Equal(t, "4.84.2", rows[0]["latest"])
	assert.Equal(t, "true", rows[0]["satisfiable"])
}

func TestProviderRowsResolverError(t *testing.T) {
	rs := func(req document.ProviderRequirement) (bool, string, error) {
		return false, "", errors.New("registry unreachable")
	}

	rows := providerRows(sampleDocument(), rs)
	require.Len(t, rows, 1)
	assert.Equal(t, "error: registry unreachable", rows[0]["satisfiable"])
}

func TestBackendRows(t *testing.T) {
	rows := backendRows(sampleDocument())
	require.Len(t, rows, 1)

	assert.Equal(t, "gcs", rows[0]["type"])
	assert.Equal(t, "postspot-terraform-state", rows[0]["bucket"])
	assert.Equal(t, "post-service", rows[0]["prefix"])
	assert.Equal(t, "gcs://postspot-terraform-state/post-service", rows[0]["location"])
}

func TestBackendRowsNoBackend(t *testing.T) {
	doc := sampleDocument()
	doc.Backend = nil
	assert.Nil(t, backendRows(doc))
}

func TestCheckRows(t *testing.T) {
	results := []contract.Result{
		{RootDir: "/work/a", Name: "parse", Status: contract.StatusPass},
		{RootDir: "/work/a", Name: "vars", Status: contract.StatusFail, Detail: "var.x never declared"},
	}

	rows := checkRows(results)
	require.Len(t, rows, 2)

	assert.Equal(t, "parse", rows[0]["check"])
	assert.Equal(t, "pass", rows[0]["status"])
	assert.Equal(t, "vars", rows[1]["check"])
	assert.Equal(t, "fail", rows[1]["status"])
	assert.Equal(t, "var.x never declared", rows[1]["detail"])
}

func TestBackendRowsLocalLocation(t *testing.T) {
	// The rendered location must match the key the isolation check compares,
	// so a pathless local backend resolves against the root directory.
	doc := &document.Document{
		RootDir: "/work/envs/dev",
		Backend: &document.Backend{Type: "local"},
	}

	rows := backendRows(doc)
	require.Len(t, rows, 1)
	assert.Equal(t, "local:///work/envs/dev/terraform.tfstate", rows[0]["location"])

	docRows := documentRows(doc)
	require.Len(t, docRows, 1)
	assert.Equal(t, "local:///work/envs/dev/terraform.tfstate", docRows[0]["detail"])
}
