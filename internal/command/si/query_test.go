// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package si

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() map[string]interface{} {
	return map[string]interface{}{
		"version":           float64(4),
		"terraform_version": "1.5.7",
		"outputs": map[string]interface{}{
			"bucket_name": map[string]interface{}{
				"value": "postspot-terraform-state",
				"type":  "string",
			},
		},
		"resources": []interface{}{
			map[string]interface{}{
				"mode": "managed",
				"type": "google_storage_bucket",
				"name": "state",
				"instances": []interface{}{
					map[string]interface{}{
						"attributes": map[string]interface{}{
							"name":     "postspot-terraform-state",
							"location": "US-EAST1",
						},
					},
				},
			},
			map[string]interface{}{
				"module": "module.services",
				"mode":   "managed",
				"type":   "google_cloud_run_service",
				"name":   "api",
				"instances": []interface{}{
					map[string]interface{}{
						"index_key": float64(0),
						"attributes": map[string]interface{}{
							"name": "api-0",
						},
					},
					map[string]interface{}{
						"index_key": float64(1),
						"attributes": map[string]interface{}{
							"name": "api-1",
						},
					},
				},
			},
			map[string]interface{}{
				"mode": "data",
				"type": "google_project",
				"name": "current",
				"instances": []interface{}{
					map[string]interface{}{
						"attributes": map[string]interface{}{
							"number": "123456789",
						},
					},
				},
			},
		},
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  ParsedQuery
	}{
		{
			name:  "type_only",
			query: "google_storage_bucket",
			want:  ParsedQuery{Mode: "managed", Type: "google_storage_bucket"},
		},
		{
			name:  "type_and_name",
			query: "google_storage_bucket.state",
			want:  ParsedQuery{Mode: "managed", Type: "google_storage_bucket", Name: "state"},
		},
		{
			name:  "module_path",
			query: "module.services.google_cloud_run_service.api",
			want: ParsedQuery{
				Module: []string{"services"},
				Mode:   "managed",
				Type:   "google_cloud_run_service",
				Name:   "api",
			},
		},
		{
			name:  "data_mode",
			query: "data.google_project.current",
			want:  ParsedQuery{Mode: "data", Type: "google_project", Name: "current"},
		},
		{
			name:  "numeric_index",
			query: "google_cloud_run_service.api[1]",
			want: ParsedQuery{
				Mode:  "managed",
				Type:  "google_cloud_run_service",
				Name:  "api",
				Index: 1,
			},
		},
		{
			name:  "string_index",
			query: `google_storage_bucket.state["primary"]`,
			want: ParsedQuery{
				Mode:  "managed",
				Type:  "google_storage_bucket",
				Name:  "state",
				Index: "primary",
			},
		},
		{
			name:  "attribute",
			query: "google_storage_bucket.state.location",
			want: ParsedQuery{
				Mode:      "managed",
				Type:      "google_storage_bucket",
				Name:      "state",
				Attribute: "location",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseQueryErrors(t *testing.T) {
	_, err := ParseQuery("module")
	assert.Error(t, err)

	_, err = ParseQuery("a.b.c.d.e")
	assert.Error(t, err)
}

func TestSmartSplit(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, smartSplit("a.b.c", "."))
	assert.Equal(t, []string{`x["a.b"]`, "id"}, smartSplit(`x["a.b"].id`, "."))
}

func TestParseIndex(t *testing.T) {
	assert.Equal(t, 3, parseIndex("3"))
	assert.Equal(t, "primary", parseIndex(`"primary"`))
	assert.Equal(t, "primary", parseIndex("primary"))
}

func TestFindMatchingResourcesByType(t *testing.T) {
	parsed, err := ParseQuery("google_storage_bucket")
	require.NoError(t, err)

	matches := FindMatchingResources(sampleState(), parsed)
	require.Len(t, matches, 1)
	assert.Equal(t, "state", matches[0]["name"])
}

func TestFindMatchingResourcesModuleScoped(t *testing.T) {
	parsed, err := ParseQuery("module.services.google_cloud_run_service")
	require.NoError(t, err)

	matches := FindMatchingResources(sampleState(), parsed)
	assert.Len(t, matches, 2)
}

func TestFindMatchingResourcesIndexed(t *testing.T) {
	parsed, err := ParseQuery("module.services.google_cloud_run_service.api[1]")
	require.NoError(t, err)

	matches := FindMatchingResources(sampleState(), parsed)
	require.Len(t, matches, 1)

	attrs, ok := matches[0]["attributes"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "api-1", attrs["name"])
}

func TestFindMatchingResourcesDataMode(t *testing.T) {
	parsed, err := ParseQuery("data.google_project")
	require.NoError(t, err)

	matches := FindMatchingResources(sampleState(), parsed)
	require.Len(t, matches, 1)
	assert.Equal(t, "current", matches[0]["name"])
}

func TestFindMatchingResourcesRootOnly(t *testing.T) {
	// Without a module path, module-scoped resources must not match.
	parsed, err := ParseQuery("google_cloud_run_service")
	require.NoError(t, err)

	matches := FindMatchingResources(sampleState(), parsed)
	assert.Empty(t, matches)
}

func TestExtractAttributeFlattened(t *testing.T) {
	parsed, err := ParseQuery("google_storage_bucket.state.location")
	require.NoError(t, err)

	matches := FindMatchingResources(sampleState(), parsed)
	require.Len(t, matches, 1)

	assert.Equal(t, "US-EAST1", ExtractAttribute(matches[0], parsed))
}

func TestBuildResourceAddress(t *testing.T) {
	addr := buildResourceAddress(map[string]interface{}{
		"module":    "module.services",
		"mode":      "managed",
		"type":      "google_cloud_run_service",
		"name":      "api",
		"index_key": float64(1),
	})
	assert.Equal(t, "module.services.google_cloud_run_service.api[1]", addr)

	addr = buildResourceAddress(map[string]interface{}{
		"mode": "data",
		"type": "google_project",
		"name": "current",
	})
	assert.Equal(t, "data.google_project.current", addr)

	addr = buildResourceAddress(map[string]interface{}{
		"mode":      "managed",
		"type":      "google_storage_bucket",
		"name":      "state",
		"index_key": "primary",
	})
	assert.Equal(t, `google_storage_bucket.state["primary"]`, addr)
}

func TestHandleSpecialQueries(t *testing.T) {
	state := sampleState()

	assert.Equal(t, "1.5.7", handleSpecialQueries(state, "terraform_version"))
	assert.Equal(t, float64(4), handleSpecialQueries(state, "version"))
	assert.Equal(t, "postspot-terraform-state", handleSpecialQueries(state, "outputs.bucket_name"))
	assert.Equal(t, "output 'missing' not found", handleSpecialQueries(state, "outputs.missing"))
	assert.Nil(t, handleSpecialQueries(state, "google_storage_bucket"))
}

func TestHasBalancedParens(t *testing.T) {
	assert.True(t, hasBalancedParens(`length("hello")`))
	assert.False(t, hasBalancedParens("google_storage_bucket.state"))
	assert.False(t, hasBalancedParens("broken(paren"))
}

func TestMatchesIndexNoKey(t *testing.T) {
	inst := map[string]interface{}{}
	assert.True(t, matchesIndex(inst, 0))
	assert.True(t, matchesIndex(inst, "0"))
	assert.False(t, matchesIndex(inst, 1))
}

func TestFormatAttributeValue(t *testing.T) {
	assert.Equal(t, "plain", formatAttributeValue("plain"))
	assert.Equal(t, "null", formatAttributeValue(nil))
	assert.Equal(t, `["a","b"]`, formatAttributeValue([]string{"a", "b"}))
}
