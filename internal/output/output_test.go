// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/attrs"
)

func TestSortDataset(t *testing.T) {
	testData := []map[string]interface{}{
		{"workspace": "staging", "serial": 3.0, "bucket": "postspot-terraform-state"},
		{"workspace": "default", "serial": 1.0, "bucket": "postspot-terraform-state"},
		{"workspace": "prod", "serial": 2.0, "bucket": "acme-state"},
	}

	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{
			name:      "ascending_by_workspace",
			spec:      "workspace",
			wantOrder: []string{"default", "prod", "staging"},
		},
		{
			name:      "descending_by_workspace",
			spec:      "-workspace",
			wantOrder: []string{"staging", "prod", "default"},
		},
		{
			name:      "numeric_ascending",
			spec:      "serial",
			wantOrder: []string{"default", "prod", "staging"},
		},
		{
			name:      "numeric_descending",
			spec:      "-serial",
			wantOrder: []string{"staging", "prod", "default"},
		},
		{
			name:      "case_sensitive",
			spec:      "!workspace",
			wantOrder: []string{"default", "prod", "staging"},
		},
		{
			name:      "multiple_fields",
			spec:      "bucket,serial",
			wantOrder: []string{"prod", "default", "staging"},
		},
		{
			name:      "empty_spec_is_stable",
			spec:      "",
			wantOrder: []string{"staging", "default", "prod"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]map[string]interface{}, len(testData))
			copy(data, testData)
			SortDataset(data, tt.spec)
			for i, want := range tt.wantOrder {
				assert.Equal(t, want, data[i]["workspace"], "at index %d", i)
			}
		})
	}
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "float_truncates", value: 42.5, want: "42"},
		{name: "float_rounds_up", value: 42.7, want: "43"},
		{name: "bool_true", value: true, want: "true"},
		{name: "bool_false_is_zero", value: false, want: ""},
		{name: "nil_default", value: nil, want: ""},
		{name: "nil_custom", value: nil, emptyVal: "-", want: "-"},
		{name: "slice", value: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", value: map[string]int{"x": 1}, want: `{"x":1}`},
		{name: "zero_int", value: 0, want: ""},
		{name: "zero_custom", value: 0, emptyVal: "N/A", want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTag(t *testing.T) {
	tests := []struct {
		name string
		h    string
		s    string
		want schemaTag
	}{
		{
			name: "simple_attr",
			s:    "attr,name",
			want: schemaTag{Kind: "attr", Name: "name"},
		},
		{
			name: "with_holder",
			h:    "resource",
			s:    "attr,name",
			want: schemaTag{Kind: "attr", Name: "resource.name"},
		},
		{
			name: "with_encoding",
			s:    "attr,created-at,iso8601",
			want: schemaTag{Kind: "attr", Name: "created-at", Encoding: "iso8601"},
		},
		{
			name: "relation_kind_ignored",
			s:    "relation,workspace",
			want: schemaTag{},
		},
		{
			name: "empty_string",
			s:    "",
			want: schemaTag{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewTag(tt.h, tt.s))
		})
	}
}

func TestDumpSchema(t *testing.T) {
	type version struct {
		Serial    int    `jsonapi:"attr,serial"`
		CreatedAt string `jsonapi:"attr,created-at,iso8601"`
		Internal  string
	}

	var buf bytes.Buffer
	DumpSchema("", reflect.TypeOf(version{}), &buf)

	out := buf.String()
	assert.Contains(t, out, "created-at")
	assert.Contains(t, out, "serial")
	assert.NotContains(t, out, "Internal")
}

func TestFlattenState(t *testing.T) {
	stateResources := gjson.Parse(`[
		{
			"type": "google_cloud_run_service",
			"name": "post_service",
			"mode": "managed",
			"module": "module.services",
			"instances": [
				{"attributes": {"location": "europe-central2"}}
			]
		},
		{
			"type": "google_storage_bucket",
			"name": "assets",
			"mode": "managed",
			"index_key": 0,
			"instances": [
				{"attributes": {"name": "postspot-assets"}},
				{"attributes": {"name": "postspot-assets-replica"}}
			]
		},
		{
			"type": "google_project",
			"name": "current",
			"mode": "data",
			"instances": [
				{"attributes": {}}
			]
		}
	]`)

	raw := flattenState(stateResources, true)
	rows := gjson.Parse(raw.String()).Array()
	require.Len(t, rows, 4)

	// One row per instance, addressed like terraform does.
	assert.Equal(t, "module.services.google_cloud_run_service.post_service", rows[0].Get("resource").String())
	assert.Equal(t, "google_storage_bucket.assets[0]", rows[1].Get("resource").String())
	assert.Equal(t, "google_storage_bucket.assets[0]", rows[2].Get("resource").String())
	assert.Equal(t, "data.google_project.current", rows[3].Get("resource").String())

	// Instance attributes are hoisted onto the row.
	assert.Equal(t, "europe-central2", rows[0].Get("attributes.location").String())

	// Long form replaces module markers.
	raw = flattenState(stateResources, false)
	rows = gjson.Parse(raw.String()).Array()
	assert.Equal(t, "+services.google_cloud_run_service.post_service", rows[0].Get("resource").String())
}

func TestFlattenStateStringIndex(t *testing.T) {
	resources := gjson.Parse(`[
		{
			"type": "google_storage_bucket_iam_member",
			"name": "readers",
			"mode": "managed",
			"index_key": "ci",
			"instances": [{"attributes": {}}]
		}
	]`)

	raw := flattenState(resources, true)
	rows := gjson.Parse(raw.String()).Array()
	require.Len(t, rows, 1)
	assert.Equal(t, `google_storage_bucket_iam_member.readers["ci"]`, rows[0].Get("resource").String())
}

func TestGetCommonFields(t *testing.T) {
	resource := gjson.Parse(`{
		"type": "google_storage_bucket",
		"name": "state",
		"mode": "managed",
		"instances": [{"attributes": {}}]
	}`)

	common := getCommonFields(resource)
	assert.Equal(t, "google_storage_bucket", common["type"])
	assert.Equal(t, "state", common["name"])
	assert.NotContains(t, common, "instances")
}

func TestTableWriter(t *testing.T) {
	attrList := attrs.AttrList{
		{Key: "attributes.workspace", OutputKey: "workspace", Include: true},
		{Key: "attributes.serial", OutputKey: "serial", Include: true},
		{Key: "attributes.secret", OutputKey: "secret", Include: false},
	}

	cmd := &cli.Command{
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "color"},
			&cli.BoolFlag{Name: "titles", Value: true},
			&cli.IntFlag{Name: "padding", Value: 2},
		},
		Metadata: map[string]interface{}{
			"header": "workspaces",
		},
	}

	var buf bytes.Buffer
	TableWriter([]map[string]interface{}{
		{"workspace": "default", "serial": 7.0, "secret": "hidden"},
		{"workspace": "prod", "serial": 3.0, "secret": "hidden"},
	}, attrList, cmd, &buf)

	out := buf.String()
	assert.Contains(t, out, "workspaces")
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "prod")
	assert.NotContains(t, out, "hidden")
}

func TestTableWriterEmptyResultSet(t *testing.T) {
	var buf bytes.Buffer
	TableWriter(nil, attrs.AttrList{}, &cli.Command{}, &buf)
	assert.Empty(t, buf.String())
}

func TestSliceDiceSpitRaw(t *testing.T) {
	cmd := &cli.Command{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Value: "raw"},
		},
	}

	var buf bytes.Buffer
	raw := *bytes.NewBufferString(`{"anything": "goes"}`)
	SliceDiceSpit(raw, attrs.AttrList{}, cmd, "", &buf, nil)

	assert.Equal(t, `{"anything": "goes"}`, buf.String())
}

func TestSliceDiceSpitJSON(t *testing.T) {
	var attrList attrs.AttrList
	require.NoError(t, attrList.Set(".workspace,.serial"))

	cmd := &cli.Command{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Value: "json"},
			&cli.StringFlag{Name: "filter"},
			&cli.StringFlag{Name: "sort", Value: "workspace"},
			&cli.BoolFlag{Name: "short"},
			&cli.BoolFlag{Name: "local"},
		},
	}

	var buf bytes.Buffer
	raw := *bytes.NewBufferString(`[
		{"workspace": "prod", "serial": 3},
		{"workspace": "default", "serial": 7}
	]`)
	SliceDiceSpit(raw, attrList, cmd, "", &buf, nil)

	rows := gjson.Parse(buf.String()).Array()
	require.Len(t, rows, 2)
	assert.Equal(t, "default", rows[0].Get("workspace").String())
	assert.Equal(t, "prod", rows[1].Get("workspace").String())
}
