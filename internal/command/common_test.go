// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/meta"
)

func TestBuildAttrsDefaults(t *testing.T) {
	cmd := &cli.Command{}

	al := BuildAttrs(cmd, ".kind", ".name", "!.detail")
	require.Len(t, al, 3)

	// Leading '.' roots the key at the row rather than under attributes.
	assert.Equal(t, "kind", al[0].Key)
	assert.True(t, al[0].Include)
	assert.Equal(t, "name", al[1].Key)
	assert.Equal(t, "detail", al[2].Key)
	assert.False(t, al[2].Include)
}

func TestGetMeta(t *testing.T) {
	m := meta.Meta{Args: []string{"tfcheck", "cq"}}
	cmd := &cli.Command{
		Metadata: map[string]any{"meta": m},
	}

	got := GetMeta(cmd)
	assert.Equal(t, m.Args, got.Args)
}

func TestGetMetaMissing(t *testing.T) {
	assert.Equal(t, meta.Meta{}, GetMeta(&cli.Command{}))
	assert.Equal(t, meta.Meta{}, GetMeta(nil))
}

func TestGetMetaWrongType(t *testing.T) {
	cmd := &cli.Command{
		Metadata: map[string]any{"meta": "not a meta"},
	}
	assert.Equal(t, meta.Meta{}, GetMeta(cmd))
}

func TestOutputValidator(t *testing.T) {
	for _, v := range []string{"text", "json", "raw", "yaml"} {
		assert.NoError(t, OutputValidator(v))
	}
	assert.Error(t, OutputValidator("xml"))
	assert.Error(t, OutputValidator(""))
}

func TestQueryCommandBuilderBuild(t *testing.T) {
	qcb := QueryCommandBuilder{
		Name:  "cq",
		Usage: "Configuration query",
		Meta:  meta.Meta{RootDirSpec: meta.RootDirSpec{RootDir: "/work"}},
	}

	cmd := qcb.Build()
	assert.Equal(t, "cq", cmd.Name)

	// tldr, schema and the global flags are always present.
	names := map[string]bool{}
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"tldr", "schema", "attrs", "filter", "output", "sort", "titles"} {
		assert.True(t, names[want], "missing flag %s", want)
	}

	got := GetMeta(cmd)
	assert.Equal(t, "/work", got.RootDir)
}
