// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"reflect"

	"github.com/hashicorp/jsonapi"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/attrs"
	"github.com/tfcheck/tfcheck/internal/backend"
	"github.com/tfcheck/tfcheck/internal/log"
	"github.com/tfcheck/tfcheck/internal/meta"
	"github.com/tfcheck/tfcheck/internal/output"
	"github.com/tfcheck/tfcheck/internal/registry"
)

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// DumpSchemaIfRequested writes the attribute schema for the provided type to
// stdout when --schema is set, and returns true if it handled the request.
func DumpSchemaIfRequested(cmd *cli.Command, t reflect.Type) bool {
	if cmd.Bool("schema") {
		output.DumpSchema("", t, nil)
		return true
	}
	return false
}

// EmitJSONAPISlice marshals a slice of jsonapi-tagged structs and passes it
// to the common output routine. The row array lands under "data", with
// attributes nested per the jsonapi layout the attrs package defaults to.
func EmitJSONAPISlice(results any, al attrs.AttrList, cmd *cli.Command) error {
	var raw bytes.Buffer
	if err := jsonapi.MarshalPayload(&raw, results); err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	output.SliceDiceSpit(raw, al, cmd, "data", os.Stdout, nil)
	return nil
}

// EmitRows marshals plain result rows and passes them to the common output
// routine. Row keys are addressed with a leading '.' in attrs specs.
func EmitRows(rows []map[string]interface{}, al attrs.AttrList, cmd *cli.Command) error {
	jsonBytes, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	var raw bytes.Buffer
	raw.Write(jsonBytes)
	output.SliceDiceSpit(raw, al, cmd, "", os.Stdout, nil)
	return nil
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// InitBackendQuery resolves the state backend for commands that operate on
// the designated state store.
func InitBackendQuery(ctx context.Context, cmd *cli.Command) (backend.Backend, error) {
	be, err := backend.NewBackend(ctx, *cmd)
	if err != nil {
		return nil, err
	}
	log.Debugf("be: %v", be)
	return be, nil
}

// NewRegistryClient builds a provider registry client honoring the --host
// flag.
func NewRegistryClient(cmd *cli.Command) *registry.Client {
	host := cmd.String("host")
	if host == "" {
		host = registry.DefaultHost
	}
	return registry.New(registry.WithHost(host))
}

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr tfcheck <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "tfcheck", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}
