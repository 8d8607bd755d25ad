// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/config"
	"github.com/tfcheck/tfcheck/internal/document"
	"github.com/tfcheck/tfcheck/internal/log"
	"github.com/tfcheck/tfcheck/internal/meta"
)

// NewPqCommand builds the pq (provider query) command, which lists required
// providers with their source addresses and constraints. Unless --offline is
// set, each constraint is checked against the provider registry and the
// latest published version is reported alongside.
func NewPqCommand(m meta.Meta, cfgFile string) *cli.Command {
	qcb := QueryCommandBuilder{
		Name:      "pq",
		Usage:     "Provider query",
		UsageText: "tfcheck pq rootdir [options]",
		Flags: []cli.Flag{
			NewHostFlag("pq", cfgFile),
			offlineFlag,
		},
		Action: pqCommandAction,
		Meta:   m,
	}

	return qcb.Build()
}

func pqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "pq") {
		return nil
	}

	config.Config.Namespace = "pq"

	doc, err := document.Load(m.RootDir)
	if err != nil {
		return err
	}

	defaults := []string{".name", ".source", ".constraint"}

	var rs resolverFn
	if !cmd.Bool("offline") {
		client := NewRegistryClient(cmd)
		rs = func(req document.ProviderRequirement) (bool, string, error) {
			source := req.Source
			if source == "" {
				source = req.LocalName
			}
			return client.Satisfiable(ctx, source, req.Constraint)
		}
		defaults = append(defaults, ".latest", ".satisfiable")
	}

	al := BuildAttrs(cmd, defaults...)
	log.Debugf("attrs: %v", al)

	return EmitRows(providerRows(doc, rs), al, cmd)
}
