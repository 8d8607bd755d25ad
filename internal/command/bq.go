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

// NewBqCommand builds the bq (backend query) command, which renders the
// declared state backend as a single row. With --live the designated store is
// contacted instead and one row per discovered workspace is returned.
func NewBqCommand(m meta.Meta) *cli.Command {
	qcb := QueryCommandBuilder{
		Name:      "bq",
		Usage:     "Backend query",
		UsageText: "tfcheck bq rootdir [options]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "live",
				Usage:       "list workspaces found in the designated store",
				HideDefault: true,
			},
			workspaceFlag,
		},
		Action: bqCommandAction,
		Meta:   m,
	}

	return qcb.Build()
}

func bqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "bq") {
		return nil
	}

	config.Config.Namespace = "bq"

	if cmd.Bool("live") {
		return bqLive(ctx, cmd)
	}

	doc, err := document.Load(m.RootDir)
	if err != nil {
		return err
	}

	al := BuildAttrs(cmd, ".type", ".bucket", ".prefix", ".location")
	log.Debugf("attrs: %v", al)

	return EmitRows(backendRows(doc), al, cmd)
}

// bqLive resolves the backend and lists the workspaces it holds.
func bqLive(ctx context.Context, cmd *cli.Command) error {
	be, err := InitBackendQuery(ctx, cmd)
	if err != nil {
		return err
	}

	workspaces, err := be.Workspaces()
	if err != nil {
		return err
	}

	var rows []Row
	for _, ws := range workspaces {
		rows = append(rows, Row{
			"workspace": ws,
			"location":  be.String(),
		})
	}

	al := BuildAttrs(cmd, ".workspace", ".location")
	return EmitRows(rows, al, cmd)
}
