// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"

	tfe "github.com/hashicorp/go-tfe"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/attrs"
	"github.com/tfcheck/tfcheck/internal/config"
	"github.com/tfcheck/tfcheck/internal/meta"
)

// NewSvqCommand builds the svq (state version query) command, which lists the
// state versions held in the designated store, newest first.
func NewSvqCommand(m meta.Meta) *cli.Command {
	runner := NewQueryActionRunner(
		"svq",
		reflect.TypeOf(tfe.StateVersion{}),
		[]string{".id", "serial", "created-at"},
		fetchStateVersions,
		func(results []*tfe.StateVersion, al attrs.AttrList, cmd *cli.Command) error {
			return EmitJSONAPISlice(results, al, cmd)
		},
	)

	qcb := QueryCommandBuilder{
		Name:      "svq",
		Usage:     "State version query",
		UsageText: "tfcheck svq rootdir [options]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "limit state versions returned",
				Value:   99999,
			},
			workspaceFlag,
		},
		Action: runner.Run,
		Meta:   m,
	}

	return qcb.Build()
}

func fetchStateVersions(ctx context.Context, cmd *cli.Command) ([]*tfe.StateVersion, error) {
	config.Config.Namespace = "svq"

	be, err := InitBackendQuery(ctx, cmd)
	if err != nil {
		return nil, err
	}

	versions, err := be.StateVersions()
	if err != nil {
		return nil, err
	}

	limit := cmd.Int("limit")
	if limit > 0 && limit < len(versions) {
		versions = versions[:limit]
	}

	return versions, nil
}
