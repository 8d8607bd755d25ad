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

// NewVqCommand builds the vq (variable query) command, which lists declared
// variables with their defaults and reference counts, plus any references to
// variables that were never declared.
func NewVqCommand(m meta.Meta) *cli.Command {
	qcb := QueryCommandBuilder{
		Name:      "vq",
		Usage:     "Variable query",
		UsageText: "tfcheck vq rootdir [options]",
		Action:    vqCommandAction,
		Meta:      m,
	}

	return qcb.Build()
}

func vqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "vq") {
		return nil
	}

	config.Config.Namespace = "vq"

	doc, err := document.Load(m.RootDir)
	if err != nil {
		return err
	}

	al := BuildAttrs(cmd, ".name", ".declared", ".default", ".refs")
	log.Debugf("attrs: %v", al)

	return EmitRows(variableRows(doc), al, cmd)
}
