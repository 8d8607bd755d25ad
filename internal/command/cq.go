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

// NewCqCommand builds the cq (configuration query) command, which flattens
// every contract-relevant declaration in a root module into one row per item.
func NewCqCommand(m meta.Meta) *cli.Command {
	qcb := QueryCommandBuilder{
		Name:      "cq",
		Usage:     "Configuration query",
		UsageText: "tfcheck cq rootdir [options]",
		Action:    cqCommandAction,
		Meta:      m,
	}

	return qcb.Build()
}

func cqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "cq") {
		return nil
	}

	config.Config.Namespace = "cq"

	doc, err := document.Load(m.RootDir)
	if err != nil {
		return err
	}

	al := BuildAttrs(cmd, ".kind", ".name", ".detail")
	log.Debugf("attrs: %v", al)

	return EmitRows(documentRows(doc), al, cmd)
}
