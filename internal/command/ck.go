// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/config"
	"github.com/tfcheck/tfcheck/internal/contract"
	"github.com/tfcheck/tfcheck/internal/document"
	"github.com/tfcheck/tfcheck/internal/log"
	"github.com/tfcheck/tfcheck/internal/meta"
	"github.com/tfcheck/tfcheck/internal/registry"
	"github.com/tfcheck/tfcheck/internal/util"
)

// ErrContractFailed is returned when at least one check fails, so the process
// exits nonzero after the results have been printed.
var ErrContractFailed = errors.New("contract check failed")

// NewCkCommand builds the ck (contract check) command, which evaluates every
// check against one or more root directories. Additional root directories may
// be passed as positional arguments after the first; the cross-workspace
// isolation check runs when more than one is given.
func NewCkCommand(m meta.Meta, cfgFile string) *cli.Command {
	qcb := QueryCommandBuilder{
		Name:      "ck",
		Usage:     "Contract check",
		UsageText: "tfcheck ck rootdir [rootdir...] [options]",
		Flags: []cli.Flag{
			NewHostFlag("ck", cfgFile),
			offlineFlag,
		},
		Action: ckCommandAction,
		Meta:   m,
	}

	return qcb.Build()
}

func ckCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "ck") {
		return nil
	}

	config.Config.Namespace = "ck"

	// Every positional is a root directory spec. With none, fall back to the
	// directory already resolved into meta.
	var rootDirs []string
	for _, arg := range cmd.Args().Slice() {
		dir, _, err := util.ParseRootDir(arg)
		if err != nil {
			return err
		}
		rootDirs = append(rootDirs, dir)
	}
	if len(rootDirs) == 0 {
		rootDirs = []string{m.RootDir}
	}

	var docs []*document.Document
	for _, dir := range rootDirs {
		doc, err := document.Load(dir)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	var resolver contract.VersionResolver
	if !cmd.Bool("offline") {
		host := cmd.String("host")
		if host == "" {
			host = registry.DefaultHost
		}
		resolver = registry.New(registry.WithHost(host))
	}

	results := contract.Run(ctx, docs, resolver)

	al := BuildAttrs(cmd, ".rootdir", ".check", ".status", ".detail")
	log.Debugf("attrs: %v", al)

	if err := EmitRows(checkRows(results), al, cmd); err != nil {
		return err
	}

	if contract.Failed(results) {
		return ErrContractFailed
	}
	return nil
}
