// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/config"
	"github.com/tfcheck/tfcheck/internal/meta"
	"github.com/tfcheck/tfcheck/internal/util"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {

	// Save the CWD at startup and then defer restoring it so we're tidy.
	sd, _ := os.Getwd()
	defer func() {
		if err := os.Chdir(sd); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to restore directory: %v\n", err)
		}
	}()

	// The arg[1] immediately following the binary (arg[0]) is the tfcheck
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load() //nolint
	cfg.Namespace = ns
	config.Config.Namespace = ns

	m := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}

	// See if the arg immediately following the command might be a directory.
	// This is determined by whether or not it begins with - or --. If it does,
	// it's a flag and the CWD is the starting directory. If it's not, we
	// assume we have a directory spec of some sort and need to parse it more.
	// Special-case 'completion', which takes a plain positional argument
	// ('bash' or 'zsh').
	if ns != "completion" && len(args) > 2 && !strings.HasPrefix(args[2], "-") {
		if wd, env, err := util.ParseRootDir(args[2]); err == nil {
			m.RootDir = wd
			m.Env = env
		} else {
			return nil, fmt.Errorf("failed to parse rootDir (%s): %w", args[2], err)
		}
	} else {
		m.RootDir = sd
	}

	app := &cli.Command{
		Name:  "tfcheck",
		Usage: "Terraform configuration contract checks",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "tfcheck version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		NewBqCommand(m),
		NewCkCommand(m, cfg.Source),
		NewCqCommand(m),
		NewPqCommand(m, cfg.Source),
		NewSiCommand(m),
		NewSqCommand(m),
		NewSvqCommand(m),
		NewVqCommand(m),
		NewCompletionCommand(m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
