// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/backend"
	"github.com/tfcheck/tfcheck/internal/config"
	"github.com/tfcheck/tfcheck/internal/differ"
	"github.com/tfcheck/tfcheck/internal/log"
	"github.com/tfcheck/tfcheck/internal/meta"
	"github.com/tfcheck/tfcheck/internal/output"
	"github.com/tfcheck/tfcheck/internal/state"
)

// sqCommandAction is the action handler for the "sq" subcommand. It reads
// state from the designated store (including optional decryption), supports
// --tldr short-circuit, and emits results per common flags.
func sqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "sq") {
		return nil
	}

	config.Config.Namespace = "sq"

	// Figure out what type of Backend we're in.
	be, err := backend.NewBackend(ctx, *cmd)
	if err != nil {
		return err
	}
	log.Debugf("be: %v", be)

	// Short circuit --diff mode.
	if cmd.Bool("diff") {
		if sd, ok := be.(backend.SelfDiffer); ok {
			states, diffErr := sd.DiffStates(ctx, cmd)
			if diffErr != nil {
				log.Errorf("diff error: %v", diffErr)
				return diffErr
			}

			return differ.Diff(ctx, cmd, states)
		}
		log.Debug("Backend does not implement SelfDiffer")
	}

	attrs := BuildAttrs(cmd, "!.mode", "!.type", ".resource", "id", "name")
	log.Debugf("attrs: %v", attrs)

	var doc []byte
	doc, err = be.State()
	if err != nil {
		return err
	}

	// Encrypted state gets decrypted before slicing.
	doc, err = state.MaybeDecrypt(cmd, doc)
	if err != nil {
		return err
	}

	var raw bytes.Buffer
	raw.Write(doc)

	postProcess := func(dataset []map[string]interface{}) error {
		if cmd.Bool("chop") {
			chopPrefix(dataset)
		}

		return nil
	}

	output.SliceDiceSpit(raw, attrs, cmd, "", os.Stdout, postProcess)

	return nil
}

// NewSqCommand constructs the cli.Command for "sq", wiring metadata, flags,
// and action/validator handlers.
func NewSqCommand(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "sq",
		Usage:     "State query",
		UsageText: "tfcheck sq rootdir [options]",
		Metadata: map[string]any{
			"meta": m,
		},
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "chop",
				Usage: "chop common resource prefix from names",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "diff",
				Usage: "find difference between state versions",
				Value: false,
			},
			&cli.StringFlag{
				Name:   "diff_filter",
				Hidden: true,
				Value:  "check_results",
			},
			&cli.IntFlag{
				Name:   "limit",
				Hidden: true,
				Usage:  "limit state versions returned",
				Value:  99999,
			},
			&cli.BoolFlag{
				Name:  "short",
				Usage: "include full resource name paths",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "encrypted state passphrase",
			},
			&cli.StringFlag{
				Name:        "sv",
				Usage:       "state version to query",
				Value:       "0",
				HideDefault: true,
			},
			tldrFlag,
			workspaceFlag,
		}, NewGlobalFlags("sq")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// If --chop is set, --short must not be set.
			if cmd.Bool("chop") {
				_ = cmd.Set("short", "false")
			}

			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: sqCommandAction,
	}
}

// chopPrefix scans all dot-delimited string values in the dataset and removes
// leading segments that are identical across all entries. Starting from
// the left, it removes each segment that matches in all entries, then
// stops when it encounters a position where segments differ. Removed
// segments are replaced with "..".
func chopPrefix(dataset []map[string]interface{}) {
	if len(dataset) == 0 {
		return
	}

	type segmentedValue struct {
		entryIdx int
		segments []string
	}

	// key -> the dot-split string values holding it, with their row index.
	keyValues := make(map[string][]segmentedValue)

	for entryIdx, entry := range dataset {
		for key, val := range entry {
			if str, ok := val.(string); ok {
				segments := strings.Split(str, ".")
				keyValues[key] = append(keyValues[key], segmentedValue{entryIdx: entryIdx, segments: segments})
			}
		}
	}

	for key, values := range keyValues {
		if len(values) == 0 {
			continue
		}

		// Count leading segments shared by every value of this key.
		var commonCount int
		for segIdx := 0; ; segIdx++ {
			if segIdx >= len(values[0].segments) {
				break
			}

			expectedSeg := values[0].segments[segIdx]

			allMatch := true
			for _, val := range values {
				if segIdx >= len(val.segments) || val.segments[segIdx] != expectedSeg {
					allMatch = false
					break
				}
			}

			if !allMatch {
				break
			}

			commonCount++
		}

		// Need at least 2 common segments to be worth chopping.
		if commonCount < 2 {
			continue
		}

		// Never chop past the second-to-last segment. Ensure at least 2
		// segments remain in all values after chopping.
		minSegments := len(values[0].segments)
		for _, val := range values {
			if len(val.segments) < minSegments {
				minSegments = len(val.segments)
			}
		}
		maxChop := minSegments - 2
		if maxChop < 2 {
			continue
		}
		if commonCount > maxChop {
			commonCount = maxChop
		}

		prefixSegs := values[0].segments[:commonCount]
		prefixToRemove := strings.Join(prefixSegs, ".") + "."

		for _, val := range values {
			originalValue := strings.Join(val.segments, ".")
			if strings.HasPrefix(originalValue, prefixToRemove) {
				dataset[val.entryIdx][key] = ".." + originalValue[len(prefixToRemove):]
			}
		}
	}
}
