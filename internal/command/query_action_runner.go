// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"

	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/attrs"
	"github.com/tfcheck/tfcheck/internal/log"
)

// QueryActionRunner[T] encapsulates the query action pattern shared by the
// query subcommands: meta retrieval, --tldr/--schema short-circuits,
// attribute building, data fetching and emission. FetchFn supplies the data;
// EmitFn renders it (EmitJSONAPISlice for jsonapi-tagged DTOs, EmitRows for
// plain rows via a wrapper).
type QueryActionRunner[T any] struct {
	CommandName  string
	SchemaType   reflect.Type
	DefaultAttrs []string
	FetchFn      func(context.Context, *cli.Command) ([]T, error)
	EmitFn       func([]T, attrs.AttrList, *cli.Command) error
}

// Run executes the query action with the provided context and command.
func (qar *QueryActionRunner[T]) Run(
	ctx context.Context,
	cmd *cli.Command,
) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, qar.CommandName) {
		return nil
	}
	if qar.SchemaType != nil && DumpSchemaIfRequested(cmd, qar.SchemaType) {
		return nil
	}

	attrList := BuildAttrs(cmd, qar.DefaultAttrs...)
	log.Debugf("attrs: %v", attrList)

	results, err := qar.FetchFn(ctx, cmd)
	if err != nil {
		return err
	}

	return qar.EmitFn(results, attrList, cmd)
}

// NewQueryActionRunner creates a QueryActionRunner with the provided
// configuration.
func NewQueryActionRunner[T any](
	commandName string,
	schemaType reflect.Type,
	defaultAttrs []string,
	fetchFn func(context.Context, *cli.Command) ([]T, error),
	emitFn func([]T, attrs.AttrList, *cli.Command) error,
) *QueryActionRunner[T] {
	return &QueryActionRunner[T]{
		CommandName:  commandName,
		SchemaType:   schemaType,
		DefaultAttrs: defaultAttrs,
		FetchFn:      fetchFn,
		EmitFn:       emitFn,
	}
}
