// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package command wires the tfcheck CLI: the query subcommands over
// configuration documents and their state stores, the contract check runner,
// and the shared flag/output plumbing.
package command
