// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleNakedCommand(t *testing.T) {
	got := handleNakedCommand([]string{"tfcheck"})
	assert.Equal(t, []string{"tfcheck", "--help"}, got)

	got = handleNakedCommand([]string{"tfcheck", "cq"})
	assert.Equal(t, []string{"tfcheck", "cq"}, got)
}

func TestProcessRootDirArgInjectsCWD(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got := processRootDirArg([]string{"tfcheck", "cq"})
	require.Len(t, got, 3)
	assert.Equal(t, cwd, got[2])
}

func TestProcessRootDirArgKeepsExplicitDir(t *testing.T) {
	dir := t.TempDir()

	got := processRootDirArg([]string{"tfcheck", "cq", dir, "--titles"})
	assert.Equal(t, []string{"tfcheck", "cq", dir, "--titles"}, got)
}

func TestProcessRootDirArgShiftsFlags(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got := processRootDirArg([]string{"tfcheck", "cq", "--titles"})
	require.Len(t, got, 4)
	assert.Equal(t, cwd, got[2])
	assert.Equal(t, "--titles", got[3])
}

func TestProcessCommandArgsCompletionPassthrough(t *testing.T) {
	args := []string{"tfcheck", "completion", "bash"}
	got := processCommandArgs(args)
	assert.Equal(t, args, got)
}

func TestProcessSetOnlyNoSet(t *testing.T) {
	args := []string{"tfcheck", "cq", "/tmp", "--titles"}
	got := processSetOnly(args)
	assert.Equal(t, args, got)
}

func TestHandleVersion(t *testing.T) {
	assert.True(t, handleVersion([]string{"tfcheck", "--version"}))
	assert.True(t, handleVersion([]string{"tfcheck", "-v"}))
	assert.False(t, handleVersion([]string{"tfcheck", "cq"}))
}
