// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cacheutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir(t *testing.T) {
	t.Run("env_override", func(t *testing.T) {
		tmp := t.TempDir()
		t.Setenv("TFCHECK_CACHE_DIR", tmp)
		dir, ok := Dir()
		assert.True(t, ok)
		assert.Equal(t, tmp, dir)
	})

	t.Run("user_cache_dir", func(t *testing.T) {
		t.Setenv("TFCHECK_CACHE_DIR", "")
		dir, ok := Dir()
		if !ok {
			t.Skip("no user cache dir on this platform")
		}
		assert.Equal(t, "tfcheck", filepath.Base(dir))
	})
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"1", true},
		{"true", true},
		{"0", false},
		{"false", false},
	}
	for _, tt := range tests {
		t.Setenv("TFCHECK_CACHE", tt.value)
		assert.Equal(t, tt.want, Enabled(), "TFCHECK_CACHE=%q", tt.value)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	t.Setenv("TFCHECK_CACHE_DIR", t.TempDir())
	t.Setenv("TFCHECK_CACHE", "1")

	sub := []string{"bucket", "prefix"}
	key := "generation-1234"
	data := []byte(`{"serial": 7}`)

	// Miss before write.
	_, ok := Read(sub, key)
	assert.False(t, ok)

	require.NoError(t, Write(sub, key, data))

	entry, ok := Read(sub, key)
	require.True(t, ok)
	assert.Equal(t, key, entry.Key)
	assert.Equal(t, data, entry.Data)
	assert.NotEqual(t, key, entry.EncodedKey)
	assert.FileExists(t, entry.Path)
}

func TestWriteDisabled(t *testing.T) {
	t.Setenv("TFCHECK_CACHE_DIR", t.TempDir())
	t.Setenv("TFCHECK_CACHE", "0")

	require.NoError(t, Write([]string{"b"}, "k", []byte("v")))

	t.Setenv("TFCHECK_CACHE", "1")
	_, ok := Read([]string{"b"}, "k")
	assert.False(t, ok, "disabled write must not create an entry")
}

func TestEnsureBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "cache")
	t.Setenv("TFCHECK_CACHE_DIR", base)
	t.Setenv("TFCHECK_CACHE", "1")

	dir, ok, err := EnsureBaseDir()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.DirExists(t, dir)
}

func TestPurge(t *testing.T) {
	base := t.TempDir()
	t.Setenv("TFCHECK_CACHE_DIR", base)
	t.Setenv("TFCHECK_CACHE", "1")

	require.NoError(t, Write([]string{"sub"}, "old", []byte("x")))
	require.NoError(t, Write([]string{"sub"}, "new", []byte("y")))

	// Backdate one entry so it ages out.
	oldPath, exists := EntryPath([]string{"sub"}, "old")
	require.True(t, exists)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	require.NoError(t, Purge(24))

	_, ok := Read([]string{"sub"}, "old")
	assert.False(t, ok)
	_, ok = Read([]string{"sub"}, "new")
	assert.True(t, ok)
}

func TestPurgeDisabled(t *testing.T) {
	base := t.TempDir()
	t.Setenv("TFCHECK_CACHE_DIR", base)
	t.Setenv("TFCHECK_CACHE", "1")

	require.NoError(t, Write([]string{"sub"}, "k", []byte("x")))
	require.NoError(t, Purge(0))

	_, ok := Read([]string{"sub"}, "k")
	assert.True(t, ok, "purge with hours<=0 is a no-op")
}
