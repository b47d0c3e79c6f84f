// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotandev/wasmdec/internal/errors"
)

func openStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), maxEntries)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 16)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestOpen_RejectsUnusableDirectory(t *testing.T) {
	// A regular file where the cache directory should go.
	blocker := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := Open(blocker, 16)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCacheUnavailable)
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := openStore(t, 16)

	hash := HashModule([]byte{0x00, 0x61, 0x73, 0x6d})
	require.NoError(t, s.Put(hash, "module", "module {\n}\n"))

	out, ok, err := s.Get(hash, "module")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "module {\n}\n", out)

	// Same module, different render options: a distinct entry.
	_, ok, err = s.Get(hash, "func=3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_MissOnEmptyStore(t *testing.T) {
	s := openStore(t, 16)

	out, ok, err := s.Get(HashModule([]byte("nothing")), "module")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestPut_ReplacesExistingEntry(t *testing.T) {
	s := openStore(t, 16)

	hash := HashModule([]byte("mod"))
	require.NoError(t, s.Put(hash, "module", "first"))
	require.NoError(t, s.Put(hash, "module", "second"))

	out, ok, err := s.Get(hash, "module")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", out)

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
}

func TestPrune_EvictsLeastRecentlyUsed(t *testing.T) {
	s := openStore(t, 2)

	a := HashModule([]byte("a"))
	b := HashModule([]byte("b"))
	c := HashModule([]byte("c"))

	require.NoError(t, s.Put(a, "module", "out-a"))
	// Delays keep the access timestamps strictly ordered.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Put(b, "module", "out-b"))
	time.Sleep(10 * time.Millisecond)

	// Reading a makes b the least recently used entry.
	_, ok, err := s.Get(a, "module")
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, s.Put(c, "module", "out-c"))

	_, ok, err = s.Get(b, "module")
	require.NoError(t, err)
	assert.False(t, ok, "least recently used entry should be evicted")

	_, ok, err = s.Get(a, "module")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.Get(c, "module")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrune_UnboundedWhenZero(t *testing.T) {
	s := openStore(t, 0)

	for i := 0; i < 8; i++ {
		hash := HashModule([]byte(fmt.Sprintf("mod-%d", i)))
		require.NoError(t, s.Put(hash, "module", "out"))
	}

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 8, st.Entries)
}

func TestClear_EmptiesStore(t *testing.T) {
	s := openStore(t, 16)

	require.NoError(t, s.Put(HashModule([]byte("a")), "module", "out-a"))
	require.NoError(t, s.Put(HashModule([]byte("b")), "module", "out-b"))

	removed, err := s.Clear()
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Entries)

	_, ok, err := s.Get(HashModule([]byte("a")), "module")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatus_ReportsEntriesAndSize(t *testing.T) {
	s := openStore(t, 16)
	require.NoError(t, s.Put(HashModule([]byte("a")), "module", "func 0() {\n}\n"))

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
	assert.Greater(t, st.SizeBytes, int64(0))
	assert.Equal(t, "cache.db", filepath.Base(st.Path))
}

func TestHashModule(t *testing.T) {
	a := HashModule([]byte{0x00, 0x61, 0x73, 0x6d})
	b := HashModule([]byte{0x00, 0x61, 0x73, 0x6d})
	c := HashModule([]byte{0x00, 0x61, 0x73, 0x6d, 0x01})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1536 * 1024 * 1024, "1.50 GB"},
	}

	for _, test := range tests {
		result := FormatBytes(test.bytes)
		assert.Equal(t, test.expected, result)
	}
}
