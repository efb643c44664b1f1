package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndReadAttrRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	require.NoError(t, RecordAttr(path, []byte("deadbeef"), "user.polytunnel_test", true))
	got := ReadAttr(path, "user.polytunnel_test", true)
	assert.Equal(t, []byte("deadbeef"), got)
}

func TestRecordAndReadAttrFallbackFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	require.NoError(t, RecordAttr(path, []byte("cafebabe"), "user.polytunnel_test", false))
	got := ReadAttr(path, "user.polytunnel_test", false)
	assert.Equal(t, []byte("cafebabe"), got)
}

func TestReadAttrMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	assert.Empty(t, ReadAttr(path, "user.polytunnel_missing", true))
}

func TestIsSymlink(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0644))
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(real, link))

	assert.False(t, IsSymlink(real))
	assert.True(t, IsSymlink(link))
}
