package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkVisitsFilesAndDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "one.txt"), []byte("1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "two.txt"), []byte("2"), 0644))

	var files []string
	err := Walk(root, func(name string, isDir bool) error {
		if !isDir {
			files = append(files, filepath.Base(name))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{"one.txt", "two.txt"}, files)
}

func TestWalkFollowingSymlinksFollowsLinkedDir(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real")
	require.NoError(t, os.MkdirAll(target, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "file.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link")))

	var files []string
	err := WalkFollowingSymlinks(root, func(name string, isDir bool) error {
		if !isDir {
			files = append(files, name)
		}
		return nil
	})
	require.NoError(t, err)
	// "link" and "real" are the same directory, so it is walked once only.
	assert.Len(t, files, 1)
}

func TestWalkFollowingSymlinksAvoidsCycle(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real")
	require.NoError(t, os.MkdirAll(target, 0755))
	require.NoError(t, os.Symlink(target, filepath.Join(target, "loop")))

	var dirs int
	err := WalkFollowingSymlinks(root, func(name string, isDir bool) error {
		if isDir {
			dirs++
		}
		return nil
	})
	require.NoError(t, err)
	// The root and "real" are reported; "real/loop" is skipped.
	assert.Equal(t, 2, dirs)
}
