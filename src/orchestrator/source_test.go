package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverJavaSourcesFindsNestedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main", "java", "com", "example", "Main.java"), "class Main {}")
	writeFile(t, filepath.Join(root, "src", "main", "java", "com", "example", "Helper.java"), "class Helper {}")
	writeFile(t, filepath.Join(root, "src", "main", "java", "README.md"), "not java")

	sources, err := discoverJavaSources(root, []string{"src/main/java"})
	require.NoError(t, err)
	assert.Len(t, sources, 2)
}

func TestDiscoverJavaSourcesMissingDirSkipped(t *testing.T) {
	root := t.TempDir()
	sources, err := discoverJavaSources(root, []string{"src/main/java", "src/other"})
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestDiscoverJavaSourcesFollowsSymlinkButAvoidsCycle(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real")
	writeFile(t, filepath.Join(target, "Main.java"), "class Main {}")

	link := filepath.Join(target, "loop")
	require.NoError(t, os.Symlink(target, link))

	sources, err := discoverJavaSources(root, []string{"real"})
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}
