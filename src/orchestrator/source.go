package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/steelcrab/polytunnel/src/fs"
)

// discoverJavaSources recursively enumerates *.java files under each of
// dirs (spec §4.5 step 2), via fs.WalkFollowingSymlinks (spec §4.5 step 2:
// "Symlinks are followed but cycles are detected by visited-inode set").
func discoverJavaSources(root string, dirs []string) ([]string, error) {
	var sources []string
	for _, dir := range dirs {
		full := dir
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, dir)
		}
		if _, err := os.Stat(full); os.IsNotExist(err) {
			continue
		}
		found, err := walkJavaSources(full)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}
	return sources, nil
}

func walkJavaSources(root string) ([]string, error) {
	var sources []string
	err := fs.WalkFollowingSymlinks(root, func(name string, isDir bool) error {
		if !isDir && strings.HasSuffix(name, ".java") {
			sources = append(sources, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}
