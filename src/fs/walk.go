package fs

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// Walk implements an equivalent to filepath.Walk.
// It's implemented over github.com/karrick/godirwalk but the provided interface doesn't use that
// to make it a little easier to handle.
func Walk(rootPath string, callback func(name string, isDir bool) error) error {
	return WalkMode(rootPath, func(name string, isDir bool, mode os.FileMode) error {
		return callback(name, isDir)
	})
}

// WalkMode is like Walk but the callback receives an additional type specifying the file mode type.
// N.B. This only includes the bits of the mode that determine the mode type, not the permissions.
func WalkMode(rootPath string, callback func(name string, isDir bool, mode os.FileMode) error) error {
	// Compatibility with filepath.Walk which allows passing a file as the root argument.
	if info, err := os.Lstat(rootPath); err != nil {
		return err
	} else if !info.IsDir() {
		return callback(rootPath, false, info.Mode())
	}
	return godirwalk.Walk(rootPath, &godirwalk.Options{Callback: func(name string, info *godirwalk.Dirent) error {
		return callback(name, info.IsDir(), info.ModeType())
	}})
}

// WalkFollowingSymlinks is like Walk but follows symlinked directories
// instead of skipping them. A directory already visited on the current walk
// is not descended into again; "already visited" is decided with
// os.SameFile rather than a raw inode comparison, so the check is portable
// across platforms.
func WalkFollowingSymlinks(rootPath string, callback func(name string, isDir bool) error) error {
	var visited []os.FileInfo
	return godirwalk.Walk(rootPath, &godirwalk.Options{
		FollowSymbolicLinks: true,
		Callback: func(name string, _ *godirwalk.Dirent) error {
			info, err := os.Stat(name)
			if err != nil {
				return err
			}
			if info.IsDir() {
				for _, seen := range visited {
					if os.SameFile(seen, info) {
						return filepath.SkipDir
					}
				}
				visited = append(visited, info)
				return callback(name, true)
			}
			return callback(name, false)
		},
	})
}
