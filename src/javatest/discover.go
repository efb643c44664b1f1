package javatest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/steelcrab/polytunnel/src/fs"
)

// DiscoverTestClasses scans dir (a compiled test-output directory) for
// *.class files whose simple name ends with "Test" or "Tests", returning
// their fully-qualified class names (dot-separated, derived from their path
// relative to dir). An empty pattern matches everything; a non-empty
// pattern is matched as a substring against the fully-qualified name,
// implementing spec §4.5 step 6's "optional user-supplied class-name
// pattern filter".
func DiscoverTestClasses(dir, pattern string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	var classes []string
	err := fs.Walk(dir, func(name string, isDir bool) error {
		if isDir {
			return nil
		}
		if filepath.Ext(name) != ".class" {
			return nil
		}
		simple := strings.TrimSuffix(filepath.Base(name), ".class")
		if strings.Contains(simple, "$") {
			// nested/anonymous class, not a top-level test class
			return nil
		}
		if !strings.HasSuffix(simple, "Test") && !strings.HasSuffix(simple, "Tests") {
			return nil
		}
		rel, err := filepath.Rel(dir, name)
		if err != nil {
			return err
		}
		qualified := strings.TrimSuffix(rel, ".class")
		qualified = strings.ReplaceAll(qualified, string(filepath.Separator), ".")
		if pattern != "" && !strings.Contains(qualified, pattern) {
			return nil
		}
		classes = append(classes, qualified)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return classes, nil
}
