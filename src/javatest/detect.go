// Package javatest detects which JUnit/TestNG framework a project uses,
// discovers compiled test classes, invokes the framework-specific launcher,
// and parses its XML result output into a TestReport (spec §4.5 steps 5-7).
package javatest

import (
	"fmt"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/coordinate"
)

var log = logging.MustGetLogger("javatest")

var (
	gaJUnitJupiter    = coordinate.GroupArtifact{Group: "org.junit.jupiter", Artifact: "junit-jupiter"}
	gaJUnitJupiterAPI = coordinate.GroupArtifact{Group: "org.junit.jupiter", Artifact: "junit-jupiter-api"}
	gaJUnit4          = coordinate.GroupArtifact{Group: "junit", Artifact: "junit"}
	gaTestNG          = coordinate.GroupArtifact{Group: "org.testng", Artifact: "testng"}
)

// ErrNoFramework is returned by Detect when the resolution set carries none
// of the recognized test frameworks. It is not a fatal error: spec §4.5 step
// 5 says to skip tests with an informational message in this case.
var ErrNoFramework = fmt.Errorf("no recognized test framework (junit5, junit4, or testng) found in the resolution set")

// Detect picks the framework to use for running tests, honoring a manifest
// override before falling back to presence-based detection against set
// (spec §4.5 step 5).
func Detect(framework coordinate.TestFramework, set *coordinate.ResolutionSet) (coordinate.TestFramework, error) {
	switch framework {
	case coordinate.TestFrameworkJUnit5, coordinate.TestFrameworkJUnit4, coordinate.TestFrameworkTestNG:
		return framework, nil
	case coordinate.TestFrameworkAuto, "":
		// fall through to detection below
	default:
		return "", fmt.Errorf("unknown test_framework %q", framework)
	}

	if set.Lookup(gaJUnitJupiter) != nil || set.Lookup(gaJUnitJupiterAPI) != nil {
		return coordinate.TestFrameworkJUnit5, nil
	}
	if node := set.Lookup(gaJUnit4); node != nil && isMajorVersion4(node.Coordinate.Version) {
		return coordinate.TestFrameworkJUnit4, nil
	}
	if set.Lookup(gaTestNG) != nil {
		return coordinate.TestFrameworkTestNG, nil
	}
	return "", ErrNoFramework
}

// isMajorVersion4 reports whether v's leading numeric component is "4"
// (spec §4.5 step 5). Any other junit:junit release, 3.x included, is not
// detected as JUnit 4.
func isMajorVersion4(v coordinate.Version) bool {
	major := strings.SplitN(string(v), ".", 2)[0]
	return major == "4"
}
