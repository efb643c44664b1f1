package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/javatest"
)

// TestOptions configures one Test invocation (spec §6.2's `test` operation
// options).
type TestOptions struct {
	Pattern  string
	FailFast bool
	Verbose  bool
}

// Test runs the full pipeline through test compilation and execution,
// applying opts.Pattern/opts.FailFast to the test-execution phase (spec
// §6.2's `test` operation). Test failures are reported in the returned
// TestReport, not as an error — per spec §7, a failing test run is not a
// fatal error; only the CLI layer's exit-code choice treats it specially.
func (o *Orchestrator) Test(ctx context.Context, opts TestOptions) (*javatest.TestReport, error) {
	report, err := o.pipeline(ctx, BuildOptions{SkipTests: false, Verbose: opts.Verbose}, opts)
	if err != nil {
		return nil, err
	}
	if report.TestReport == nil {
		return &javatest.TestReport{}, nil
	}
	return report.TestReport, nil
}

// runTests executes step 5-7 of the pipeline against an already-compiled
// test source set: framework detection, test-class discovery, launcher
// invocation, and result aggregation (spec §4.5 steps 5-7).
func (o *Orchestrator) runTests(ctx context.Context, set *coordinate.ResolutionSet, mainOut, testOut string, classpathJars []string, opts TestOptions) (*javatest.TestReport, error) {
	framework, err := javatest.Detect(o.cfg.TestFramework, set)
	if err != nil {
		if errors.Is(err, javatest.ErrNoFramework) {
			log.Info("no test framework detected, skipping test execution")
			return &javatest.TestReport{}, nil
		}
		return nil, err
	}

	classes, err := javatest.DiscoverTestClasses(testOut, opts.Pattern)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		log.Info("no test classes discovered, skipping test execution")
		return &javatest.TestReport{}, nil
	}

	classpath := joinClasspath(append([]string{mainOut, testOut}, classpathJars...))
	reportDir := filepath.Join(o.manifestDir(), "test-reports")

	return javatest.Run(ctx, javatest.RunOptions{
		Framework:   framework,
		ProjectDir:  o.projectDir,
		Classpath:   classpath,
		TestClasses: classes,
		ReportDir:   reportDir,
		FailFast:    opts.FailFast,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	})
}
