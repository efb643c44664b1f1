package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/steelcrab/polytunnel/src/buildcache"
	"github.com/steelcrab/polytunnel/src/errs"
	"github.com/steelcrab/polytunnel/src/javatest"
	"github.com/steelcrab/polytunnel/src/toolchain"
)

// BuildOptions configures one Build invocation (spec §6.2's `build`
// operation options).
type BuildOptions struct {
	Clean     bool
	SkipTests bool
	Verbose   bool
}

// BuildReport summarizes one completed build (spec §4.5's observability
// requirement, and the `build` operation's return value per spec §6.2).
type BuildReport struct {
	MainCompiled bool
	TestCompiled bool
	MainSources  int
	TestSources  int
	TestReport   *javatest.TestReport
}

// Build runs the full 8-step pipeline: classpath materialization, source
// discovery, the incremental clean/dirty decision, compilation of main
// (then test) sources, and — unless opts.SkipTests — test execution
// (spec §4.5).
func (o *Orchestrator) Build(ctx context.Context, opts BuildOptions) (*BuildReport, error) {
	return o.pipeline(ctx, opts, TestOptions{Verbose: opts.Verbose})
}

// pipeline is the shared 8-step implementation behind both Build and Test:
// Test is the same pipeline with SkipTests forced off and its own
// pattern/fail-fast options threaded into the RunningTests phase.
func (o *Orchestrator) pipeline(ctx context.Context, opts BuildOptions, testOpts TestOptions) (*BuildReport, error) {
	set, err := o.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	manifest, err := buildcache.LoadManifest(o.manifestDir())
	if err != nil {
		return nil, o.fail(err)
	}
	if opts.Clean {
		manifest.Discard()
	}

	o.transition(StateDownloading)
	mainJars, err := o.materializeClasspath(ctx, set.MainClasspath())
	if err != nil {
		return nil, o.fail(err)
	}
	testJars, err := o.materializeClasspath(ctx, set.TestClasspath())
	if err != nil {
		return nil, o.fail(err)
	}

	report := &BuildReport{}

	o.transition(StateCompilingMain)
	mainSources, err := discoverJavaSources(o.projectDir, o.cfg.SourceDirs)
	if err != nil {
		return nil, o.fail(err)
	}
	report.MainSources = len(mainSources)

	mainOut := o.abs(o.cfg.OutputDir)
	if len(mainSources) > 0 {
		if manifest.IsClean("main", mainSources, set.MainClasspath()) {
			log.Info("main source set unchanged, skipping compilation")
		} else {
			if err := o.compile(ctx, mainSources, mainJars, mainOut, o.cfg.CompilerArgs); err != nil {
				return nil, o.fail(err)
			}
			if err := manifest.Update("main", mainSources, set.MainClasspath()); err != nil {
				return nil, o.fail(err)
			}
			report.MainCompiled = true
		}
	}

	var testReport *javatest.TestReport
	testSources, err := discoverJavaSources(o.projectDir, o.cfg.TestSourceDirs)
	if err != nil {
		return nil, o.fail(err)
	}
	report.TestSources = len(testSources)

	if len(testSources) > 0 {
		o.transition(StateCompilingTest)
		testOut := o.abs(o.cfg.TestOutputDir)
		testCompileClasspath := append(append([]string{mainOut}, mainJars...), testJars...)
		if manifest.IsClean("test", testSources, set.TestClasspath()) {
			log.Info("test source set unchanged, skipping compilation")
		} else {
			if err := o.compile(ctx, testSources, testCompileClasspath, testOut, o.cfg.TestCompilerArgs); err != nil {
				return nil, o.fail(err)
			}
			if err := manifest.Update("test", testSources, set.TestClasspath()); err != nil {
				return nil, o.fail(err)
			}
			report.TestCompiled = true
		}

		if !opts.SkipTests {
			o.transition(StateRunningTests)
			testReport, err = o.runTests(ctx, set, mainOut, testOut, append(mainJars, testJars...), testOpts)
			if err != nil {
				return nil, o.fail(err)
			}
		}
	}
	report.TestReport = testReport

	if err := manifest.Save(); err != nil {
		return nil, o.fail(err)
	}
	o.transition(StateDone)
	return report, nil
}

// compile invokes the Java compiler over sources, writing class files to
// outputDir with classpath and extraArgs appended (spec §4.5 step 4).
func (o *Orchestrator) compile(ctx context.Context, sources, classpath []string, outputDir string, extraArgs []string) error {
	if err := ensureDir(outputDir); err != nil {
		return err
	}
	argv := []string{"javac", "-d", outputDir}
	if len(classpath) > 0 {
		argv = append(argv, "-cp", joinClasspath(classpath))
	}
	argv = append(argv, extraArgs...)
	argv = append(argv, sources...)

	result, err := toolchain.Run(ctx, o.projectDir, argv, os.Stdout, os.Stderr)
	if err != nil {
		return fmt.Errorf("compiling: %w", err)
	}
	if result.ExitCode != 0 {
		return &errs.CompileError{ExitCode: result.ExitCode, Diagnostics: result.Stderr}
	}
	return nil
}
