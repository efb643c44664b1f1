package javatest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/toolchain"
)

// RunOptions configures one test-launcher invocation (spec §4.5 step 6).
type RunOptions struct {
	Framework   coordinate.TestFramework
	ProjectDir  string
	Classpath   string // os.PathListSeparator-joined JAR + class-dir paths
	TestClasses []string
	ReportDir   string // scratch directory the launcher writes XML reports into
	FailFast    bool

	Stdout, Stderr io.Writer
}

// Run launches the framework-specific test runner over opts.TestClasses and
// returns the aggregated TestReport. When opts.FailFast is set, classes are
// launched one at a time and the run stops at the first class with any
// failure (spec §4.5 step 7); otherwise every discovered class runs in a
// single launcher invocation.
func Run(ctx context.Context, opts RunOptions) (*TestReport, error) {
	if err := os.MkdirAll(opts.ReportDir, 0755); err != nil {
		return nil, err
	}
	if opts.FailFast {
		return runFailFast(ctx, opts)
	}
	argv, err := launchArgv(opts.Framework, opts.Classpath, opts.TestClasses, opts.ReportDir)
	if err != nil {
		return nil, err
	}
	return invoke(ctx, opts, argv)
}

func runFailFast(ctx context.Context, opts RunOptions) (*TestReport, error) {
	aggregate := &TestReport{}
	for _, class := range opts.TestClasses {
		argv, err := launchArgv(opts.Framework, opts.Classpath, []string{class}, opts.ReportDir)
		if err != nil {
			return nil, err
		}
		report, err := invoke(ctx, opts, argv)
		if err != nil {
			return aggregate, err
		}
		aggregate.Merge(report)
		if report.Failed > 0 {
			log.Warning("stopping after first failing test class %s (fail-fast)", class)
			break
		}
	}
	return aggregate, nil
}

func invoke(ctx context.Context, opts RunOptions, argv []string) (*TestReport, error) {
	result, err := toolchain.Run(ctx, opts.ProjectDir, argv, opts.Stdout, opts.Stderr)
	if err != nil {
		return nil, err
	}
	if opts.Framework == coordinate.TestFrameworkJUnit4 {
		return parseJUnitCoreOutput(result.Stdout), nil
	}
	return collectXMLReports(opts.ReportDir)
}

func launchArgv(framework coordinate.TestFramework, classpath string, classes []string, reportDir string) ([]string, error) {
	switch framework {
	case coordinate.TestFrameworkJUnit5:
		argv := []string{
			"java", "-cp", classpath, "org.junit.platform.console.ConsoleLauncher",
			"--disable-banner", "--details=none", "--reports-dir=" + reportDir,
		}
		for _, class := range classes {
			argv = append(argv, "--select-class="+class)
		}
		return argv, nil
	case coordinate.TestFrameworkJUnit4:
		argv := []string{"java", "-cp", classpath, "org.junit.runner.JUnitCore"}
		return append(argv, classes...), nil
	case coordinate.TestFrameworkTestNG:
		return []string{
			"java", "-cp", classpath, "org.testng.TestNG",
			"-d", reportDir, "-testclass", strings.Join(classes, ","),
		}, nil
	default:
		return nil, fmt.Errorf("javatest: no launcher known for framework %q", framework)
	}
}

// collectXMLReports reads every JUnit-shaped XML file the launcher dropped
// in reportDir and folds them into one TestReport (JUnit 5's Console
// Launcher and TestNG both write one report file per suite, not one
// combined file, so every match in the directory must be merged).
func collectXMLReports(reportDir string) (*TestReport, error) {
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		return nil, err
	}
	aggregate := &TestReport{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".xml" {
			continue
		}
		body, err := os.ReadFile(filepath.Join(reportDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if !looksLikeJUnitXMLResults(body) {
			continue
		}
		report, err := parseJUnitXMLResults(body)
		if err != nil {
			return nil, err
		}
		aggregate.Merge(report)
	}
	return aggregate, nil
}

var (
	junitCoreSummary = regexp.MustCompile(`Tests run: (\d+),\s*Failures: (\d+)`)
	junitCoreOK      = regexp.MustCompile(`^OK \((\d+) tests?\)`)
)

// parseJUnitCoreOutput extracts counts from org.junit.runner.JUnitCore's
// plain-text summary line, since JUnitCore (unlike the Platform Console
// Launcher) emits no structured report of its own (spec §4.5 step 6: "parse
// per-class counters for JUnit 4").
func parseJUnitCoreOutput(stdout string) *TestReport {
	report := &TestReport{}
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if m := junitCoreOK.FindStringSubmatch(line); m != nil {
			total, _ := strconv.Atoi(m[1])
			report.Total += total
			report.Passed += total
			continue
		}
		if m := junitCoreSummary.FindStringSubmatch(line); m != nil {
			total, _ := strconv.Atoi(m[1])
			failed, _ := strconv.Atoi(m[2])
			report.Total += total
			report.Failed += failed
			report.Passed += total - failed
		}
	}
	return report
}
