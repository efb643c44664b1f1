// Command polytunnel is a thin wrapper around the orchestrator's three
// public operations (spec §6.2): resolve, build, test. Flag parsing is
// deliberately minimal (spec §1 non-goal: "CLI argument parsing detail" is
// out of scope for the core) — this is just enough of a driver to exercise
// it from a shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"
	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/manifest"
	"github.com/steelcrab/polytunnel/src/orchestrator"
)

var log = logging.MustGetLogger("polytunnel")

const manifestFileName = "polytunnel.toml"

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.Info)); err != nil {
		log.Warning("failed to set GOMAXPROCS: %s", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: polytunnel <resolve|build|test> [project-dir]")
		os.Exit(1)
	}
	os.Exit(run(os.Args[1], os.Args[2:]))
}

func run(op string, rest []string) int {
	projectDir := "."
	if len(rest) > 0 {
		projectDir = rest[0]
	}

	manifestPath := filepath.Join(projectDir, manifestFileName)
	body, err := os.ReadFile(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %s\n", manifestPath, err)
		return 1
	}
	cfg, err := manifest.Load(manifestPath, body)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	o, err := orchestrator.New(cfg, projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Warning("interrupted, cancelling")
		cancel()
	}()

	switch op {
	case "resolve":
		set, err := o.Resolve(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		coordinate.NewDependencyTree(set).Print(os.Stdout)
		return 0
	case "build":
		report, err := o.Build(ctx, orchestrator.BuildOptions{})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("compiled: main=%v test=%v (%d/%d sources)\n", report.MainCompiled, report.TestCompiled, report.MainSources, report.TestSources)
		if report.TestReport != nil && report.TestReport.Failed > 0 {
			return 2
		}
		return 0
	case "test":
		testReport, err := o.Test(ctx, orchestrator.TestOptions{})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("tests: total=%d passed=%d failed=%d skipped=%d\n", testReport.Total, testReport.Passed, testReport.Failed, testReport.Skipped)
		if testReport.Failed > 0 {
			return 2
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown operation %q\n", op)
		return 1
	}
}
