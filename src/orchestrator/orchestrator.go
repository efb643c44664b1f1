// Package orchestrator drives the 8-step build/test pipeline (spec §4.5):
// classpath materialization, source discovery, incremental decision,
// compilation, test-framework detection, test execution, fail-fast, and
// cache update. It is the component the CLI layer (cmd/polytunnel) calls
// into for all three public operations: Resolve, Build, Test.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/buildcache"
	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/maven"
	"github.com/steelcrab/polytunnel/src/repository"
	"github.com/steelcrab/polytunnel/src/resolve"
)

var log = logging.MustGetLogger("orchestrator")

// State is one stage of the per-build state machine (spec §4.5). States
// are visited in strictly increasing order within a single invocation;
// Failed is reachable from any state on a fatal error.
type State string

const (
	StateIdle          State = "Idle"
	StateResolving     State = "Resolving"
	StateDownloading   State = "Downloading"
	StateCompilingMain State = "CompilingMain"
	StateCompilingTest State = "CompilingTest"
	StateRunningTests  State = "RunningTests"
	StateDone          State = "Done"
	StateFailed        State = "Failed"
)

// polytunnelDir is the fixed on-disk root, under a project directory, of
// both the JAR cache and the incremental-build manifest (spec §6.3).
const polytunnelDir = ".polytunnel"

// downloadClient is the narrow surface materializeClasspath needs from the
// Repository Client; *repository.Client satisfies it, and tests substitute
// an in-memory fake (same pattern as maven.PomFetcher, spec §9).
type downloadClient interface {
	FetchJar(ctx context.Context, c coordinate.Coordinate) ([]byte, error)
}

// Orchestrator holds the wiring for one project: its effective manifest,
// the repository client for its single configured repository (spec §1
// non-goal: "single configured repository only"), and the on-disk caches.
type Orchestrator struct {
	cfg        coordinate.BuildConfig
	projectDir string

	client   downloadClient
	computer *maven.Computer
	resolver *resolve.Resolver
	cache    *buildcache.Cache

	state State
}

// New wires an Orchestrator for cfg rooted at projectDir.
func New(cfg coordinate.BuildConfig, projectDir string) (*Orchestrator, error) {
	if len(cfg.Repositories) == 0 {
		return nil, fmt.Errorf("orchestrator: build config declares no repositories")
	}
	client, err := repository.New(cfg.Repositories[0], repository.Options{})
	if err != nil {
		return nil, err
	}
	computer := maven.NewComputer(client)
	return &Orchestrator{
		cfg:        cfg,
		projectDir: projectDir,
		client:     client,
		computer:   computer,
		resolver:   resolve.New(computer, resolve.DefaultConcurrency),
		cache:      buildcache.New(filepath.Join(projectDir, polytunnelDir, "cache")),
		state:      StateIdle,
	}, nil
}

// State reports the orchestrator's current pipeline stage, for
// observability (spec §4.5's state-machine diagram).
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(s State) {
	log.Debug("%s -> %s", o.state, s)
	o.state = s
}

func (o *Orchestrator) fail(err error) error {
	o.transition(StateFailed)
	return err
}

// Resolve runs the dependency resolver to completion and returns the
// resulting ResolutionSet (spec §6.2's `resolve` operation).
func (o *Orchestrator) Resolve(ctx context.Context) (*coordinate.ResolutionSet, error) {
	o.transition(StateResolving)
	set, err := o.resolver.Resolve(ctx, o.cfg.Dependencies)
	if err != nil {
		return nil, o.fail(err)
	}
	return set, nil
}

// manifestDir is where the incremental-build manifest lives, alongside the
// JAR cache under .polytunnel (spec §6.3).
func (o *Orchestrator) manifestDir() string {
	return filepath.Join(o.projectDir, polytunnelDir)
}

func (o *Orchestrator) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.projectDir, path)
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
