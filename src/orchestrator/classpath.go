package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/steelcrab/polytunnel/src/coordinate"
)

// classpathSeparator is the host platform's classpath-entry separator, the
// form javac/java's -cp flag expects (":" on POSIX, ";" on Windows).
var classpathSeparator = string(filepath.ListSeparator)

// downloadConcurrency bounds how many JAR fetches run at once during
// classpath materialization (spec §4.5 step 1: "fetched ... in parallel").
const downloadConcurrency = 8

// materializeClasspath ensures every coord's JAR is present in the cache,
// downloading whatever is missing in parallel and barrier-synchronizing on
// completion before returning (spec §4.5 step 1). Download failures from
// every concurrent fetch are aggregated, not just the first, mirroring the
// resolver's own multierror use for concurrent branch failures.
func (o *Orchestrator) materializeClasspath(ctx context.Context, coords []coordinate.Coordinate) ([]string, error) {
	sem := make(chan struct{}, downloadConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var merr *multierror.Error

	for _, coord := range coords {
		if o.cache.Has(coord) {
			continue
		}
		coord := coord
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				mu.Lock()
				merr = multierror.Append(merr, err)
				mu.Unlock()
				return
			}
			body, err := o.client.FetchJar(ctx, coord)
			if err != nil {
				mu.Lock()
				merr = multierror.Append(merr, err)
				mu.Unlock()
				return
			}
			if err := o.cache.Put(coord, body, ""); err != nil {
				mu.Lock()
				merr = multierror.Append(merr, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if merr.ErrorOrNil() != nil {
		return nil, merr.ErrorOrNil()
	}

	paths := make([]string, len(coords))
	for i, coord := range coords {
		paths[i] = o.cache.Path(coord)
	}
	return paths, nil
}

// joinClasspath joins classpath entries with the host platform's classpath
// separator, the form javac/java's -cp flag expects.
func joinClasspath(entries []string) string {
	return strings.Join(entries, classpathSeparator)
}
