package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/errs"
	"github.com/steelcrab/polytunnel/src/maven"
)

type fakeFetcher struct {
	poms map[coordinate.Coordinate][]byte
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{poms: map[coordinate.Coordinate][]byte{}}
}

func (f *fakeFetcher) add(group, artifact, version, xmlBody string) {
	f.poms[coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: group, Artifact: artifact},
		Version:       coordinate.Version(version),
	}] = []byte(xmlBody)
}

func (f *fakeFetcher) FetchPom(ctx context.Context, c coordinate.Coordinate) ([]byte, error) {
	if body, ok := f.poms[c]; ok {
		return body, nil
	}
	return nil, &errs.RepositoryError{Kind: errs.KindHTTPStatus, URL: c.PomPath(), Code: 404}
}

func dep(group, artifact, version string, scope coordinate.Scope) coordinate.Dependency {
	return coordinate.Dependency{
		GroupArtifact: coordinate.GroupArtifact{Group: group, Artifact: artifact},
		Version:       coordinate.Version(version),
		Scope:         scope,
	}
}

func TestResolveSimpleTransitive(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "a", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>a</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>b</artifactId><version>2.0</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "b", "2.0", `<project>
		<groupId>com.example</groupId><artifactId>b</artifactId><version>2.0</version>
	</project>`)

	r := New(maven.NewComputer(f), 4)
	set, err := r.Resolve(context.Background(), []coordinate.Dependency{
		dep("com.example", "a", "1.0", coordinate.ScopeCompile),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	b := set.Lookup(coordinate.GroupArtifact{Group: "com.example", Artifact: "b"})
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Depth)
	assert.Equal(t, coordinate.Version("2.0"), b.Coordinate.Version)
}

func TestResolveNearestWinsAcrossBranches(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "a", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>a</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>c</artifactId><version>1.0</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "b", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>b</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>x</artifactId><version>1.0</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "x", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>x</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>c</artifactId><version>2.0</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "c", "1.0", `<project><groupId>com.example</groupId><artifactId>c</artifactId><version>1.0</version></project>`)
	f.add("com.example", "c", "2.0", `<project><groupId>com.example</groupId><artifactId>c</artifactId><version>2.0</version></project>`)

	r := New(maven.NewComputer(f), 4)
	set, err := r.Resolve(context.Background(), []coordinate.Dependency{
		dep("com.example", "a", "1.0", coordinate.ScopeCompile),
		dep("com.example", "b", "1.0", coordinate.ScopeCompile),
	})
	require.NoError(t, err)
	c := set.Lookup(coordinate.GroupArtifact{Group: "com.example", Artifact: "c"})
	require.NotNil(t, c)
	// a->c is depth 1; b->x->c is depth 2. Nearest (depth 1, version 1.0) wins.
	assert.Equal(t, coordinate.Version("1.0"), c.Coordinate.Version)
	assert.Equal(t, 1, c.Depth)
}

func TestResolveOptionalNotTraversed(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "a", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>a</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>opt</artifactId><version>1.0</version><optional>true</optional></dependency>
		</dependencies>
	</project>`)

	r := New(maven.NewComputer(f), 4)
	set, err := r.Resolve(context.Background(), []coordinate.Dependency{
		dep("com.example", "a", "1.0", coordinate.ScopeCompile),
	})
	require.NoError(t, err)
	assert.Nil(t, set.Lookup(coordinate.GroupArtifact{Group: "com.example", Artifact: "opt"}))
}

func TestResolveExclusionPrunesSubgraph(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "b", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>b</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>unwanted</artifactId><version>1.0</version></dependency>
		</dependencies>
	</project>`)

	r := New(maven.NewComputer(f), 4)
	rootDep := dep("com.example", "b", "1.0", coordinate.ScopeCompile)
	rootDep.Exclusions = []coordinate.Exclusion{{Group: "com.example", Artifact: "unwanted"}}
	set, err := r.Resolve(context.Background(), []coordinate.Dependency{rootDep})
	require.NoError(t, err)
	assert.Nil(t, set.Lookup(coordinate.GroupArtifact{Group: "com.example", Artifact: "unwanted"}))
}

func TestResolveTestScopeBranchStaysOffMainClasspath(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "junit-jupiter", "5.10", `<project>
		<groupId>com.example</groupId><artifactId>junit-jupiter</artifactId><version>5.10</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>junit-platform</artifactId><version>1.10</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "junit-platform", "1.10", `<project>
		<groupId>com.example</groupId><artifactId>junit-platform</artifactId><version>1.10</version>
	</project>`)

	r := New(maven.NewComputer(f), 4)
	set, err := r.Resolve(context.Background(), []coordinate.Dependency{
		dep("com.example", "junit-jupiter", "5.10", coordinate.ScopeTest),
	})
	require.NoError(t, err)

	platform := set.Lookup(coordinate.GroupArtifact{Group: "com.example", Artifact: "junit-platform"})
	require.NotNil(t, platform)
	assert.Equal(t, coordinate.ScopeTest, platform.Scope)
	assert.Len(t, set.MainClasspath(), 0)
	assert.Len(t, set.TestClasspath(), 2)
}

func TestResolveFetchFailureAborts(t *testing.T) {
	f := newFakeFetcher()
	// "missing" is never added to f.poms, so FetchPom returns a 404.

	r := New(maven.NewComputer(f), 4)
	_, err := r.Resolve(context.Background(), []coordinate.Dependency{
		dep("com.example", "missing", "1.0", coordinate.ScopeCompile),
	})
	require.Error(t, err)
	var resolverErr *errs.ResolverError
	require.ErrorAs(t, err, &resolverErr)
}

func TestResolveDiamondDependencyNotReExpanded(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "a", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>a</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>b</artifactId><version>1.0</version></dependency>
			<dependency><groupId>com.example</groupId><artifactId>c</artifactId><version>1.0</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "b", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>b</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>shared</artifactId><version>1.0</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "c", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>c</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>shared</artifactId><version>1.0</version></dependency>
		</dependencies>
	</project>`)
	f.add("com.example", "shared", "1.0", `<project><groupId>com.example</groupId><artifactId>shared</artifactId><version>1.0</version></project>`)

	r := New(maven.NewComputer(f), 4)
	set, err := r.Resolve(context.Background(), []coordinate.Dependency{
		dep("com.example", "a", "1.0", coordinate.ScopeCompile),
	})
	require.NoError(t, err)
	shared := set.Lookup(coordinate.GroupArtifact{Group: "com.example", Artifact: "shared"})
	require.NotNil(t, shared)
	assert.Equal(t, 2, shared.Depth)
}
