package maven

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/errs"
)

// fakeFetcher is an in-memory PomFetcher keyed by Coordinate, used the way
// spec §9 describes: "both real-network and in-memory fake repositories
// can drive resolver tests deterministically".
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

func TestEffectiveSimpleDependencies(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "app", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>app</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>lib</artifactId><version>2.0</version></dependency>
		</dependencies>
	</project>`)

	c := NewComputer(f)
	pom, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "app"}, Version: "1.0",
	})
	require.NoError(t, err)
	require.Len(t, pom.Dependencies, 1)
	assert.Equal(t, coordinate.Version("2.0"), pom.Dependencies[0].Version)
	assert.Equal(t, coordinate.ScopeCompile, pom.Dependencies[0].Scope)
}

func TestEffectivePropertySubstitution(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "app", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>app</artifactId><version>1.0</version>
		<properties><lib.version>3.1.4</lib.version></properties>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>lib</artifactId><version>${lib.version}</version></dependency>
		</dependencies>
	</project>`)

	c := NewComputer(f)
	pom, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "app"}, Version: "1.0",
	})
	require.NoError(t, err)
	require.Len(t, pom.Dependencies, 1)
	assert.Equal(t, coordinate.Version("3.1.4"), pom.Dependencies[0].Version)
}

func TestEffectiveParentInheritance(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "parent", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>parent</artifactId><version>1.0</version>
		<properties><shared.version>9.9</shared.version></properties>
	</project>`)
	f.add("com.example", "app", "1.0", `<project>
		<parent><groupId>com.example</groupId><artifactId>parent</artifactId><version>1.0</version></parent>
		<artifactId>app</artifactId>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>lib</artifactId><version>${shared.version}</version></dependency>
		</dependencies>
	</project>`)

	c := NewComputer(f)
	pom, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "app"}, Version: "1.0",
	})
	require.NoError(t, err)
	assert.Equal(t, coordinate.Version("1.0"), pom.Coordinate.Version)
	assert.Equal(t, "com.example", pom.Coordinate.Group)
	require.Len(t, pom.Dependencies, 1)
	assert.Equal(t, coordinate.Version("9.9"), pom.Dependencies[0].Version)
}

func TestEffectiveParentCycle(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "a", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>a</artifactId><version>1.0</version>
		<parent><groupId>com.example</groupId><artifactId>b</artifactId><version>1.0</version></parent>
	</project>`)
	f.add("com.example", "b", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>b</artifactId><version>1.0</version>
		<parent><groupId>com.example</groupId><artifactId>a</artifactId><version>1.0</version></parent>
	</project>`)

	c := NewComputer(f)
	_, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "a"}, Version: "1.0",
	})
	require.Error(t, err)
	var pomErr *errs.PomError
	require.ErrorAs(t, err, &pomErr)
	assert.Equal(t, errs.KindParentCycle, pomErr.Kind)
}

func TestDependencyManagementSuppliesVersion(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "app", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>app</artifactId><version>1.0</version>
		<dependencyManagement>
			<dependencies>
				<dependency><groupId>com.example</groupId><artifactId>lib</artifactId><version>5.0</version></dependency>
			</dependencies>
		</dependencyManagement>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>lib</artifactId></dependency>
		</dependencies>
	</project>`)

	c := NewComputer(f)
	pom, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "app"}, Version: "1.0",
	})
	require.NoError(t, err)
	require.Len(t, pom.Dependencies, 1)
	assert.Equal(t, coordinate.Version("5.0"), pom.Dependencies[0].Version)
}

func TestUnresolvedVersionError(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "app", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>app</artifactId><version>1.0</version>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>lib</artifactId></dependency>
		</dependencies>
	</project>`)

	c := NewComputer(f)
	_, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "app"}, Version: "1.0",
	})
	require.Error(t, err)
	var pomErr *errs.PomError
	require.ErrorAs(t, err, &pomErr)
	assert.Equal(t, errs.KindUnresolvedVersion, pomErr.Kind)
}

func TestImportScopeExpansion(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "bom", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>bom</artifactId><version>1.0</version>
		<dependencyManagement>
			<dependencies>
				<dependency><groupId>com.example</groupId><artifactId>lib</artifactId><version>7.0</version></dependency>
			</dependencies>
		</dependencyManagement>
	</project>`)
	f.add("com.example", "app", "1.0", `<project>
		<groupId>com.example</groupId><artifactId>app</artifactId><version>1.0</version>
		<dependencyManagement>
			<dependencies>
				<dependency><groupId>com.example</groupId><artifactId>bom</artifactId><version>1.0</version><scope>import</scope></dependency>
			</dependencies>
		</dependencyManagement>
		<dependencies>
			<dependency><groupId>com.example</groupId><artifactId>lib</artifactId></dependency>
		</dependencies>
	</project>`)

	c := NewComputer(f)
	pom, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "app"}, Version: "1.0",
	})
	require.NoError(t, err)
	require.Len(t, pom.Dependencies, 1)
	assert.Equal(t, coordinate.Version("7.0"), pom.Dependencies[0].Version)
}

func TestSnapshotMetadataSurfacesMalformed(t *testing.T) {
	f := newFakeFetcher()
	f.add("com.example", "app", "1.0-SNAPSHOT", `<metadata><groupId>com.example</groupId><artifactId>app</artifactId></metadata>`)

	c := NewComputer(f)
	_, err := c.Effective(context.Background(), coordinate.Coordinate{
		GroupArtifact: coordinate.GroupArtifact{Group: "com.example", Artifact: "app"}, Version: "1.0-SNAPSHOT",
	})
	require.Error(t, err)
	var pomErr *errs.PomError
	require.ErrorAs(t, err, &pomErr)
	assert.Equal(t, errs.KindMalformed, pomErr.Kind)
}
