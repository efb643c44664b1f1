package coordinate

// TestFramework selects which test launcher the orchestrator should use.
// "auto" defers to detection against the resolution set (see the
// javatest package).
type TestFramework string

const (
	TestFrameworkAuto     TestFramework = "auto"
	TestFrameworkJUnit5   TestFramework = "junit5"
	TestFrameworkJUnit4   TestFramework = "junit4"
	TestFrameworkTestNG   TestFramework = "testng"
)

// BuildConfig is the effective, defaulted form of a polytunnel.toml
// manifest: everything the orchestrator needs to know about a project,
// independent of how it was loaded (see the manifest package for the TOML
// boundary).
type BuildConfig struct {
	ProjectName string
	JavaVersion string

	SourceDirs        []string
	TestSourceDirs    []string
	OutputDir         string
	TestOutputDir     string
	CompilerArgs      []string
	TestCompilerArgs  []string
	TestFramework     TestFramework

	Dependencies []Dependency
	Repositories []Repository
}

// Repository is the effective form of a manifest [[repositories]] entry.
type Repository struct {
	Name              string
	URL               string
	AllowInsecureHTTP bool
}

// DefaultMavenCentral is used when a manifest declares no [[repositories]].
var DefaultMavenCentral = Repository{
	Name: "central",
	URL:  "https://repo.maven.apache.org/maven2",
}
