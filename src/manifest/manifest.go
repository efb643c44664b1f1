// Package manifest loads a polytunnel.toml project manifest into an
// effective coordinate.BuildConfig, applying the defaults from spec §6 and
// rejecting unrecognized keys with a warning-level diagnostic rather than
// a hard failure.
package manifest

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/errs"
)

var log = logging.MustGetLogger("manifest")

// Defaults mirror the table in spec §6.
const (
	defaultSourceDir     = "src/main/java"
	defaultTestSourceDir = "src/test/java"
	defaultOutputDir     = "target/classes"
	defaultTestOutputDir = "target/test-classes"
)

// rawManifest is the direct TOML unmarshalling target.
type rawManifest struct {
	Project struct {
		Name        string `toml:"name"`
		JavaVersion string `toml:"java_version"`
	} `toml:"project"`

	Build struct {
		SourceDirs       []string `toml:"source_dirs"`
		TestSourceDirs   []string `toml:"test_source_dirs"`
		OutputDir        string   `toml:"output_dir"`
		TestOutputDir    string   `toml:"test_output_dir"`
		CompilerArgs     []string `toml:"compiler_args"`
		TestCompilerArgs []string `toml:"test_compiler_args"`
		TestFramework    string   `toml:"test_framework"`
	} `toml:"build"`

	Dependencies map[string]toml.Primitive `toml:"dependencies"`

	Repositories []struct {
		Name              string `toml:"name"`
		URL               string `toml:"url"`
		AllowInsecureHTTP bool   `toml:"allow_insecure_http"`
	} `toml:"repositories"`
}

// dependencyValue is the struct form of a [dependencies] entry; the string
// form ("g:a" = "1.2.3") is handled separately since toml.Primitive can
// decode into either shape.
type dependencyValue struct {
	Version    string   `toml:"version"`
	Scope      string   `toml:"scope"`
	Exclusions []string `toml:"exclusions"`
	Optional   bool     `toml:"optional"`
}

var knownTopLevelKeys = map[string]bool{
	"project": true, "build": true, "dependencies": true, "repositories": true,
}

var knownProjectKeys = map[string]bool{"name": true, "java_version": true}

var knownBuildKeys = map[string]bool{
	"source_dirs": true, "test_source_dirs": true, "output_dir": true,
	"test_output_dir": true, "compiler_args": true, "test_compiler_args": true,
	"test_framework": true,
}

var knownRepositoryKeys = map[string]bool{"name": true, "url": true, "allow_insecure_http": true}

// Load parses the TOML manifest at path's contents (already read by the
// caller) into an effective BuildConfig. Unknown keys produce a logged
// warning, not an error (spec §6).
func Load(path string, body []byte) (coordinate.BuildConfig, error) {
	var meta toml.MetaData
	var raw rawManifest
	var err error
	meta, err = toml.Decode(string(body), &raw)
	if err != nil {
		return coordinate.BuildConfig{}, &errs.ManifestError{Path: path, Detail: "invalid TOML", Cause: err}
	}

	warnUnknownKeys(path, meta)

	if raw.Project.Name == "" {
		return coordinate.BuildConfig{}, &errs.ManifestError{Path: path, Detail: "[project].name is required"}
	}

	cfg := coordinate.BuildConfig{
		ProjectName:      raw.Project.Name,
		JavaVersion:      raw.Project.JavaVersion,
		SourceDirs:       orDefault(raw.Build.SourceDirs, defaultSourceDir),
		TestSourceDirs:   orDefault(raw.Build.TestSourceDirs, defaultTestSourceDir),
		OutputDir:        orDefaultString(raw.Build.OutputDir, defaultOutputDir),
		TestOutputDir:    orDefaultString(raw.Build.TestOutputDir, defaultTestOutputDir),
		CompilerArgs:     raw.Build.CompilerArgs,
		TestFramework:    coordinate.TestFramework(orDefaultString(raw.Build.TestFramework, string(coordinate.TestFrameworkAuto))),
	}
	if len(raw.Build.TestCompilerArgs) > 0 {
		cfg.TestCompilerArgs = raw.Build.TestCompilerArgs
	} else {
		cfg.TestCompilerArgs = cfg.CompilerArgs
	}

	deps, err := parseDependencies(path, raw.Dependencies, meta)
	if err != nil {
		return coordinate.BuildConfig{}, err
	}
	cfg.Dependencies = deps

	if len(raw.Repositories) == 0 {
		cfg.Repositories = []coordinate.Repository{coordinate.DefaultMavenCentral}
	} else {
		for _, r := range raw.Repositories {
			cfg.Repositories = append(cfg.Repositories, coordinate.Repository{
				Name: r.Name, URL: r.URL, AllowInsecureHTTP: r.AllowInsecureHTTP,
			})
		}
	}

	return cfg, nil
}

func parseDependencies(path string, raw map[string]toml.Primitive, meta toml.MetaData) ([]coordinate.Dependency, error) {
	deps := make([]coordinate.Dependency, 0, len(raw))
	// meta.Keys() lists keys in document order; walking it rather than the
	// map keeps the dependencies in declaration order.
	for _, k := range meta.Keys() {
		if len(k) != 2 || k[0] != "dependencies" {
			continue
		}
		key := k[1]
		prim, ok := raw[key]
		if !ok {
			continue
		}
		ga, err := coordinate.ParseGroupArtifact(key)
		if err != nil {
			return nil, &errs.ManifestError{Path: path, Detail: fmt.Sprintf("dependency key %q", key), Cause: err}
		}

		var asString string
		if err := meta.PrimitiveDecode(prim, &asString); err == nil {
			deps = append(deps, coordinate.Dependency{
				GroupArtifact: ga,
				Version:       coordinate.Version(asString),
				Scope:         coordinate.ScopeCompile,
			})
			continue
		}

		var value dependencyValue
		if err := meta.PrimitiveDecode(prim, &value); err != nil {
			return nil, &errs.ManifestError{Path: path, Detail: fmt.Sprintf("dependency %q is neither a version string nor a table", key), Cause: err}
		}
		scope, err := coordinate.ParseScope(value.Scope)
		if err != nil {
			return nil, &errs.ManifestError{Path: path, Detail: fmt.Sprintf("dependency %q", key), Cause: err}
		}
		exclusions := make([]coordinate.Exclusion, 0, len(value.Exclusions))
		for _, excl := range value.Exclusions {
			exclGA, err := coordinate.ParseGroupArtifact(excl)
			if err != nil {
				return nil, &errs.ManifestError{Path: path, Detail: fmt.Sprintf("exclusion %q for dependency %q", excl, key), Cause: err}
			}
			exclusions = append(exclusions, exclGA)
		}
		if value.Version == "" {
			return nil, &errs.ManifestError{Path: path, Detail: fmt.Sprintf("dependency %q has no version", key)}
		}
		deps = append(deps, coordinate.Dependency{
			GroupArtifact: ga,
			Version:       coordinate.Version(value.Version),
			Scope:         scope,
			Exclusions:    exclusions,
			Optional:      value.Optional,
		})
	}
	return deps, nil
}

// warnUnknownKeys logs (rather than fails) on any key meta.Keys() reports
// that isn't part of the recognized schema, per spec §6's "all others
// rejected with a UnknownKey warning".
func warnUnknownKeys(path string, meta toml.MetaData) {
	for _, k := range meta.Keys() {
		parts := k
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "project":
			if len(parts) == 2 && !knownProjectKeys[parts[1]] {
				log.Warning("%s: unknown key project.%s", path, parts[1])
			}
		case "build":
			if len(parts) == 2 && !knownBuildKeys[parts[1]] {
				log.Warning("%s: unknown key build.%s", path, parts[1])
			}
		case "repositories":
			if len(parts) == 2 && !knownRepositoryKeys[parts[1]] {
				log.Warning("%s: unknown key repositories.%s", path, parts[1])
			}
		case "dependencies":
			// Arbitrary dependency keys are expected; nothing to check.
		default:
			if !knownTopLevelKeys[parts[0]] {
				log.Warning("%s: unknown top-level key %s", path, parts[0])
			}
		}
	}
}

func orDefault(vals []string, def string) []string {
	if len(vals) == 0 {
		return []string{def}
	}
	return vals
}

func orDefaultString(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
