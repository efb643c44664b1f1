// Package buildcache implements the on-disk, content-addressable JAR cache
// and the incremental-build metadata the orchestrator consults to decide
// whether a source set needs recompiling (spec §4.5 steps 1 and 3).
//
// Layout mirrors the repository's own Maven directory structure under the
// cache root (coordinate.Coordinate.CachePath), and the incremental-build
// manifest is a single JSON file written atomically (write-temp-then-rename),
// the same discipline please's src/cache/dir_cache.go uses for its own
// on-disk artifacts.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/errs"
)

var log = logging.MustGetLogger("buildcache")

// Cache is the on-disk JAR store, rooted at <project>/.polytunnel/cache.
type Cache struct {
	root string
}

// New returns a Cache rooted at root (typically "<project>/.polytunnel/cache").
func New(root string) *Cache {
	return &Cache{root: root}
}

// Path returns the on-disk path a coordinate's JAR would occupy, whether or
// not it is currently present.
func (c *Cache) Path(coord coordinate.Coordinate) string {
	return filepath.Join(c.root, coord.CachePath())
}

// Has reports whether coord's JAR is already cached.
func (c *Cache) Has(coord coordinate.Coordinate) bool {
	_, err := os.Stat(c.Path(coord))
	return err == nil
}

// Put writes body as coord's cached JAR, verifying it against expectedSHA256
// (the hex-encoded digest from the repository, when known; pass "" to skip
// verification) and committing via write-temp-then-rename so a concurrent
// reader never observes a torn file.
func (c *Cache) Put(coord coordinate.Coordinate, body []byte, expectedSHA256 string) error {
	if expectedSHA256 != "" {
		sum := sha256.Sum256(body)
		got := hex.EncodeToString(sum[:])
		if got != expectedSHA256 {
			return &errs.CacheError{Path: c.Path(coord), Cause: fmt.Errorf("sha256 mismatch: got %s, want %s", got, expectedSHA256)}
		}
	}

	dest := c.Path(coord)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &errs.CacheError{Path: dest, Cause: err}
	}

	tmp := dest + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return &errs.CacheError{Path: dest, Cause: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return &errs.CacheError{Path: dest, Cause: err}
	}
	return nil
}

// Get reads coord's cached JAR bytes. Callers must check Has first, or
// handle the os.IsNotExist case themselves.
func (c *Cache) Get(coord coordinate.Coordinate) ([]byte, error) {
	body, err := os.ReadFile(c.Path(coord))
	if err != nil {
		return nil, &errs.CacheError{Path: c.Path(coord), Cause: err}
	}
	return body, nil
}

// SHA256Hex hashes body and returns its hex-encoded SHA-256 digest, the form
// used for cache integrity checks (spec: "content-addressable JAR cache with
// SHA-256 integrity").
func SHA256Hex(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// hashFile streams f through SHA-256 without holding its whole content in
// memory, for use on files already materialized on disk.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// manifestFileName is the incremental-build metadata file's name, relative
// to the project's ".polytunnel" directory (spec §6.3, §4.5 step 3).
const manifestFileName = "build-cache.json"

// sourceRecord is the recorded fingerprint for one source file as of the
// last successful compilation of its source set.
type sourceRecord struct {
	ModTime int64  `json:"mtime"`
	Size    int64  `json:"size"`
	Hash    string `json:"hash"`
}

// buildRecord is the persisted state for one source set (main or test):
// per-file fingerprints plus the exact classpath Coordinates compiled
// against, so a classpath change invalidates the "clean" verdict even if no
// source file changed (spec §4.5 step 3).
type buildRecord struct {
	Sources    map[string]sourceRecord `json:"sources"`
	Classpath  []string                `json:"classpath"`
}

// Manifest is the full incremental-build state for a project: one
// buildRecord per source set, keyed by set name ("main", "test").
type Manifest struct {
	Sets map[string]buildRecord `json:"sets"`

	path string
}

// LoadManifest reads dir's incremental-build manifest, returning an empty
// (but usable) Manifest if none exists yet.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	m := &Manifest{Sets: map[string]buildRecord{}, path: path}

	body, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, &errs.CacheError{Path: path, Cause: err}
	}
	if err := json.Unmarshal(body, m); err != nil {
		log.Warning("discarding unreadable incremental-build manifest at %s: %s", path, err)
		return &Manifest{Sets: map[string]buildRecord{}, path: path}, nil
	}
	return m, nil
}

// Discard removes all recorded state, as the CLI's --clean flag requires
// (spec §4.5 step 3).
func (m *Manifest) Discard() {
	m.Sets = map[string]buildRecord{}
}

// Save writes the manifest atomically (write-temp-then-rename).
func (m *Manifest) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return &errs.CacheError{Path: m.path, Cause: err}
	}
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &errs.CacheError{Path: m.path, Cause: err}
	}
	tmp := m.path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return &errs.CacheError{Path: m.path, Cause: err}
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return &errs.CacheError{Path: m.path, Cause: err}
	}
	return nil
}

// IsClean reports whether every source in sources matches its recorded
// fingerprint for set, and the recorded classpath equals classpath exactly
// (spec §4.5 step 3: "the set of Coordinates used last time equals the
// current classpath").
func (m *Manifest) IsClean(set string, sources []string, classpath []coordinate.Coordinate) bool {
	record, ok := m.Sets[set]
	if !ok {
		return false
	}
	if !sameClasspath(record.Classpath, classpath) {
		return false
	}
	if len(record.Sources) != len(sources) {
		return false
	}
	for _, src := range sources {
		recorded, ok := record.Sources[src]
		if !ok {
			return false
		}
		info, err := os.Stat(src)
		if err != nil {
			return false
		}
		if info.Size() != recorded.Size || info.ModTime().UnixNano() != recorded.ModTime {
			return false
		}
		// Size and mtime match; compare the content hash too. hashFileCached
		// reuses the hash stashed on the file while size and mtime are
		// unchanged, so an edit that keeps both is only caught when no
		// stashed hash is present.
		hash, err := hashFileCached(src)
		if err != nil || hash != recorded.Hash {
			return false
		}
	}
	return true
}

// Update recomputes and stores fingerprints for every source in sources
// under set, along with the classpath compiled against. It does not call
// Save; callers batch several Update calls (main, then test) before one
// Save so a crash mid-build never leaves a half-written manifest.
func (m *Manifest) Update(set string, sources []string, classpath []coordinate.Coordinate) error {
	record := buildRecord{Sources: make(map[string]sourceRecord, len(sources))}
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return &errs.CacheError{Path: src, Cause: err}
		}
		hash, err := hashFileCached(src)
		if err != nil {
			return &errs.CacheError{Path: src, Cause: err}
		}
		record.Sources[src] = sourceRecord{
			ModTime: info.ModTime().UnixNano(),
			Size:    info.Size(),
			Hash:    hash,
		}
	}
	for _, c := range classpath {
		record.Classpath = append(record.Classpath, c.String())
	}
	m.Sets[set] = record
	return nil
}

func sameClasspath(recorded []string, classpath []coordinate.Coordinate) bool {
	if len(recorded) != len(classpath) {
		return false
	}
	for i, c := range classpath {
		if recorded[i] != c.String() {
			return false
		}
	}
	return true
}
