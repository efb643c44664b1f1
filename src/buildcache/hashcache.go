package buildcache

import (
	"encoding/binary"
	"os"

	"github.com/steelcrab/polytunnel/src/fs"
)

// xattrName tags the extended attribute polytunnel stashes a source file's
// last-known (size, mtime, hash) triple under, so an unchanged file's
// content hash need not be recomputed on every incremental-build check.
// Grounded on please's own src/fs/attr.go, which the same package already
// uses to cache build-output hashes; here it caches source-input hashes
// instead (see hashFileCached below).
const xattrName = "user.polytunnel_hash"

// hashFileCached is hashFile with an xattr-backed fast path: if the file
// carries a stashed (size, mtime, hash) triple that still matches the
// file's current size and mtime, the stashed hash is trusted and no I/O
// beyond the attribute read happens; otherwise the file is rehashed and the
// attribute is refreshed (best-effort — a RecordAttr failure is logged at
// debug level and otherwise ignored; fs.RecordAttr falls back to a sidecar
// file only for symlinks, so on a filesystem without xattr support the
// hash is recomputed on every call).
func hashFileCached(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	if stashed, ok := decodeStashedHash(fs.ReadAttr(path, xattrName, true)); ok {
		if stashed.size == info.Size() && stashed.mtime == info.ModTime().UnixNano() {
			return stashed.hash, nil
		}
	}

	hash, err := hashFile(path)
	if err != nil {
		return "", err
	}
	if err := fs.RecordAttr(path, encodeStashedHash(info.Size(), info.ModTime().UnixNano(), hash), xattrName, true); err != nil {
		log.Debug("could not stash hash xattr for %s: %s", path, err)
	}
	return hash, nil
}

type stashedHash struct {
	size  int64
	mtime int64
	hash  string
}

// encodeStashedHash packs (size, mtime, hash) into a flat byte value: two
// fixed-width int64s followed by the hex hash string, matching the layout
// decodeStashedHash expects.
func encodeStashedHash(size, mtime int64, hash string) []byte {
	buf := make([]byte, 16+len(hash))
	binary.BigEndian.PutUint64(buf[0:8], uint64(size))
	binary.BigEndian.PutUint64(buf[8:16], uint64(mtime))
	copy(buf[16:], hash)
	return buf
}

func decodeStashedHash(raw []byte) (stashedHash, bool) {
	if len(raw) < 16 {
		return stashedHash{}, false
	}
	size := int64(binary.BigEndian.Uint64(raw[0:8]))
	mtime := int64(binary.BigEndian.Uint64(raw[8:16]))
	return stashedHash{size: size, mtime: mtime, hash: string(raw[16:])}, true
}
