package workspace

import (
	"io/fs"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kodrdriv/kodrdriv/log"
	"github.com/kodrdriv/kodrdriv/types"
)

// CacheFileName is the default scan cache location, relative to the
// invocation working directory.
const CacheFileName = ".kodrdriv-scan.msgpack"

// cacheSchemaVersion guards the on-disk cache layout. A mismatch discards
// the cache silently; the cache is a pure accelerator and never a source
// of truth.
const cacheSchemaVersion = 1

// cacheEntry is one cached manifest parse, keyed by absolute path.
// ModTime and Size validate freshness; a stale entry is re-parsed.
type cacheEntry struct {
	ModTimeNanos int64               `msgpack:"mtime"`
	Size         int64               `msgpack:"size"`
	Record       types.PackageRecord `msgpack:"record"`
}

// cacheFile is the msgpack-encoded on-disk shape.
type cacheFile struct {
	SchemaVersion int                   `msgpack:"schema_version"`
	Entries       map[string]cacheEntry `msgpack:"entries"`
}

// Cache is a file-backed memo of parsed manifests. It is owned by a single
// scan session and is not safe for concurrent use.
type Cache struct {
	path    string
	entries map[string]cacheEntry
	dirty   bool
}

// LoadCache reads the cache at path. A missing, unreadable, corrupt, or
// schema-mismatched file yields an empty cache with a warning; a bad cache
// must never fail a scan.
func LoadCache(path string, logger *log.Logger) *Cache {
	cache := &Cache{path: path, entries: make(map[string]cacheEntry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("scan cache unreadable, rescanning", map[string]any{
				"path":  path,
				"error": err.Error(),
			})
		}
		return cache
	}

	var file cacheFile
	if err := msgpack.Unmarshal(data, &file); err != nil {
		logger.Warn("scan cache corrupt, rescanning", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return cache
	}
	if file.SchemaVersion != cacheSchemaVersion {
		logger.Warn("scan cache schema mismatch, rescanning", map[string]any{
			"path":  path,
			"found": file.SchemaVersion,
			"want":  cacheSchemaVersion,
		})
		return cache
	}

	if file.Entries != nil {
		cache.entries = file.Entries
	}
	return cache
}

// Lookup returns the cached record for path when the file metadata still
// matches. A stale or absent entry returns ok=false.
func (c *Cache) Lookup(path string, info fs.FileInfo) (types.PackageRecord, bool) {
	entry, ok := c.entries[path]
	if !ok {
		return types.PackageRecord{}, false
	}
	if entry.ModTimeNanos != info.ModTime().UnixNano() || entry.Size != info.Size() {
		return types.PackageRecord{}, false
	}
	return entry.Record, true
}

// Store records a freshly parsed manifest.
func (c *Cache) Store(path string, info fs.FileInfo, record types.PackageRecord) {
	c.entries[path] = cacheEntry{
		ModTimeNanos: info.ModTime().UnixNano(),
		Size:         info.Size(),
		Record:       record,
	}
	c.dirty = true
}

// Flush writes the cache back to disk if any entry changed.
func (c *Cache) Flush() error {
	if !c.dirty {
		return nil
	}
	data, err := msgpack.Marshal(cacheFile{
		SchemaVersion: cacheSchemaVersion,
		Entries:       c.entries,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}
