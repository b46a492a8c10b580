package workspace

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kodrdriv/kodrdriv/log"
	"github.com/kodrdriv/kodrdriv/metrics"
	"github.com/kodrdriv/kodrdriv/types"
)

// ManifestName is the file the scanner looks for.
const ManifestName = "package.json"

// ScanOptions configures a workspace scan.
type ScanOptions struct {
	// Roots are the directories to walk. At least one is required.
	Roots []string
	// Excludes are doublestar glob patterns. A directory whose
	// root-relative path or base name matches a pattern is not descended
	// into, and a parsed package whose name matches is dropped.
	Excludes []string
	// Cache is an optional scan cache. Nil disables caching.
	Cache *Cache
	// Collector records scan counters. Nil is allowed.
	Collector *metrics.Collector
	// Logger receives scan diagnostics. Required.
	Logger *log.Logger
}

// manifest mirrors the package.json fields the scanner cares about.
// Name is decoded as any so a non-string name can be reported as a
// workspace integrity error instead of a generic JSON type error.
type manifest struct {
	Name             any               `json:"name"`
	Version          string            `json:"version"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	OptionalDeps     map[string]string `json:"optionalDependencies"`
}

// Scan walks the configured roots and returns every valid package record
// found, in discovery order. Zero records is a valid, non-error result.
//
// A root that cannot be accessed yields zero packages for that root with a
// warning. An unparsable manifest or a manifest without a string name is
// fatal and aborts the scan.
func Scan(opts ScanOptions) ([]types.PackageRecord, error) {
	sugar := opts.Logger.Sugar()

	var records []types.PackageRecord
	seen := make(map[string]string) // name -> manifest path, for duplicate detection

	for _, root := range opts.Roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			sugar.Warnf("skipping root %s: %v", root, err)
			continue
		}
		if _, err := os.Stat(absRoot); err != nil {
			sugar.Warnf("skipping inaccessible root %s: %v", absRoot, err)
			continue
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				// Unreadable subtree: degrade to zero packages for it.
				sugar.Warnf("cannot read %s: %v", path, walkErr)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if d.Name() == "node_modules" {
					return fs.SkipDir
				}
				if path != absRoot && matchesAny(opts.Excludes, relPath(absRoot, path), d.Name()) {
					return fs.SkipDir
				}
				return nil
			}

			if d.Name() != ManifestName {
				return nil
			}

			record, err := readManifest(opts, path)
			if err != nil {
				return err
			}

			if matchesAny(opts.Excludes, record.Name) {
				sugar.Debugf("excluding %s by pattern", record.Name)
				return nil
			}

			if prev, ok := seen[record.Name]; ok {
				sugar.Warnf("duplicate package %s at %s, keeping %s", record.Name, path, prev)
				return nil
			}
			seen[record.Name] = path

			records = append(records, record)
			opts.Collector.IncPackagesDiscovered()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	opts.Logger.Debug("scan complete", map[string]any{
		"roots":    opts.Roots,
		"packages": len(records),
	})
	return records, nil
}

// readManifest parses one package.json into a record, consulting the scan
// cache first when one is configured.
func readManifest(opts ScanOptions, path string) (types.PackageRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.PackageRecord{}, &ManifestError{Path: path, Kind: ErrInvalidManifest, Err: err}
	}

	if opts.Cache != nil {
		if record, ok := opts.Cache.Lookup(path, info); ok {
			opts.Collector.IncScanCacheHit()
			return record, nil
		}
		opts.Collector.IncScanCacheMiss()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.PackageRecord{}, &ManifestError{Path: path, Kind: ErrInvalidManifest, Err: err}
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return types.PackageRecord{}, &ManifestError{Path: path, Kind: ErrInvalidManifest, Err: err}
	}

	name, ok := m.Name.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return types.PackageRecord{}, &ManifestError{Path: path, Kind: ErrMissingName}
	}

	record := types.NewPackageRecord(name, m.Version, filepath.Dir(path),
		m.Dependencies, m.DevDependencies, m.PeerDependencies, m.OptionalDeps)

	if opts.Cache != nil {
		opts.Cache.Store(path, info, record)
	}
	return record, nil
}

// relPath returns the slash-separated path of target relative to root,
// falling back to target itself when the roots differ.
func relPath(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// matchesAny reports whether any candidate matches any of the patterns.
// Invalid patterns never match; pattern validity is checked up front by the
// CLI layer.
func matchesAny(patterns []string, candidates ...string) bool {
	for _, pattern := range patterns {
		for _, candidate := range candidates {
			if ok, err := doublestar.Match(pattern, candidate); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// ValidateExcludes checks every exclusion pattern for doublestar syntax
// errors so bad patterns fail fast instead of silently matching nothing.
func ValidateExcludes(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclusion pattern %q", pattern)
		}
	}
	return nil
}
