// Package types defines the shared data model for the kodrdriv CLI.
//
// Types here are leaf records passed between the scanner, graph, and
// orchestrator. They carry no behavior beyond validation and formatting.
package types

import "sort"

// PackageRecord describes one package.json discovered during a workspace scan.
// Records are created once per scan pass and are immutable thereafter.
type PackageRecord struct {
	// Name is the package name from package.json. Always non-empty;
	// a manifest without a name fails the scan.
	Name string `json:"name"`
	// Version is the package version, if declared.
	Version string `json:"version,omitempty"`
	// Dir is the absolute path of the directory containing package.json.
	Dir string `json:"dir"`
	// Dependencies is the sorted union of the dependencies, devDependencies,
	// peerDependencies, and optionalDependencies keys. It includes external
	// packages; resolution to local workspace packages happens in the graph
	// builder.
	Dependencies []string `json:"dependencies,omitempty"`
}

// NewPackageRecord builds a record from parsed manifest fields.
// The dependency sets are merged and sorted so that records compare
// deterministically regardless of JSON map iteration order.
func NewPackageRecord(name, version, dir string, depSets ...map[string]string) PackageRecord {
	seen := make(map[string]struct{})
	var deps []string
	for _, set := range depSets {
		for dep := range set {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			deps = append(deps, dep)
		}
	}
	sort.Strings(deps)
	return PackageRecord{
		Name:         name,
		Version:      version,
		Dir:          dir,
		Dependencies: deps,
	}
}

// DependsOn reports whether the record declares dep under any dependency field.
func (p PackageRecord) DependsOn(dep string) bool {
	for _, d := range p.Dependencies {
		if d == dep {
			return true
		}
	}
	return false
}
