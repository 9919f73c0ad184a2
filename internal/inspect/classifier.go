package inspect

import "strings"

var defaultRuntimeModules = []string{
	"clr.dll",
	"coreclr.dll",
	"mscorwks.dll",
	"libcoreclr.so",
	"libcoreclr.dylib",
}

// DefaultRuntimeModules returns the loader module names of the .NET runtimes.
func DefaultRuntimeModules() []string {
	return append([]string(nil), defaultRuntimeModules...)
}

// IsManagedRuntime reports whether any module's base name matches one of the
// known runtime identifiers, ignoring case. Order does not matter and an
// empty list is never managed.
func IsManagedRuntime(moduleNames []string, known []string) bool {
	if len(moduleNames) == 0 || len(known) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[strings.ToLower(k)] = struct{}{}
	}
	for _, name := range moduleNames {
		if _, ok := set[strings.ToLower(baseName(name))]; ok {
			return true
		}
	}
	return false
}

// baseName strips either separator; module paths from a Windows target may
// be classified on any host.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
