// Package core holds the application identity, the error taxonomy and the
// per-item result type shared by every other package.
package core

// Application identity shown by `about` and `version`.
const (
	AppName        = "Dotlyzer"
	AppDescription = "CLI & interactive based process analyzer and diagnostic tool."
	AppVersion     = "1.0.0.1"
)

// Features lists what the tool can report on, in menu order.
var Features = []string{
	"Process listing with managed-runtime detection",
	"Memory analysis",
	"Thread analysis",
	"Diagnostic features (modules, handles)",
	"Performance profiling",
	"Permission and architecture inspection",
	"Process dumps (normal and full memory)",
}
