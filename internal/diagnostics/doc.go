// Package diagnostics turns inspector output into the reports shown to the
// user.
//
// The Aggregator opens the target once per report and fills each section
// independently. A section whose source fails, or panics, is marked
// unavailable with the reason while the remaining sections are still
// produced. Only a target that cannot be found aborts a report.
//
// The package also reads the host summary (gopsutil and ghw) and the
// inspector's own Go runtime figures. The latter describe dotlyzer itself
// and are captioned as such wherever they appear.
package diagnostics
