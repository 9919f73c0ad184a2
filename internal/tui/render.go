package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/diagnostics"
	"github.com/Yousha/dotlyzer/internal/format"
	"github.com/Yousha/dotlyzer/internal/inspect"
)

const ruleWidth = 60

// Renderer turns reports into plain or styled terminal text.
type Renderer struct {
	writer   io.Writer
	useColor bool
	now      func() time.Time
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, useColor bool) *Renderer {
	return &Renderer{writer: w, useColor: useColor, now: time.Now}
}

// Render writes the text form of report.
func (r *Renderer) Render(report diagnostics.Report) error {
	text, err := r.Format(report)
	if err != nil {
		return err
	}
	_, err = io.WriteString(r.writer, text)
	return err
}

// RenderAbout writes the application description.
func (r *Renderer) RenderAbout() error {
	_, err := io.WriteString(r.writer, r.About())
	return err
}

// RenderError writes err as a single displayable line.
func (r *Renderer) RenderError(err error) error {
	_, werr := io.WriteString(r.writer, r.errorLine(err)+"\n")
	return werr
}

// Format returns the text form of report.
func (r *Renderer) Format(report diagnostics.Report) (string, error) {
	p := &page{r: r}
	switch rep := report.(type) {
	case *diagnostics.SystemReport:
		r.system(p, rep)
	case *diagnostics.MemoryReport:
		r.memory(p, rep)
	case *diagnostics.ThreadsReport:
		r.threads(p, rep)
	case *diagnostics.FeaturesReport:
		r.features(p, rep)
	case *diagnostics.ProfileReport:
		r.profile(p, rep)
	case *diagnostics.PermissionsReport:
		r.header(p, "Permissions", rep.Header)
		r.permissions(p, rep.Permissions)
	case *diagnostics.ProcessListReport:
		r.processes(p, rep)
	case *diagnostics.DumpReport:
		r.dump(p, rep)
	default:
		return "", fmt.Errorf("no text form for %T", report)
	}
	return p.String(), nil
}

// About returns the application description.
func (r *Renderer) About() string {
	p := &page{r: r}
	p.title("About")
	p.field("Name", core.AppName)
	p.field("Version", core.AppVersion)
	p.field("Description", core.AppDescription)
	p.section("Features")
	for _, f := range core.Features {
		p.line("  - " + f)
	}
	return p.String()
}

func (r *Renderer) errorLine(err error) string {
	msg := "error: " + err.Error()
	if core.IsNotFound(err) {
		msg = "error: process not found or has exited"
	}
	return r.style(ErrorStyle, msg)
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.useColor {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) when(t time.Time) string {
	if t.IsZero() {
		return format.Timestamp(t)
	}
	return format.Timestamp(t) + " (" + humanize.RelTime(t, r.now(), "ago", "from now") + ")"
}

func (r *Renderer) header(p *page, title string, h diagnostics.Header) {
	if h.PID != 0 {
		title += " (pid " + strconv.Itoa(int(h.PID)) + ")"
	}
	p.title(title)
	p.field("Report ID", h.ReportID)
	p.field("Captured", r.when(h.CapturedAt))
}

func (r *Renderer) system(p *page, rep *diagnostics.SystemReport) {
	r.header(p, "System Diagnostics", rep.Header)

	p.section("Identity")
	if id, ok := rep.Identity.Get(); ok {
		p.field("Name", id.Name)
		p.field("Executable", show(r, id.Exe, ident[string]))
		p.field("Parent PID", show(r, id.ParentPID, func(v int32) string { return strconv.Itoa(int(v)) }))
		p.field("User", show(r, id.User, ident[string]))
		p.field("Started", show(r, id.StartTime, r.when))
		p.field("Command line", show(r, id.CommandLine, func(v []string) string { return strings.Join(v, " ") }))
		p.field("Managed runtime", show(r, id.Managed, r.managed))
	} else {
		p.line("  " + r.unavailable(rep.Identity.Reason()))
	}

	r.permissions(p, rep.Permissions)

	p.section("Host")
	h, ok := rep.Host.Get()
	if !ok {
		p.line("  " + r.unavailable(rep.Host.Reason()))
		return
	}
	p.field("Operating system", show(r, h.OS, func(o diagnostics.OSInfo) string {
		s := strings.TrimSpace(o.Platform + " " + o.PlatformVersion)
		if s == "" {
			s = o.OS
		}
		return fmt.Sprintf("%s (kernel %s, %s)", s, o.KernelVersion, o.KernelArch)
	}))
	p.field("Hostname", show(r, h.OS, func(o diagnostics.OSInfo) string { return o.Hostname }))
	p.field("Host uptime", show(r, h.OS, func(o diagnostics.OSInfo) string { return format.Duration(o.Uptime) }))
	p.field("CPU", show(r, h.CPU, func(c diagnostics.CPUInfo) string {
		return fmt.Sprintf("%s (%d cores, %d threads)", c.Model, c.Cores, c.Threads)
	}))
	p.field("Memory", show(r, h.Memory, usage))
	p.field("Root disk", show(r, h.Disk, usage))
	p.field("Load average", show(r, h.Load, func(l diagnostics.LoadInfo) string {
		return fmt.Sprintf("%.2f %.2f %.2f", l.Load1, l.Load5, l.Load15)
	}))
	p.field("GPUs", show(r, h.GPUs, func(gpus []diagnostics.GPUInfo) string {
		if len(gpus) == 0 {
			return "none detected"
		}
		names := make([]string, len(gpus))
		for i, g := range gpus {
			names[i] = fmt.Sprintf("#%d %s", g.Index, g.Name)
		}
		return strings.Join(names, ", ")
	}))
}

func (r *Renderer) permissions(p *page, res core.Result[inspect.PermissionReport]) {
	p.section("Permissions")
	perms, ok := res.Get()
	if !ok {
		p.line("  " + r.unavailable(res.Reason()))
		return
	}
	p.field("Session ID", show(r, perms.SessionID, func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }))
	p.field("Priority class", show(r, perms.PriorityClass, ident[string]))
	p.field("Caller is admin", show(r, perms.CallerIsAdmin, yesNo))
	arch := string(perms.Architecture)
	if perms.ArchitectureErr != nil {
		arch += " " + r.unavailable("("+core.UnavailableReason(perms.ArchitectureErr)+")")
	}
	p.field("Architecture", arch)
	p.field("Working dir (caller)", show(r, perms.CallerWorkDir, ident[string]))
	p.field("Arguments (caller)", strings.Join(perms.CallerArgs, " "))
}

func (r *Renderer) memory(p *page, rep *diagnostics.MemoryReport) {
	r.header(p, "Memory Analysis", rep.Header)

	p.section("Memory counters")
	if c, ok := rep.Counters.Get(); ok {
		p.field("Working set", show(r, c.WorkingSet, format.Bytes))
		p.field("Peak working set", show(r, c.PeakWorkingSet, format.Bytes))
		p.field("Private bytes", show(r, c.Private, format.Bytes))
		p.field("Virtual size", show(r, c.Virtual, format.Bytes))
		p.field("Paged", show(r, c.Paged, format.Bytes))
		p.field("Peak paged", show(r, c.PeakPaged, format.Bytes))
	} else {
		p.line("  " + r.unavailable(rep.Counters.Reason()))
	}

	p.section(diagnostics.SelfRuntimeCaption)
	rt, ok := rep.Inspector.Get()
	if !ok {
		p.line("  " + r.unavailable(rep.Inspector.Reason()))
		return
	}
	p.field("Goroutines", humanize.Comma(int64(rt.Goroutines)))
	p.field("Heap allocated", format.Bytes(rt.HeapAlloc))
	p.field("Heap in use", format.Bytes(rt.HeapInUse))
	p.field("Stack in use", format.Bytes(rt.StackInUse))
	p.field("Total allocated", format.Bytes(rt.TotalAlloc))
	p.field("GC cycles", fmt.Sprintf("%s (%s forced)", humanize.Comma(int64(rt.NumGC)), humanize.Comma(int64(rt.NumForcedGC))))
	p.field("Last GC pause", rt.LastGCPause.String())
	if rt.MaxFDs > 0 {
		p.field("Open files", fmt.Sprintf("%d / %d (%s)", rt.OpenFDs, rt.MaxFDs, format.Percent(rt.FDUsagePercent)))
	} else {
		p.field("Open files", strconv.Itoa(rt.OpenFDs))
	}
	p.field("Inspector uptime", format.Duration(rt.Uptime))
}

func (r *Renderer) threads(p *page, rep *diagnostics.ThreadsReport) {
	r.header(p, "Thread Analysis", rep.Header)
	p.section("Threads")
	s, ok := rep.Threads.Get()
	if !ok {
		p.line("  " + r.unavailable(rep.Threads.Reason()))
		return
	}
	p.field("Thread count", humanize.Comma(int64(s.Count)))
	if s.Skipped > 0 {
		p.field("Skipped", r.unavailable(strconv.Itoa(s.Skipped)+" exited or unreadable"))
	}

	p.section("States")
	for _, sc := range s.StateCounts {
		p.field(string(sc.State), strconv.Itoa(sc.Count))
	}

	p.section(fmt.Sprintf("Top %d by CPU time", len(s.Top)))
	p.line(r.style(LabelStyle, fmt.Sprintf("  %-8s %-14s %-14s %-14s %s", "TID", "STATE", "CPU", "USER", "STARTED")))
	for _, t := range s.Top {
		p.line(fmt.Sprintf("  %-8d %-14s %-14s %-14s %s", t.ID, t.State,
			format.Duration(t.CPUTotal), format.Duration(t.CPUUser),
			show(r, t.StartTime, format.Timestamp)))
	}
}

func (r *Renderer) features(p *page, rep *diagnostics.FeaturesReport) {
	r.header(p, "Diagnostic Features", rep.Header)

	p.section("Runtime")
	p.field("Managed runtime", show(r, rep.Managed, r.managed))
	p.field("Handle count", show(r, rep.HandleCount, func(n int32) string { return humanize.Comma(int64(n)) }))
	p.field("Exceptions / stacks", show(r, rep.Exceptions, ident[string]))

	p.section("Modules")
	mods, ok := rep.Modules.Get()
	if !ok {
		p.line("  " + r.unavailable(rep.Modules.Reason()))
		return
	}
	p.field("Loaded modules", humanize.Comma(int64(mods.Total)))
	p.line(r.style(LabelStyle, "  Largest:"))
	for _, m := range mods.Top {
		p.line(fmt.Sprintf("    %-32s %10s", m.Name, format.Bytes(m.Size)))
	}
	p.line(r.style(LabelStyle, "  Load order:"))
	for _, m := range mods.Listing {
		p.line(fmt.Sprintf("    %-32s %s", m.Name, r.style(SubtleStyle, m.Path)))
	}
	if mods.Omitted > 0 {
		p.line(r.style(SubtleStyle, fmt.Sprintf("    ... and %s more", humanize.Comma(int64(mods.Omitted)))))
	}
}

func (r *Renderer) profile(p *page, rep *diagnostics.ProfileReport) {
	r.header(p, "Performance Profile", rep.Header)

	p.section("CPU")
	if c, ok := rep.CPU.Get(); ok {
		p.field("Total CPU time", show(r, c.Total, format.Duration))
		p.field("User time", show(r, c.User, format.Duration))
		p.field("Kernel time", show(r, c.Kernel, format.Duration))
		p.field("Started", show(r, c.StartTime, r.when))
		p.field("Uptime", show(r, c.Uptime, format.Duration))
		p.field("CPU usage", show(r, c.Percent, format.Percent))
	} else {
		p.line("  " + r.unavailable(rep.CPU.Reason()))
	}

	p.section("Thread timing")
	timings, ok := rep.Threads.Get()
	if !ok {
		p.line("  " + r.unavailable(rep.Threads.Reason()))
		return
	}
	p.line(r.style(LabelStyle, fmt.Sprintf("  %-8s %-14s %-14s %-14s", "TID", "TOTAL", "USER", "KERNEL")))
	for _, t := range timings {
		p.line(fmt.Sprintf("  %-8d %-14s %-14s %-14s", t.ID,
			format.Duration(t.Total), format.Duration(t.User), format.Duration(t.Kernel)))
	}
}

func (r *Renderer) processes(p *page, rep *diagnostics.ProcessListReport) {
	r.header(p, "Processes", rep.Header)
	p.line("")
	p.line(r.style(LabelStyle, fmt.Sprintf("  %-8s %-40s %s", "PID", "NAME", "RUNTIME")))
	for _, e := range rep.Listing.Entries {
		p.line(r.processRow(e))
	}
	st := rep.Listing.Stats
	summary := fmt.Sprintf("%s processes", humanize.Comma(int64(st.Total)))
	if st.ModuleFailures > 0 {
		summary += fmt.Sprintf(", %d without module access", st.ModuleFailures)
	}
	if st.NameFailures > 0 {
		summary += fmt.Sprintf(", %d unnamed", st.NameFailures)
	}
	if st.Vanished > 0 {
		summary += fmt.Sprintf(", %d exited during listing", st.Vanished)
	}
	p.line("")
	p.line(r.style(SubtleStyle, "  "+summary))
}

func (r *Renderer) processRow(e inspect.ProcessEntry) string {
	row := fmt.Sprintf("  %-8d %-40s", e.PID, e.Name)
	if e.Managed {
		row += " " + r.style(ManagedBadge, "managed")
	}
	return strings.TrimRight(row, " ")
}

func (r *Renderer) dump(p *page, rep *diagnostics.DumpReport) {
	r.header(p, "Process Dump", rep.Header)
	d := rep.Dump
	p.field("Mode", d.Mode)
	if d.Succeeded {
		p.field("Result", r.style(SuccessStyle, "written"))
		p.field("File", d.Path)
		p.field("Size", format.Bytes(uint64(d.Size)))
		return
	}
	p.field("Result", r.style(ErrorStyle, "failed"))
	p.field("Reason", rep.Error)
	if d.NativeErrorCode != nil {
		p.field("Native error code", strconv.FormatUint(uint64(*d.NativeErrorCode), 10))
	}
	if d.Path != "" {
		p.field("Partial file", r.unavailable(d.Path+" (content not reliable)"))
	}
}

func (r *Renderer) managed(v bool) string {
	if v {
		return r.style(ManagedBadge, "managed")
	}
	return "native"
}

func (r *Renderer) unavailable(reason string) string {
	return r.style(UnavailableStyle, reason)
}

// show renders an available value with f and a failed one as its marker.
func show[T any](r *Renderer, res core.Result[T], f func(T) string) string {
	v, ok := res.Get()
	if !ok {
		return r.unavailable(res.Reason())
	}
	return f(v)
}

func ident[T ~string](v T) string { return string(v) }

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func usage(u diagnostics.UsageInfo) string {
	return fmt.Sprintf("%s / %s (%s)", format.Bytes(u.Used), format.Bytes(u.Total), format.Percent(u.UsedPercent))
}

// page accumulates lines in the fallback layout: a ruled title, then
// "---" section headings and aligned fields.
type page struct {
	r  *Renderer
	sb strings.Builder
}

func (p *page) title(text string) {
	rule := strings.Repeat("=", ruleWidth)
	p.line(rule)
	p.line(p.r.style(TitleStyle, ">>> "+text))
	p.line(rule)
}

func (p *page) section(text string) {
	p.line("")
	p.line(p.r.style(SectionStyle, "--- "+text))
}

func (p *page) field(label, value string) {
	p.line("  " + p.r.style(LabelStyle, fmt.Sprintf("%-22s", label+":")) + " " + value)
}

func (p *page) line(s string) {
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

func (p *page) String() string {
	return p.sb.String()
}
