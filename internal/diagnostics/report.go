package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Reporter renders Diagnostics Rust-style: a colored
// "severity[KIND]: message" header, a "--> file:line:col" location
// line, optional surrounding source context with a caret, and
// suggestions/notes. Color is gated on the output actually being a
// terminal.
type Reporter struct {
	out        io.Writer
	colorForce *bool // nil: auto-detect; non-nil: force on/off (tests)
	sources    map[string][]string
}

// NewReporter creates a Reporter writing to w. Source text for a file can
// be registered with SetSource so the printed diagnostic can show the
// offending line; without it, only the bare location is printed, since
// the compiler has no parser of its own and may be fed ASTs whose
// original text is unavailable.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{out: w, sources: make(map[string][]string)}
}

// SetSource registers the source text for file, enabling caret context
// lines for diagnostics whose Token.File matches.
func (r *Reporter) SetSource(file, text string) {
	r.sources[file] = strings.Split(text, "\n")
}

// ForceColor overrides terminal auto-detection, for deterministic tests.
func (r *Reporter) ForceColor(on bool) {
	r.colorForce = &on
}

func (r *Reporter) colorEnabled() bool {
	if r.colorForce != nil {
		return *r.colorForce
	}
	if f, ok := r.out.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Report writes every diagnostic in the Bag to the Reporter's writer.
func (r *Reporter) Report(bag *Bag) {
	for _, d := range bag.Items() {
		r.ReportOne(d)
	}
}

// ReportOne writes a single diagnostic.
func (r *Reporter) ReportOne(d *Diagnostic) {
	enabled := r.colorEnabled()
	levelColor := r.levelColor(d.Severity, enabled)
	bold := r.style(enabled, color.Bold)
	dim := r.style(enabled, color.Faint)
	cyan := r.style(enabled, color.FgCyan)
	blue := r.style(enabled, color.FgBlue)
	green := r.style(enabled, color.FgGreen)

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s\n", levelColor(string(d.Severity)), d.Kind, d.Message)
	fmt.Fprintf(&b, "  %s %s\n", dim("-->"), d.Token)

	if lines, ok := r.sources[d.Token.File]; ok && d.Token.Line > 0 && d.Token.Line <= len(lines) {
		line := lines[d.Token.Line-1]
		fmt.Fprintf(&b, "  %s\n", dim("│"))
		fmt.Fprintf(&b, "%s %s %s\n", bold(fmt.Sprintf("%3d", d.Token.Line)), dim("│"), line)
		col := d.Token.Column
		if col < 1 {
			col = 1
		}
		marker := strings.Repeat(" ", col-1) + "^"
		fmt.Fprintf(&b, "  %s %s\n", dim("│"), levelColor(marker))
	}

	if len(d.Provenance.Chain) > 0 {
		fmt.Fprintf(&b, "  %s inlined via:\n", dim("│"))
		for i := len(d.Provenance.Chain) - 1; i >= 0; i-- {
			link := d.Provenance.Chain[i]
			fmt.Fprintf(&b, "  %s   %s (inline #%d) at %s\n", dim("│"), link.Callee, link.InlineID, link.CallSite)
		}
	}

	for _, note := range d.Notes {
		fmt.Fprintf(&b, "  %s %s %s\n", dim("│"), blue("note:"), note)
	}
	for i, s := range d.Suggestions {
		if i == 0 {
			fmt.Fprintf(&b, "  %s %s: %s\n", cyan("help"), cyan("try"), s.Message)
		} else {
			fmt.Fprintf(&b, "  %s %s\n", cyan("    "), s.Message)
		}
	}
	if d.Witness != nil {
		fmt.Fprintf(&b, "  %s %s %v\n", dim("│"), green("witness:"), d.Witness)
	}
	b.WriteString("\n")
	fmt.Fprint(r.out, b.String())
}

func (r *Reporter) style(enabled bool, attrs ...color.Attribute) func(string) string {
	if !enabled {
		return func(s string) string { return s }
	}
	c := color.New(attrs...)
	fn := c.SprintFunc()
	return func(s string) string { return fn(s) }
}

func (r *Reporter) levelColor(sev Severity, enabled bool) func(...any) string {
	if !enabled {
		return func(args ...any) string { return fmt.Sprint(args...) }
	}
	switch sev {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
