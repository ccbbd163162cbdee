package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
	"github.com/ethereum-optimism/infra/reportree/ui"
)

// Format names accepted by NewFormatter
const (
	FormatTable = "table"
	FormatText  = "text"
	FormatJSON  = "json"
)

// Formatter renders a report tree
type Formatter interface {
	Format(root *types.Entry) (string, error)
}

// Options controls what formatters include
type Options struct {
	// Title is shown above tables and text summaries
	Title string
	// Assertions includes assertion entries below testcases
	Assertions bool
	// Testcases includes testcase rows; off shows groups only
	Testcases bool
	// Color enables ANSI colors; output is stripped of escape codes otherwise
	Color bool
	// Indent pretty-prints JSON output
	Indent bool
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string, opts Options) (Formatter, error) {
	switch strings.ToLower(name) {
	case FormatTable:
		return &TableFormatter{opts: opts}, nil
	case FormatText, "":
		return &TextFormatter{opts: opts}, nil
	case FormatJSON:
		return &JSONFormatter{indent: opts.Indent}, nil
	case FormatHTML:
		return NewHTMLFormatter(opts)
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

// visibleNode is a node in display order with its tree prefix
type visibleNode struct {
	entry  *types.Entry
	addr   types.Address
	prefix string
}

// visible lists the nodes below root to display, in walk order
func visible(root *types.Entry, opts Options) []visibleNode {
	shown := func(e *types.Entry) bool {
		switch {
		case e.IsAssertion():
			return opts.Assertions
		case e.Category.IsBottommost():
			return opts.Testcases
		}
		return true
	}
	// index of the last shown child of every visited node
	lastChild := make(map[string]int)
	var out []visibleNode
	var prefixer ui.Prefixer
	tree.Walk(root, func(e *types.Entry, addr types.Address) bool {
		if len(addr) > 0 && !shown(e) {
			return false
		}
		last := -1
		children := e.Entries.Entries()
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil && shown(children[i]) {
				last = i
				break
			}
		}
		lastChild[addr.String()] = last
		if len(addr) > 0 {
			isLast := addr[len(addr)-1] >= lastChild[addr[:len(addr)-1].String()]
			out = append(out, visibleNode{entry: e, addr: addr, prefix: prefixer.Enter(len(addr), isLast)})
		}
		return last >= 0
	})
	return out
}

// loadNote describes children that are not loaded
func loadNote(e *types.Entry) string {
	switch e.Entries.State() {
	case types.StatePending:
		return "pending"
	case types.StateFailed:
		if err := e.Entries.Err(); err != nil {
			return "load failed: " + err.Error()
		}
		return "load failed"
	}
	return ""
}

func categoryLabel(e *types.Entry) string {
	if e.Kind != "" && !e.IsAssertion() {
		return e.Kind
	}
	return string(e.Category)
}

// TableFormatter renders a report as an ASCII table
type TableFormatter struct {
	opts Options
}

func NewTableFormatter(opts Options) *TableFormatter {
	return &TableFormatter{opts: opts}
}

// Format renders root as a table with one row per visible node
func (f *TableFormatter) Format(root *types.Entry) (string, error) {
	if root == nil {
		return "", fmt.Errorf("no report to format")
	}
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	title := f.opts.Title
	if title == "" {
		title = root.Name
	}
	t.SetTitle(title)
	t.AppendHeader(table.Row{"CATEGORY", "NAME", "TESTS", "PASSED", "FAILED", "ERROR", "STATUS"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "CATEGORY", AutoMerge: true},
		{Name: "NAME", WidthMax: 200, WidthMaxEnforcer: text.WrapSoft},
		{Name: "TESTS", Align: text.AlignRight},
		{Name: "PASSED", Align: text.AlignRight},
		{Name: "FAILED", Align: text.AlignRight},
		{Name: "ERROR", Align: text.AlignRight},
	})

	for _, node := range visible(root, f.opts) {
		e := node.entry
		name := node.prefix + e.Name
		if note := loadNote(e); note != "" && !e.IsAssertion() {
			name += fmt.Sprintf(" [%s]", note)
		}
		if e.IsAssertion() {
			t.AppendRow(table.Row{categoryLabel(e), name, "", "", "", "", strings.ToUpper(string(e.Status.Resolved()))})
			continue
		}
		t.AppendRow(table.Row{
			categoryLabel(e),
			name,
			e.Counter.Total,
			e.Counter.Passed,
			e.Counter.Failed,
			e.Counter.Error,
			statusLabel(e),
		})
	}

	if f.opts.Color {
		switch root.Status.Resolved() {
		case types.StatusFailed, types.StatusError:
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		case types.StatusIncomplete, types.StatusUnknown:
			t.SetStyle(table.StyleColoredBlackOnYellowWhite)
		case types.StatusPassed:
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		}
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		root.Counter.Total,
		root.Counter.Passed,
		root.Counter.Failed,
		root.Counter.Error,
		strings.ToUpper(string(root.Status.Resolved())),
	})
	t.Render()
	return finish(buf.String(), f.opts.Color), nil
}

// statusLabel prefers the wire status, so a skipped testcase reads SKIPPED
func statusLabel(e *types.Entry) string {
	s := string(e.Status.Resolved())
	if e.RawStatus != "" && e.WireStatus() == e.RawStatus {
		s = e.RawStatus
	}
	return strings.ToUpper(s)
}

// TextFormatter renders a report as an indented tree with a summary box
type TextFormatter struct {
	opts Options
}

func NewTextFormatter(opts Options) *TextFormatter {
	return &TextFormatter{opts: opts}
}

const summaryWidth = 50

// Format renders root as text
func (f *TextFormatter) Format(root *types.Entry) (string, error) {
	if root == nil {
		return "", fmt.Errorf("no report to format")
	}
	var buf bytes.Buffer
	title := f.opts.Title
	if title == "" {
		title = root.Name
	}
	buf.WriteString(ui.BuildBoxHeader(title, summaryWidth))
	buf.WriteString(ui.BuildBoxLine(fmt.Sprintf("Status: %s", strings.ToUpper(string(root.Status.Resolved()))), summaryWidth))
	buf.WriteString(ui.BuildBoxLine(fmt.Sprintf("Tests: %d  Passed: %d  Failed: %d  Error: %d",
		root.Counter.Total, root.Counter.Passed, root.Counter.Failed, root.Counter.Error), summaryWidth))
	buf.WriteString(ui.BuildBoxLine(fmt.Sprintf("Pass Rate: %.1f%%", root.Counter.PassRate()), summaryWidth))
	if tags := tree.TagIndex(root)[types.Address{}.String()]; len(tags) > 0 {
		buf.WriteString(ui.BuildBoxLine("Tags: "+tags.Label(), summaryWidth))
	}
	buf.WriteString(ui.BuildBoxFooter(summaryWidth))
	buf.WriteString("\n")

	for _, node := range visible(root, f.opts) {
		e := node.entry
		line := fmt.Sprintf("%s%s %s", node.prefix, colorize(ui.StatusSymbol(e.Status), e.Status, f.opts.Color), e.Name)
		if e.Category.IsGroup() {
			line += fmt.Sprintf(" [%d tests, %d passed, %d failed, %d error]",
				e.Counter.Total, e.Counter.Passed, e.Counter.Failed, e.Counter.Error)
		}
		if note := loadNote(e); note != "" && !e.IsAssertion() {
			line += fmt.Sprintf(" (%s)", note)
		}
		buf.WriteString(line + "\n")
	}

	failed := tree.Find(root, func(e *types.Entry) bool {
		return e.Category.IsBottommost() && e.Status.IsFailure()
	})
	if len(failed) > 0 {
		buf.WriteString("\nFailed Testcases:\n")
		buf.WriteString(strings.Repeat("-", 20) + "\n")
		for _, loc := range failed {
			fmt.Fprintf(&buf, "- %s (%s)\n", path(root, loc.Address), loc.Entry.Status)
		}
	}
	return finish(buf.String(), f.opts.Color), nil
}

// path joins the names from below root down to addr
func path(root *types.Entry, addr types.Address) string {
	names := make([]string, 0, len(addr))
	node := root
	for _, idx := range addr {
		node = node.Entries.At(idx)
		if node == nil {
			break
		}
		names = append(names, node.Name)
	}
	return strings.Join(names, " / ")
}

func colorize(s string, status types.Status, enabled bool) string {
	if !enabled {
		return s
	}
	switch status.Resolved() {
	case types.StatusPassed:
		return text.FgGreen.Sprint(s)
	case types.StatusFailed, types.StatusError:
		return text.FgRed.Sprint(s)
	case types.StatusIncomplete:
		return text.FgYellow.Sprint(s)
	}
	return s
}

// finish strips escape codes when colors are disabled
func finish(s string, color bool) string {
	if color {
		return s
	}
	return stripansi.Strip(s)
}

// JSONFormatter renders a report in report document form
type JSONFormatter struct {
	indent bool
}

func NewJSONFormatter(indent bool) *JSONFormatter {
	return &JSONFormatter{indent: indent}
}

func (f *JSONFormatter) Format(root *types.Entry) (string, error) {
	data, err := types.EncodeReport(root, f.indent)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(data), nil
}
