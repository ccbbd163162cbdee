package reporting

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/ethereum-optimism/infra/reportree/types"
)

// FormatHTML renders a standalone HTML page
const FormatHTML = "html"

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlFuncs = template.FuncMap{
	"statusClass": func(status types.Status) string {
		return string(status.Resolved())
	},
	"statusText": func(status types.Status) string {
		return string(status.Resolved())
	},
	"indentClass": func(depth int) string {
		return fmt.Sprintf("indent-%d", depth)
	},
	"multiply": func(a, b int) int {
		return a * b
	},
	"passRate": func(c types.Counter) string {
		return fmt.Sprintf("%.1f%%", c.PassRate())
	},
}

// htmlRow is one table row of the HTML report
type htmlRow struct {
	Entry    *types.Entry
	Address  string
	Depth    int
	Category string
	Group    bool
	Note     string
}

type htmlReport struct {
	Root   *types.Entry
	Rows   []htmlRow
	Depths []int
}

// HTMLFormatter renders a report as an HTML page
type HTMLFormatter struct {
	opts     Options
	template *template.Template
}

func NewHTMLFormatter(opts Options) (*HTMLFormatter, error) {
	tmpl, err := template.New("report.html.tmpl").Funcs(htmlFuncs).ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return &HTMLFormatter{opts: opts, template: tmpl}, nil
}

func (f *HTMLFormatter) Format(root *types.Entry) (string, error) {
	report := htmlReport{Root: root}
	maxDepth := 0
	for _, node := range visible(root, f.opts) {
		report.Rows = append(report.Rows, htmlRow{
			Entry:    node.entry,
			Address:  node.addr.String(),
			Depth:    len(node.addr) - 1,
			Category: categoryLabel(node.entry),
			Group:    node.entry.Category.IsGroup(),
			Note:     loadNote(node.entry),
		})
		maxDepth = max(maxDepth, len(node.addr)-1)
	}
	for d := 1; d <= maxDepth; d++ {
		report.Depths = append(report.Depths, d)
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return buf.String(), nil
}
