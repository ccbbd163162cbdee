package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/ethereum-optimism/infra/reportree/types"
)

// Tree hierarchy symbols using box drawing characters
const (
	TreeBranch     = "├── "
	TreeLastBranch = "└── "
	TreeContinue   = "│   " // parent has more siblings
	TreeIndent     = "    " // parent was last

	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// Prefixer builds tree prefixes while a tree is walked depth-first. Call
// Enter for every node in walk order with its depth below the displayed
// root and whether it is the last of its siblings.
type Prefixer struct {
	lastAt []bool
}

// Enter returns the prefix of a node at depth, which must be at most one
// deeper than the previous node
func (p *Prefixer) Enter(depth int, isLast bool) string {
	if depth <= 0 {
		p.lastAt = p.lastAt[:0]
		return ""
	}
	if len(p.lastAt) >= depth {
		p.lastAt = p.lastAt[:depth-1]
	}
	prefix := BuildTreePrefix(depth, isLast, p.lastAt)
	p.lastAt = append(p.lastAt, isLast)
	return prefix
}

// BuildTreePrefix generates a tree prefix based on depth, position, and
// whether each ancestor was the last of its siblings
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			b.WriteString(TreeIndent)
		} else {
			b.WriteString(TreeContinue)
		}
	}
	if isLast {
		b.WriteString(TreeLastBranch)
	} else {
		b.WriteString(TreeBranch)
	}
	return b.String()
}

// StatusSymbol returns a single character for a status
func StatusSymbol(status types.Status) string {
	switch status.Resolved() {
	case types.StatusPassed:
		return "✓"
	case types.StatusFailed:
		return "✗"
	case types.StatusError:
		return "⚠"
	case types.StatusIncomplete:
		return "…"
	default:
		return "?"
	}
}

// BuildBoxHeader creates a box header with the given title and width
func BuildBoxHeader(title string, width int) string {
	titleLen := utf8.RuneCountInString(title)
	if width < titleLen+4 {
		width = titleLen + 4
	}
	padding := width - 4 - titleLen

	header := BoxTopLeft + repeatString(BoxHorizontal, width-2) + BoxTopRight + "\n"
	header += BoxVertical + " " + title + repeatString(" ", padding+1) + BoxVertical + "\n"
	header += BoxTeeRight + repeatString(BoxHorizontal, width-2) + BoxTeeLeft + "\n"
	return header
}

// BuildBoxFooter creates a box footer with the given width
func BuildBoxFooter(width int) string {
	return BoxBottomLeft + repeatString(BoxHorizontal, width-2) + BoxBottomRight + "\n"
}

// BuildBoxLine creates a content line within a box, truncating by runes
func BuildBoxLine(content string, width int) string {
	contentLen := utf8.RuneCountInString(content)
	maxContentLen := width - 4
	if contentLen > maxContentLen {
		runes := []rune(content)
		content = string(runes[:maxContentLen-3]) + "..."
		contentLen = maxContentLen
	}
	return BoxVertical + " " + content + repeatString(" ", maxContentLen-contentLen+1) + BoxVertical + "\n"
}

func repeatString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}
