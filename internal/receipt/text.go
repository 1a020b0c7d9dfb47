package receipt

import (
	"bytes"
	"strings"
)

// textWidth is the column count of the plain-text surface, sized for 80mm
// thermal line printers.
const textWidth = 42

// TextRenderer renders layout lines onto a fixed-width text surface.
type TextRenderer struct{}

// Ext returns the file extension for text receipts.
func (TextRenderer) Ext() string { return ".txt" }

// Render produces the receipt as newline-separated fixed-width text.
// Bold and size hints are ignored; the layout carries all structure.
func (TextRenderer) Render(lines []Line) ([]byte, error) {
	var buf bytes.Buffer
	for _, ln := range lines {
		switch ln.Kind {
		case KindCenter:
			buf.WriteString(centerText(ln.Text))
		case KindRule:
			buf.WriteString(strings.Repeat("-", textWidth))
		case KindPair:
			buf.WriteString(pairText(ln.Label, ln.Value))
		case KindColumns:
			buf.WriteString(columnsText(ln.Cols))
		case KindBlank:
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func centerText(s string) string {
	if len(s) >= textWidth {
		return s
	}
	return strings.Repeat(" ", (textWidth-len(s))/2) + s
}

func pairText(label, value string) string {
	gap := textWidth - len(label) - len(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

// columnsText lays out an items row: name column padded left, the numeric
// columns right-aligned in fixed slots.
func columnsText(cols [4]string) string {
	name := cols[0]
	if len(name) > 23 {
		name = name[:23]
	}
	return pad(name, 23) + padLeft(cols[1], 4, ' ') + padLeft(cols[2], 7, ' ') + padLeft(cols[3], 8, ' ')
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func padLeft(s string, n int, c byte) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat(string(c), n-len(s)) + s
}
