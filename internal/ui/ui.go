// Package ui formats terminal output for the techviz CLI.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	Brand  = color.New(color.FgHiCyan, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

// Banner prints the product name and a subtitle.
func Banner(w io.Writer, subtitle string) {
	fmt.Fprintf(w, "%s  %s\n\n", Brand.Sprint("techviz"), Subtle.Sprint(subtitle))
}

// Table writes an aligned table. Widths are measured on the plain text, so
// cells should not carry colour codes except in the last column.
func Table(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header, sep strings.Builder
	for i, h := range headers {
		fmt.Fprintf(&header, "%-*s  ", widths[i], h)
		sep.WriteString(strings.Repeat("─", widths[i]) + "  ")
	}
	Subtle.Fprintln(w, strings.TrimRight(header.String(), " "))
	Subtle.Fprintln(w, strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
}

// StatusIcon returns a green check or a red cross.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

// WarnIcon returns a yellow warning sign.
func WarnIcon() string {
	return Warn.Sprint("⚠")
}

// Swatch renders a hex colour name in that colour when the terminal supports
// 24-bit colour.
func Swatch(hex string) string {
	var r, g, b int
	if _, err := fmt.Sscanf(strings.TrimPrefix(hex, "#"), "%02x%02x%02x", &r, &g, &b); err != nil {
		return hex
	}
	return color.RGB(r, g, b).Sprint(hex)
}
