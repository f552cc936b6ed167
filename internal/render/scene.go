// Package render is the draw pass: it turns engine frames into SVG documents
// and serves the HTML page whose canvas client draws streamed frames.
package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/techviz/internal/engine"
	"github.com/conneroisu/techviz/internal/topology"
)

// Background is the canvas fill behind the scene.
const Background = "#0b1120"

// SceneOptions controls SVG output.
type SceneOptions struct {
	// Background fills the canvas; empty means transparent.
	Background string
	// ShowLabels draws component labels under each shape.
	ShowLabels bool
}

// DefaultSceneOptions returns the options used by the snapshot endpoint.
func DefaultSceneOptions() SceneOptions {
	return SceneOptions{Background: Background, ShowLabels: true}
}

var titleCaser = cases.Title(language.English)

// KindTitle returns a human-readable name for a kind, splitting camel case:
// "apiGateway" becomes "Api Gateway".
func KindTitle(k topology.Kind) string {
	var words []string
	var cur strings.Builder
	for _, r := range string(k) {
		if unicode.IsUpper(r) && cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return titleCaser.String(strings.Join(words, " "))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func dashArray(dash []float64) string {
	if len(dash) == 0 {
		return "none"
	}
	parts := make([]string, len(dash))
	for i, d := range dash {
		parts[i] = num(d)
	}
	return strings.Join(parts, " ")
}

func points(pts []topology.Vec) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

// errWriter accumulates the first write error so drawing code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (s *errWriter) printf(format string, args ...interface{}) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

// Scene renders frame as a standalone SVG document. Edges are drawn first,
// then nodes, then packet routes and packets on top.
func Scene(frame engine.Frame, opts SceneOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		s := &errWriter{w: w}
		s.printf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" data-tick="%d">`,
			num(frame.Width), num(frame.Height), num(frame.Width), num(frame.Height), frame.Tick)
		if opts.Background != "" {
			s.printf(`<rect class="background" width="100%%" height="100%%" fill="%s"/>`, templ.EscapeString(opts.Background))
		}

		s.printf(`<g class="edges" fill="none">`)
		for _, e := range frame.Edges {
			s.printf(`<polyline class="edge" data-style="%s" points="%s" stroke="%s" stroke-width="%s" stroke-dasharray="%s"/>`,
				templ.EscapeString(e.Style.Name), points(e.Points), templ.EscapeString(e.Style.Color),
				num(e.Style.Width), dashArray(e.Style.Dash))
		}
		s.printf(`</g>`)

		s.printf(`<g class="nodes">`)
		for _, n := range frame.Nodes {
			writeNode(s, n, opts.ShowLabels)
		}
		s.printf(`</g>`)

		s.printf(`<g class="packets">`)
		for _, p := range frame.Packets {
			s.printf(`<polyline class="route" points="%s" fill="none" stroke="%s" stroke-width="2" stroke-dasharray="%s"/>`,
				points(p.Route), templ.EscapeString(p.RouteColor), dashArray(p.RouteDash))
			s.printf(`<circle class="packet" data-flow="%s" cx="%s" cy="%s" r="%s" fill="%s" stroke="#ffffff" stroke-width="1"/>`,
				templ.EscapeString(string(p.Flow)), num(p.X), num(p.Y), num(p.Size), templ.EscapeString(p.Fill))
			s.printf(`<text class="glyph" x="%s" y="%s" text-anchor="middle" dominant-baseline="central" font-size="%s" fill="#ffffff">%s</text>`,
				num(p.X), num(p.Y), num(p.Size*1.4), templ.EscapeString(p.Glyph))
		}
		s.printf(`</g>`)

		s.printf(`</svg>`)
		return s.err
	})
}

func writeNode(s *errWriter, n engine.NodeView, showLabels bool) {
	color := templ.EscapeString(n.Color)
	s.printf(`<g class="node" data-kind="%s" data-placement="%s" transform="translate(%s %s) scale(%s)">`,
		templ.EscapeString(string(n.Kind)), templ.EscapeString(string(n.Placement)),
		num(n.X), num(n.Y), num(n.Pulse))
	s.printf(`<title>%s</title>`, templ.EscapeString(n.Label))

	hw, hh := n.Width/2, n.Height/2
	// Translucent fill, opaque outline.
	style := fmt.Sprintf(`fill="%s" fill-opacity="%s" stroke="%s" stroke-width="2"`, color, num(n.Opacity), color)
	switch n.Shape {
	case topology.ShapeDiamond:
		s.printf(`<polygon class="shape" points="0,%s %s,0 0,%s %s,0" %s/>`,
			num(-hh), num(hw), num(hh), num(-hw), style)
	case topology.ShapeCylinder:
		ry := n.Height * 0.12
		top, bottom := -hh+ry, hh-ry
		s.printf(`<path class="shape" d="M %s %s L %s %s A %s %s 0 0 0 %s %s L %s %s" %s/>`,
			num(-hw), num(top), num(-hw), num(bottom), num(hw), num(ry), num(hw), num(bottom), num(hw), num(top), style)
		s.printf(`<ellipse cx="0" cy="%s" rx="%s" ry="%s" %s/>`, num(top), num(hw), num(ry), style)
	default:
		s.printf(`<rect class="shape" x="%s" y="%s" width="%s" height="%s" rx="%s" %s/>`,
			num(-hw), num(-hh), num(n.Width), num(n.Height), num(n.CornerRadius), style)
	}

	if showLabels {
		s.printf(`<text class="label" x="0" y="0" text-anchor="middle" dominant-baseline="central" font-family="monospace" font-size="12" fill="%s">%s</text>`,
			color, templ.EscapeString(n.Label))
		s.printf(`<text class="kind" x="0" y="16" text-anchor="middle" font-family="monospace" font-size="9" fill="%s" fill-opacity="0.7">%s</text>`,
			color, templ.EscapeString(KindTitle(n.Kind)))
	}
	s.printf(`</g>`)
}
