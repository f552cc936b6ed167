package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/techviz/internal/engine"
	"github.com/conneroisu/techviz/internal/routing"
	"github.com/conneroisu/techviz/internal/topology"
)

func parseHTML(content string) (*html.Node, error) {
	return html.Parse(strings.NewReader(content))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collect returns every element with the given tag and class in document
// order. An empty class matches any element with the tag.
func collect(node *html.Node, tag, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag && (class == "" || attr(n, "class") == class) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func sampleFrame() engine.Frame {
	return engine.Frame{
		Tick:   3,
		Width:  800,
		Height: 600,
		Nodes: []engine.NodeView{
			{Index: 0, Label: "PostgreSQL", Kind: topology.KindPostgres, X: 100, Y: 100, Width: 140, Height: 140,
				Shape: topology.ShapeCylinder, Color: "#ffd43b", Opacity: 0.5, Pulse: 1},
			{Index: 1, Label: "Redis <Cache>", Kind: topology.KindRedis, X: 300, Y: 100, Width: 100, Height: 100,
				Shape: topology.ShapeDiamond, Color: "#e67e22", Opacity: 0.5, Pulse: 1},
			{Index: 2, Label: "API Gateway", Kind: topology.KindAPIGateway, X: 400, Y: 400, Width: 180, Height: 80,
				Shape: topology.ShapeRectangle, CornerRadius: 12, Color: "#8e44ad", Opacity: 0.5, Pulse: 1.02},
		},
		Edges: []engine.EdgeView{
			{From: 0, To: 2, Points: []topology.Vec{{X: 170, Y: 100}, {X: 400, Y: 100}, {X: 400, Y: 360}}},
		},
		Packets: []engine.PacketView{
			{From: 2, To: 0, X: 250, Y: 100, Size: 4, Fill: "#8e44ad", Glyph: "→",
				Route: []topology.Vec{{X: 400, Y: 360}, {X: 170, Y: 100}}},
			{From: 1, To: 2, X: 350, Y: 250, Size: 3, Fill: "#2ecc71", Glyph: "●",
				Route: []topology.Vec{{X: 300, Y: 150}, {X: 400, Y: 360}}},
		},
	}
}

func TestSceneDrawsEveryElement(t *testing.T) {
	frame := sampleFrame()
	var buf bytes.Buffer
	require.NoError(t, Scene(frame, DefaultSceneOptions()).Render(context.Background(), &buf))

	doc, err := parseHTML(buf.String())
	require.NoError(t, err)

	svgs := collect(doc, "svg", "")
	require.Len(t, svgs, 1)
	assert.Equal(t, "3", attr(svgs[0], "data-tick"))

	nodes := collect(doc, "g", "node")
	require.Len(t, nodes, len(frame.Nodes))
	assert.Len(t, collect(doc, "polyline", "edge"), len(frame.Edges))
	assert.Len(t, collect(doc, "circle", "packet"), len(frame.Packets))

	// One outline per node, in the shape family of its kind.
	assert.Len(t, collect(nodes[0], "path", "shape"), 1)
	assert.Len(t, collect(nodes[1], "polygon", "shape"), 1)
	assert.Len(t, collect(nodes[2], "rect", "shape"), 1)
	assert.Equal(t, "translate(400.00 400.00) scale(1.02)", attr(nodes[2], "transform"))

	labels := collect(doc, "text", "label")
	require.Len(t, labels, 3)
	assert.Equal(t, "Redis <Cache>", textOf(labels[1]))
	assert.NotContains(t, buf.String(), "<Cache>")
}

func TestScenePacketsDrawnOverNodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Scene(sampleFrame(), DefaultSceneOptions()).Render(context.Background(), &buf))
	out := buf.String()

	lastEdge := strings.LastIndex(out, `class="edge"`)
	firstNode := strings.Index(out, `class="node"`)
	lastNode := strings.LastIndex(out, `class="node"`)
	firstPacket := strings.Index(out, `class="packet"`)
	require.True(t, lastEdge >= 0 && firstNode >= 0 && firstPacket >= 0)
	assert.Less(t, lastEdge, firstNode)
	assert.Less(t, lastNode, firstPacket)
}

func TestSceneAlphaAppliedOnce(t *testing.T) {
	frame := sampleFrame()
	frame.Edges[0].Style = routing.StyleFor(topology.KindService, topology.KindService, 0, 300)

	var buf bytes.Buffer
	require.NoError(t, Scene(frame, DefaultSceneOptions()).Render(context.Background(), &buf))
	doc, err := parseHTML(buf.String())
	require.NoError(t, err)

	// The stroke colour carries the distance fade; nothing multiplies it again.
	edges := collect(doc, "polyline", "edge")
	require.Len(t, edges, 1)
	assert.Equal(t, "rgba(0, 173, 216, 0.300)", attr(edges[0], "stroke"))
	assert.Empty(t, attr(edges[0], "stroke-opacity"))
	assert.Empty(t, attr(edges[0], "opacity"))

	// Nodes fill at their own opacity with an opaque outline.
	for _, n := range collect(doc, "g", "node") {
		assert.Empty(t, attr(n, "opacity"))
	}
	rect := collect(doc, "rect", "shape")
	require.Len(t, rect, 1)
	assert.Equal(t, "0.50", attr(rect[0], "fill-opacity"))
	assert.Empty(t, attr(rect[0], "stroke-opacity"))

	routes := collect(doc, "polyline", "route")
	require.NotEmpty(t, routes)
	assert.Equal(t, "2", attr(routes[0], "stroke-width"))
}

func TestPageScriptAlpha(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Page(DefaultPageOptions()).Render(context.Background(), &buf))
	out := buf.String()
	assert.NotContains(t, out, "globalAlpha = e.style.opacity")
	assert.Contains(t, out, "ctx.globalAlpha = n.opacity;")
}

func TestSceneOptions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Scene(sampleFrame(), SceneOptions{}).Render(context.Background(), &buf))

	doc, err := parseHTML(buf.String())
	require.NoError(t, err)
	assert.Empty(t, collect(doc, "rect", "background"))
	assert.Empty(t, collect(doc, "text", "label"))
	assert.Len(t, collect(doc, "g", "node"), 3)
}

func TestSceneFromEngine(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.Seed = 7
	e, err := engine.New(topology.DefaultLayout(), opts)
	require.NoError(t, err)
	var frame engine.Frame
	for i := 0; i < 10; i++ {
		frame = e.Step(context.Background())
	}

	var buf bytes.Buffer
	require.NoError(t, Scene(frame, DefaultSceneOptions()).Render(context.Background(), &buf))
	doc, err := parseHTML(buf.String())
	require.NoError(t, err)

	assert.Len(t, collect(doc, "g", "node"), 13)
	assert.Len(t, collect(doc, "circle", "packet"), len(frame.Packets))
	assert.Len(t, collect(doc, "polyline", "edge"), len(frame.Edges))
}

func TestPage(t *testing.T) {
	opts := DefaultPageOptions()
	opts.Title = `<script>alert(1)</script>`
	opts.SocketPath = "/live"
	opts.Nonce = "abc123"

	var buf bytes.Buffer
	require.NoError(t, Page(opts).Render(context.Background(), &buf))

	doc, err := parseHTML(buf.String())
	require.NoError(t, err)

	canvases := collect(doc, "canvas", "")
	require.Len(t, canvases, 1)
	assert.Equal(t, "/live", attr(canvases[0], "data-socket"))
	assert.Equal(t, "16", attr(canvases[0], "data-pointer-interval"))

	// The title is text, not markup.
	scripts := collect(doc, "script", "")
	require.Len(t, scripts, 1)
	assert.Equal(t, "abc123", attr(scripts[0], "nonce"))
	titles := collect(doc, "title", "")
	require.Len(t, titles, 1)
	assert.Equal(t, opts.Title, textOf(titles[0]))
}

func TestPageDefaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Page(PageOptions{}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `data-socket="/ws"`)
	assert.Contains(t, buf.String(), Background)
}

func TestKindTitle(t *testing.T) {
	tests := map[topology.Kind]string{
		topology.KindAPIGateway: "Api Gateway",
		topology.KindPostgres:   "Postgres",
		topology.KindRESTAPI:    "Rest Api",
	}
	for kind, want := range tests {
		assert.Equal(t, want, KindTitle(kind), string(kind))
	}
}
