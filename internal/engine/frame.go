package engine

import (
	"github.com/conneroisu/techviz/internal/packets"
	"github.com/conneroisu/techviz/internal/routing"
	"github.com/conneroisu/techviz/internal/topology"
)

// Frame is everything the draw pass needs for one tick. It is a value; the
// engine never mutates a frame after publishing it.
type Frame struct {
	Tick    uint64       `json:"tick"`
	Width   float64      `json:"width"`
	Height  float64      `json:"height"`
	Nodes   []NodeView   `json:"nodes"`
	Edges   []EdgeView   `json:"edges"`
	Packets []PacketView `json:"packets"`
}

// NodeView is a drawable node.
type NodeView struct {
	Index        int                `json:"index"`
	Label        string             `json:"label"`
	Kind         topology.Kind      `json:"kind"`
	X            float64            `json:"x"`
	Y            float64            `json:"y"`
	Width        float64            `json:"width"`
	Height       float64            `json:"height"`
	Shape        topology.Shape     `json:"shape"`
	CornerRadius float64            `json:"corner_radius"`
	Color        string             `json:"color"`
	Opacity      float64            `json:"opacity"`
	Pulse        float64            `json:"pulse"`
	FlowPhase    float64            `json:"flow_phase"`
	Placement    topology.Placement `json:"placement"`
}

// EdgeView is a drawable connection.
type EdgeView struct {
	From   int               `json:"from"`
	To     int               `json:"to"`
	Points []topology.Vec    `json:"points"`
	Style  routing.LineStyle `json:"style"`
}

// PacketView is a drawable packet with the route it travels.
type PacketView struct {
	From       int            `json:"from"`
	To         int            `json:"to"`
	Flow       packets.Flow   `json:"flow"`
	Progress   float64        `json:"progress"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Size       float64        `json:"size"`
	Fill       string         `json:"fill"`
	Glyph      string         `json:"glyph"`
	Route      []topology.Vec `json:"route"`
	RouteDash  []float64      `json:"route_dash"`
	RouteColor string         `json:"route_color"`
}

func buildFrame(tick uint64, width, height float64, nodes []topology.Node, edges []routing.Edge, placed []packets.Placed) Frame {
	f := Frame{
		Tick:    tick,
		Width:   width,
		Height:  height,
		Nodes:   make([]NodeView, len(nodes)),
		Edges:   make([]EdgeView, len(edges)),
		Packets: make([]PacketView, len(placed)),
	}
	for i := range nodes {
		n := &nodes[i]
		spec := n.Spec()
		f.Nodes[i] = NodeView{
			Index:        i,
			Label:        n.Label,
			Kind:         n.Kind,
			X:            n.Position.X,
			Y:            n.Position.Y,
			Width:        spec.Width,
			Height:       spec.Height,
			Shape:        spec.Shape,
			CornerRadius: spec.CornerRadius,
			Color:        spec.Color,
			Opacity:      n.Opacity,
			Pulse:        n.Pulse(),
			FlowPhase:    n.FlowPhase,
			Placement:    n.Placement,
		}
	}
	for i, e := range edges {
		f.Edges[i] = EdgeView{
			From:   e.From,
			To:     e.To,
			Points: append([]topology.Vec(nil), e.Path...),
			Style:  e.Style,
		}
	}
	for i, p := range placed {
		style := p.Flow.Style()
		f.Packets[i] = PacketView{
			From:       p.Source,
			To:         p.Destination,
			Flow:       p.Flow,
			Progress:   p.Progress,
			X:          p.Position.X,
			Y:          p.Position.Y,
			Size:       p.Size,
			Fill:       style.Fill,
			Glyph:      style.Glyph,
			Route:      append([]topology.Vec(nil), p.Path...),
			RouteDash:  style.RouteDash,
			RouteColor: style.Route,
		}
	}
	return f
}
