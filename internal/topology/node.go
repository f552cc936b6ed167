package topology

import "math"

// Vec is a 2D coordinate or displacement.
type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v * f.
func (v Vec) Scale(f float64) Vec { return Vec{X: v.X * f, Y: v.Y * f} }

// Len returns the Euclidean length of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and o.
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Placement records which placement tier positioned a node.
type Placement string

const (
	PlacedInZone   Placement = "zone"
	PlacedOnCanvas Placement = "canvas"
	PlacedOnGrid   Placement = "grid"
)

// Node is one simulated architecture component.
type Node struct {
	Position   Vec
	Velocity   Vec
	Kind       Kind
	Label      string
	Zone       Zone
	Opacity    float64
	PulsePhase float64
	FlowPhase  float64
	Placement  Placement
}

// Spec returns the node's kind geometry.
func (n *Node) Spec() KindSpec {
	return n.Kind.Spec()
}

// Pulse returns the current scale factor of the node's outline.
func (n *Node) Pulse() float64 {
	return math.Sin(n.PulsePhase)*0.1 + 1
}

// Bounds returns the node's bounding box at its current position.
func (n *Node) Bounds() Rect {
	return boxAt(n.Position, n.Spec())
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X, Y, W, H float64
}

// MinX returns the left edge.
func (r Rect) MinX() float64 { return r.X }

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MinY returns the top edge.
func (r Rect) MinY() float64 { return r.Y }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Center returns the centre point.
func (r Rect) Center() Vec { return Vec{X: r.X + r.W/2, Y: r.Y + r.H/2} }

func boxAt(center Vec, spec KindSpec) Rect {
	return Rect{
		X: center.X - spec.Width/2,
		Y: center.Y - spec.Height/2,
		W: spec.Width,
		H: spec.Height,
	}
}

// clears reports whether two boxes centred at a and b keep at least gap
// between them on one axis. Boxes violate clearance only when they are too
// close on both axes at once.
func clears(a Vec, as KindSpec, b Vec, bs KindSpec, gap float64) bool {
	dx := math.Abs(a.X - b.X)
	dy := math.Abs(a.Y - b.Y)
	needX := (as.Width+bs.Width)/2 + gap
	needY := (as.Height+bs.Height)/2 + gap
	return dx >= needX || dy >= needY
}

// Clearance returns the gap between the bounding boxes of a and b along the
// axis on which they are furthest apart. Negative values mean overlap.
func Clearance(a, b *Node) float64 {
	as, bs := a.Spec(), b.Spec()
	gx := math.Abs(a.Position.X-b.Position.X) - (as.Width+bs.Width)/2
	gy := math.Abs(a.Position.Y-b.Position.Y) - (as.Height+bs.Height)/2
	return math.Max(gx, gy)
}
