// Package routing derives the connections between nearby, compatible nodes
// and lays each one out as an orthogonal path that leaves and enters shapes
// through the midpoint of their facing sides.
package routing

import (
	"math"

	"github.com/conneroisu/techviz/internal/topology"
)

// DefaultStandOff is how far a path travels straight out of a shape before
// it may turn.
const DefaultStandOff = 120

// Side is one of the four sides of a node's bounding box.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// Anchor is where a path attaches to a node: the midpoint of a side and the
// stand-off point straight out from it.
type Anchor struct {
	Side     Side
	Border   topology.Vec
	External topology.Vec
}

// FacingSide returns the side of a box centred at from that faces to. The
// dominant axis of the displacement wins; ties go to the vertical sides.
func FacingSide(from, to topology.Vec) Side {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return SideRight
		}
		return SideLeft
	}
	if dy > 0 {
		return SideBottom
	}
	return SideTop
}

// AnchorFor computes the anchor on a shape of the given spec centred at
// center, facing target, with the given stand-off distance.
func AnchorFor(center topology.Vec, spec topology.KindSpec, target topology.Vec, standOff float64) Anchor {
	hw, hh := spec.Width/2, spec.Height/2
	side := FacingSide(center, target)
	var border, normal topology.Vec
	switch side {
	case SideRight:
		border = topology.Vec{X: center.X + hw, Y: center.Y}
		normal = topology.Vec{X: 1}
	case SideLeft:
		border = topology.Vec{X: center.X - hw, Y: center.Y}
		normal = topology.Vec{X: -1}
	case SideBottom:
		border = topology.Vec{X: center.X, Y: center.Y + hh}
		normal = topology.Vec{Y: 1}
	default:
		border = topology.Vec{X: center.X, Y: center.Y - hh}
		normal = topology.Vec{Y: -1}
	}
	return Anchor{
		Side:     side,
		Border:   border,
		External: border.Add(normal.Scale(standOff)),
	}
}

// Path is an ordered polyline of waypoints.
type Path []topology.Vec

// Reverse returns the path traversed from the other end.
func (p Path) Reverse() Path {
	out := make(Path, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// Length returns the physical length of the polyline.
func (p Path) Length() float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		total += p[i].Dist(p[i-1])
	}
	return total
}

// Bends counts interior waypoints where the path changes direction.
func (p Path) Bends() int {
	n := 0
	for i := 1; i+1 < len(p); i++ {
		a := p[i].Sub(p[i-1])
		b := p[i+1].Sub(p[i])
		if a.X*b.Y-a.Y*b.X != 0 {
			n++
		}
	}
	return n
}

// At returns the point at parameter t in [0, 1]. Each of the N-1 segments
// takes an equal share of t regardless of its physical length.
func (p Path) At(t float64) topology.Vec {
	switch len(p) {
	case 0:
		return topology.Vec{}
	case 1:
		return p[0]
	}
	segments := len(p) - 1
	s := t * float64(segments)
	if s < 0 {
		return p[0]
	}
	idx := int(math.Floor(s))
	if idx >= segments {
		return p[len(p)-1]
	}
	local := s - float64(idx)
	a, b := p[idx], p[idx+1]
	return topology.Vec{
		X: a.X + (b.X-a.X)*local,
		Y: a.Y + (b.Y-a.Y)*local,
	}
}

// Manhattan builds border1 -> external1 -> [bend] -> external2 -> border2.
// The bend is only inserted when the external points share neither
// coordinate, and it turns along the axis with the larger gap.
func Manhattan(start, end Anchor) Path {
	path := Path{start.Border}
	if start.External != start.Border {
		path = append(path, start.External)
	}
	a, b := start.External, end.External
	switch {
	case a.X == b.X || a.Y == b.Y:
		if a != b {
			path = append(path, b)
		}
	default:
		dx := math.Abs(b.X - a.X)
		dy := math.Abs(b.Y - a.Y)
		if dx > dy {
			path = append(path, topology.Vec{X: b.X, Y: a.Y})
		} else {
			path = append(path, topology.Vec{X: a.X, Y: b.Y})
		}
		path = append(path, b)
	}
	if end.Border != b {
		path = append(path, end.Border)
	}
	return path
}
