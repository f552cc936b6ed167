package topology

import (
	"fmt"
	"math"
)

// Pointer is the last known input pointer. An inactive pointer has never
// moved over the canvas and exerts no force.
type Pointer struct {
	Position Vec
	Active   bool
}

// Simulator owns the node set and advances it one tick at a time. It is not
// safe for concurrent use; the engine drives it from a single goroutine.
type Simulator struct {
	opts   Options
	policy AdjacencyPolicy
	rnd    Random
	layout Layout
	nodes  []Node
}

// NewSimulator validates the kind table, options and layout and places every
// component.
func NewSimulator(layout Layout, policy AdjacencyPolicy, opts Options, rnd Random) (*Simulator, error) {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if err := ValidateKinds(policy); err != nil {
		return nil, fmt.Errorf("kind table: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("simulator options: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = NewRandom(0)
	}

	s := &Simulator{
		opts:   opts,
		policy: policy,
		rnd:    rnd,
		layout: layout,
	}
	s.nodes = s.createNodes()
	return s, nil
}

func (s *Simulator) createNodes() []Node {
	total := len(s.layout.Components)
	nodes := make([]Node, 0, total)
	for i, c := range s.layout.Components {
		pos, how := s.place(c, i, total, nodes)
		nodes = append(nodes, Node{
			Position: pos,
			Velocity: Vec{
				X: (s.rnd.Float64() - 0.5) * s.opts.DriftSpeed,
				Y: (s.rnd.Float64() - 0.5) * s.opts.DriftSpeed,
			},
			Kind:       c.Kind,
			Label:      c.Label,
			Zone:       c.Zone,
			Opacity:    s.rnd.Float64()*0.2 + 0.3,
			PulsePhase: s.rnd.Float64() * math.Pi * 2,
			FlowPhase:  s.rnd.Float64() * math.Pi * 2,
			Placement:  how,
		})
	}
	return nodes
}

// Nodes returns the live node slice. Callers must not retain it across ticks.
func (s *Simulator) Nodes() []Node {
	return s.nodes
}

// Snapshot returns a copy of the current nodes.
func (s *Simulator) Snapshot() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Policy returns the adjacency policy in use.
func (s *Simulator) Policy() AdjacencyPolicy {
	return s.policy
}

// Options returns the effective options.
func (s *Simulator) Options() Options {
	return s.opts
}

// Random returns the simulator's random source so packet spawning draws from
// the same sequence.
func (s *Simulator) Random() Random {
	return s.rnd
}

// Size returns the canvas dimensions.
func (s *Simulator) Size() (float64, float64) {
	return s.opts.Width, s.opts.Height
}

// Resize changes the canvas dimensions. Nodes are not repositioned; the next
// tick's boundary reflection pulls them into the new range.
func (s *Simulator) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	s.opts.Width = width
	s.opts.Height = height
}

// GridPlacements counts nodes that needed the grid fallback.
func (s *Simulator) GridPlacements() int {
	n := 0
	for i := range s.nodes {
		if s.nodes[i].Placement == PlacedOnGrid {
			n++
		}
	}
	return n
}

// Overlaps counts node pairs whose bounding boxes violate the minimum
// clearance.
func (s *Simulator) Overlaps() int {
	n := 0
	for i := range s.nodes {
		for j := i + 1; j < len(s.nodes); j++ {
			a, b := &s.nodes[i], &s.nodes[j]
			if !clears(a.Position, a.Spec(), b.Position, b.Spec(), s.opts.MinClearance) {
				n++
			}
		}
	}
	return n
}

// collides reports whether node i placed at p would violate clearance with
// any other node at its current position.
func (s *Simulator) collides(i int, p Vec) bool {
	spec := s.nodes[i].Spec()
	for j := range s.nodes {
		if j == i {
			continue
		}
		other := &s.nodes[j]
		if !clears(p, spec, other.Position, other.Spec(), s.opts.MinClearance) {
			return true
		}
	}
	return false
}

// Step advances every node by one tick: integrate, revert on collision,
// reflect off the canvas edge, apply pointer repulsion when it keeps
// clearance, and advance the animation phases.
func (s *Simulator) Step(pointer Pointer) {
	for i := range s.nodes {
		n := &s.nodes[i]
		spec := n.Spec()
		origin := n.Position

		n.Position = n.Position.Add(n.Velocity)
		if s.collides(i, n.Position) {
			n.Position = origin
			n.Velocity = n.Velocity.Scale(-1)
		}

		legal := s.boundsFor(spec, s.opts.EdgePadding)
		clamped := false
		if n.Position.X < legal.minX || n.Position.X > legal.maxX {
			n.Velocity.X = -n.Velocity.X
			n.Position.X = clamp(n.Position.X, legal.minX, legal.maxX)
			clamped = true
		}
		if n.Position.Y < legal.minY || n.Position.Y > legal.maxY {
			n.Velocity.Y = -n.Velocity.Y
			n.Position.Y = clamp(n.Position.Y, legal.minY, legal.maxY)
			clamped = true
		}
		if clamped && legal.contains(origin) && s.collides(i, n.Position) {
			n.Position = origin
		}

		if pointer.Active {
			s.repel(i, pointer.Position, legal)
		}

		n.PulsePhase += s.opts.PulseStep
		n.FlowPhase += s.opts.FlowStep
	}
}

func (s *Simulator) repel(i int, pointer Vec, legal bounds) {
	n := &s.nodes[i]
	d := pointer.Sub(n.Position)
	dist := d.Len()
	if dist == 0 || dist >= s.opts.PointerRadius {
		return
	}
	force := (s.opts.PointerRadius - dist) / s.opts.PointerRadius
	next := n.Position.Sub(d.Scale(force * s.opts.PointerStrength / dist))
	next = legal.clamp(next)
	if !s.collides(i, next) {
		n.Position = next
	}
}
