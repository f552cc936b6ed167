// Package packets animates the tokens that travel along routed connections to
// show request, response and data flow between components.
package packets

import (
	"github.com/conneroisu/techviz/internal/routing"
	"github.com/conneroisu/techviz/internal/topology"
)

const (
	// DefaultCount is the size of the packet pool.
	DefaultCount = 6
	// DefaultStep is the progress added per tick. It is slower than a direct
	// path animation because orthogonal routes are longer.
	DefaultStep = 0.006
	// DestinationAttempts bounds the random destination picks per spawn.
	DestinationAttempts = 10
)

// Flow is what a packet represents.
type Flow string

const (
	FlowRequest  Flow = "request"
	FlowResponse Flow = "response"
	FlowData     Flow = "data"
)

var flows = []Flow{FlowRequest, FlowResponse, FlowData}

// FlowStyle is how a flow is drawn.
type FlowStyle struct {
	Fill      string
	Glyph     string
	Route     string
	RouteDash []float64
}

var flowStyles = map[Flow]FlowStyle{
	FlowRequest:  {Fill: "#8e44ad", Glyph: "→", Route: "rgba(142, 68, 173, 0.6)", RouteDash: []float64{8, 4}},
	FlowResponse: {Fill: "#e74c3c", Glyph: "←", Route: "rgba(231, 76, 60, 0.6)", RouteDash: []float64{4, 8}},
	FlowData:     {Fill: "#2ecc71", Glyph: "●", Route: "rgba(46, 204, 113, 0.6)", RouteDash: []float64{}},
}

// Style returns the drawing style for f.
func (f Flow) Style() FlowStyle {
	return flowStyles[f]
}

// Packet is one in-flight token.
type Packet struct {
	Source      int
	Destination int
	Progress    float64
	Flow        Flow
	Size        float64
}

// Placed is a packet resolved against the current node positions.
type Placed struct {
	Packet
	Position topology.Vec
	Path     routing.Path
}

// Animator owns the packet pool.
type Animator struct {
	packets []Packet
	step    float64
	rnd     topology.Random
	policy  topology.AdjacencyPolicy
	router  *routing.Router
}

// NewAnimator spawns up to count packets over nodes. A slot whose source has
// no compatible destination within DestinationAttempts picks is dropped. A
// zero step holds packets still; a negative one uses DefaultStep.
func NewAnimator(nodes []topology.Node, policy topology.AdjacencyPolicy, router *routing.Router, rnd topology.Random, count int, step float64) *Animator {
	if policy == nil {
		policy = topology.DefaultPolicy()
	}
	if step < 0 {
		step = DefaultStep
	}
	a := &Animator{
		step:   step,
		rnd:    rnd,
		policy: policy,
		router: router,
	}
	if len(nodes) == 0 {
		return a
	}
	for i := 0; i < count; i++ {
		src := rnd.Intn(len(nodes))
		dst, ok := a.pickDestination(nodes, src)
		if !ok {
			continue
		}
		a.packets = append(a.packets, Packet{
			Source:      src,
			Destination: dst,
			Progress:    rnd.Float64(),
			Flow:        flows[rnd.Intn(len(flows))],
			Size:        rnd.Float64()*4 + 3,
		})
	}
	return a
}

// Packets returns the live pool.
func (a *Animator) Packets() []Packet {
	return a.packets
}

// SetPackets replaces the pool.
func (a *Animator) SetPackets(p []Packet) {
	a.packets = p
}

// pickDestination draws up to DestinationAttempts candidates and returns the
// first that differs from src and is allowed by src's policy.
func (a *Animator) pickDestination(nodes []topology.Node, src int) (int, bool) {
	allowed := a.policy[nodes[src].Kind]
	if len(allowed) == 0 {
		return 0, false
	}
	for attempt := 0; attempt < DestinationAttempts; attempt++ {
		c := a.rnd.Intn(len(nodes))
		if c != src && a.policy.Allows(nodes[src].Kind, nodes[c].Kind) {
			return c, true
		}
	}
	return 0, false
}

// Advance moves every packet forward by one step, re-spawning those that
// complete, and resolves each against the current edges. Packets whose pair
// is in edges reuse that edge's path; others are routed directly.
func (a *Animator) Advance(nodes []topology.Node, edges []routing.Edge) []Placed {
	placed := make([]Placed, 0, len(a.packets))
	for i := range a.packets {
		p := &a.packets[i]
		p.Progress += a.step
		if p.Progress >= 1 {
			a.respawn(nodes, p)
		}
		if p.Source >= len(nodes) || p.Destination >= len(nodes) {
			continue
		}
		path := a.pathFor(nodes, edges, p.Source, p.Destination)
		placed = append(placed, Placed{
			Packet:   *p,
			Position: path.At(p.Progress),
			Path:     path,
		})
	}
	return placed
}

func (a *Animator) respawn(nodes []topology.Node, p *Packet) {
	p.Progress = 0
	if len(nodes) > 0 {
		p.Source = a.rnd.Intn(len(nodes))
		if dst, ok := a.pickDestination(nodes, p.Source); ok {
			p.Destination = dst
		}
	}
	p.Flow = flows[a.rnd.Intn(len(flows))]
}

func (a *Animator) pathFor(nodes []topology.Node, edges []routing.Edge, src, dst int) routing.Path {
	if e, ok := routing.Find(edges, src, dst); ok {
		if e.From == src {
			return e.Path
		}
		return e.Path.Reverse()
	}
	return a.router.Route(&nodes[src], &nodes[dst])
}
