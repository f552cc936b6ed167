package routing

import "github.com/conneroisu/techviz/internal/topology"

// DefaultMaxConnectionDistance is the centre distance beyond which nodes are
// never connected.
const DefaultMaxConnectionDistance = 300

// Edge is a connection derived from the node set at one instant. It has no
// identity across ticks.
type Edge struct {
	From     int
	To       int
	Forward  bool // policy[kind(From)] allows kind(To)
	Backward bool // policy[kind(To)] allows kind(From)
	Distance float64
	Path     Path
	Style    LineStyle
}

// Connects reports whether the edge joins nodes a and b in either order.
func (e Edge) Connects(a, b int) bool {
	return (e.From == a && e.To == b) || (e.From == b && e.To == a)
}

// Router computes edges and paths for a node set.
type Router struct {
	policy      topology.AdjacencyPolicy
	maxDistance float64
	standOff    float64
}

// NewRouter returns a router. Negative distances fall back to the defaults;
// a zero maxDistance draws no connections and a zero standOff routes straight
// from the borders.
func NewRouter(policy topology.AdjacencyPolicy, maxDistance, standOff float64) *Router {
	if policy == nil {
		policy = topology.DefaultPolicy()
	}
	if maxDistance < 0 {
		maxDistance = DefaultMaxConnectionDistance
	}
	if standOff < 0 {
		standOff = DefaultStandOff
	}
	return &Router{policy: policy, maxDistance: maxDistance, standOff: standOff}
}

// MaxDistance returns the connection distance threshold.
func (r *Router) MaxDistance() float64 {
	return r.maxDistance
}

// Route builds the orthogonal path from node a to node b.
func (r *Router) Route(a, b *topology.Node) Path {
	start := AnchorFor(a.Position, a.Spec(), b.Position, r.standOff)
	end := AnchorFor(b.Position, b.Spec(), a.Position, r.standOff)
	return Manhattan(start, end)
}

// Edges returns one edge per unordered pair of nodes that are within the
// distance threshold and allowed by the policy in at least one direction.
// Edges are ordered by (From, To) with From < To.
func (r *Router) Edges(nodes []topology.Node) []Edge {
	var edges []Edge
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			a, b := &nodes[i], &nodes[j]
			d := a.Position.Dist(b.Position)
			if d > r.maxDistance {
				continue
			}
			forward := r.policy.Allows(a.Kind, b.Kind)
			backward := r.policy.Allows(b.Kind, a.Kind)
			if !forward && !backward {
				continue
			}
			edges = append(edges, Edge{
				From:     i,
				To:       j,
				Forward:  forward,
				Backward: backward,
				Distance: d,
				Path:     r.Route(a, b),
				Style:    StyleFor(a.Kind, b.Kind, d, r.maxDistance),
			})
		}
	}
	return edges
}

// Find returns the edge joining a and b, if any.
func Find(edges []Edge, a, b int) (Edge, bool) {
	for _, e := range edges {
		if e.Connects(a, b) {
			return e, true
		}
	}
	return Edge{}, false
}
