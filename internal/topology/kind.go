// Package topology owns the simulated architecture components: their kinds,
// geometry, adjacency policy, initial placement and per-tick motion.
//
// Everything in this package is total. Placement always terminates through
// the zone, canvas and grid tiers, and every tick step has a clamped or
// reverted fallback, so no operation here returns an error once a Simulator
// has been constructed.
package topology

import "fmt"

// Kind is the category of an architecture component.
type Kind string

const (
	KindService    Kind = "service"
	KindDatabase   Kind = "database"
	KindCache      Kind = "cache"
	KindQueue      Kind = "queue"
	KindAPI        Kind = "api"
	KindAPIGateway Kind = "apiGateway"
	KindRESTAPI    Kind = "restApi"
	KindRPC        Kind = "rpc"
	KindKafka      Kind = "kafka"
	KindRedis      Kind = "redis"
	KindPostgres   Kind = "postgres"
)

// AllKinds lists every kind in a stable order.
var AllKinds = []Kind{
	KindAPIGateway,
	KindRESTAPI,
	KindAPI,
	KindRPC,
	KindService,
	KindKafka,
	KindQueue,
	KindRedis,
	KindCache,
	KindPostgres,
	KindDatabase,
}

// Shape is the outline family a kind is drawn with.
type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeDiamond   Shape = "diamond"
	ShapeCylinder  Shape = "cylinder"
)

// Family groups kinds that share connection styling.
type Family string

const (
	FamilyRelationalStore Family = "relational-store"
	FamilyMessageBroker   Family = "message-broker"
	FamilyKeyValueCache   Family = "key-value-cache"
	FamilyAPIGateway      Family = "api-gateway"
	FamilyCompute         Family = "compute"
)

// KindSpec is the immutable geometry and colour of a kind.
type KindSpec struct {
	Width        float64 `json:"width" yaml:"width"`
	Height       float64 `json:"height" yaml:"height"`
	Shape        Shape   `json:"shape" yaml:"shape"`
	CornerRadius float64 `json:"corner_radius" yaml:"corner_radius"`
	Color        string  `json:"color" yaml:"color"`
	Family       Family  `json:"family" yaml:"family"`
}

var kindSpecs = map[Kind]KindSpec{
	KindAPIGateway: {Width: 180, Height: 80, Shape: ShapeRectangle, CornerRadius: 12, Color: "#8e44ad", Family: FamilyAPIGateway},
	KindRESTAPI:    {Width: 140, Height: 70, Shape: ShapeRectangle, CornerRadius: 8, Color: "#9b59b6", Family: FamilyCompute},
	KindAPI:        {Width: 140, Height: 70, Shape: ShapeRectangle, CornerRadius: 8, Color: "#9b59b6", Family: FamilyCompute},
	KindRPC:        {Width: 120, Height: 60, Shape: ShapeRectangle, CornerRadius: 6, Color: "#e74c3c", Family: FamilyCompute},
	KindService:    {Width: 160, Height: 100, Shape: ShapeRectangle, CornerRadius: 8, Color: "#00add8", Family: FamilyCompute},
	KindKafka:      {Width: 140, Height: 80, Shape: ShapeRectangle, CornerRadius: 20, Color: "#2ecc71", Family: FamilyMessageBroker},
	KindQueue:      {Width: 140, Height: 80, Shape: ShapeRectangle, CornerRadius: 20, Color: "#2ecc71", Family: FamilyMessageBroker},
	KindRedis:      {Width: 100, Height: 100, Shape: ShapeDiamond, CornerRadius: 0, Color: "#e67e22", Family: FamilyKeyValueCache},
	KindCache:      {Width: 100, Height: 100, Shape: ShapeDiamond, CornerRadius: 0, Color: "#e67e22", Family: FamilyKeyValueCache},
	KindPostgres:   {Width: 140, Height: 140, Shape: ShapeCylinder, CornerRadius: 70, Color: "#ffd43b", Family: FamilyRelationalStore},
	KindDatabase:   {Width: 140, Height: 140, Shape: ShapeCylinder, CornerRadius: 70, Color: "#ffd43b", Family: FamilyRelationalStore},
}

// Spec returns the geometry record for k. Unknown kinds yield the zero spec;
// callers that accept external input check IsValid first.
func (k Kind) Spec() KindSpec {
	return kindSpecs[k]
}

// IsValid reports whether k is one of the enumerated kinds.
func (k Kind) IsValid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}

// ValidateKinds checks that the kind table and the adjacency policy cover
// every enumerated kind with non-degenerate geometry.
func ValidateKinds(policy AdjacencyPolicy) error {
	for _, k := range AllKinds {
		spec, ok := kindSpecs[k]
		if !ok {
			return fmt.Errorf("kind %s has no geometry", k)
		}
		if spec.Width <= 0 || spec.Height <= 0 {
			return fmt.Errorf("kind %s has degenerate size %.0fx%.0f", k, spec.Width, spec.Height)
		}
		if _, ok := policy[k]; !ok {
			return fmt.Errorf("kind %s has no adjacency rule", k)
		}
	}
	if len(kindSpecs) != len(AllKinds) {
		return fmt.Errorf("kind table has %d entries, want %d", len(kindSpecs), len(AllKinds))
	}
	for from, targets := range policy {
		if !from.IsValid() {
			return fmt.Errorf("adjacency rule for unknown kind %s", from)
		}
		for _, to := range targets {
			if !to.IsValid() {
				return fmt.Errorf("adjacency rule %s -> %s targets unknown kind", from, to)
			}
		}
	}
	return nil
}
