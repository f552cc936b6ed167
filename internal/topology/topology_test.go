package topology

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vizerrors "github.com/conneroisu/techviz/internal/errors"
)

// constRandom always returns the same draw, which makes every random
// placement attempt land on the same point and forces the fallback tiers.
type constRandom struct{ f float64 }

func (c constRandom) Float64() float64 { return c.f }
func (c constRandom) Intn(int) int     { return 0 }

func newTestSimulator(t *testing.T, layout Layout, rnd Random) *Simulator {
	t.Helper()
	sim, err := NewSimulator(layout, DefaultPolicy(), DefaultOptions(), rnd)
	require.NoError(t, err)
	return sim
}

func twoServices() Layout {
	return Layout{Name: "pair", Components: []Component{
		{Kind: KindService, Label: "A", Zone: ZoneCenter},
		{Kind: KindService, Label: "B", Zone: ZoneCenter},
	}}
}

func TestKindTableIsComplete(t *testing.T) {
	require.NoError(t, ValidateKinds(DefaultPolicy()))

	for _, k := range AllKinds {
		t.Run(string(k), func(t *testing.T) {
			spec := k.Spec()
			assert.True(t, k.IsValid())
			assert.Positive(t, spec.Width)
			assert.Positive(t, spec.Height)
			assert.NotEmpty(t, spec.Color)
			assert.NotEmpty(t, spec.Family)
		})
	}
	assert.False(t, Kind("zeppelin").IsValid())
}

func TestValidateKindsRejectsIncompletePolicy(t *testing.T) {
	policy := DefaultPolicy()
	delete(policy, KindRedis)
	assert.Error(t, ValidateKinds(policy))

	policy = DefaultPolicy()
	policy[KindRedis] = append(policy[KindRedis], Kind("zeppelin"))
	assert.Error(t, ValidateKinds(policy))
}

func TestPolicyIsDirected(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.Allows(KindAPIGateway, KindRESTAPI))
	assert.False(t, p.Allows(KindRESTAPI, KindAPIGateway))
	assert.True(t, p.Either(KindRESTAPI, KindAPIGateway))
	assert.False(t, p.Either(KindAPIGateway, KindKafka))
	assert.True(t, p.Allows(KindService, KindService))
}

func TestDefaultLayoutPlacement(t *testing.T) {
	sim := newTestSimulator(t, DefaultLayout(), NewRandom(7))
	nodes := sim.Nodes()
	require.Len(t, nodes, 13)

	for i := range nodes {
		n := &nodes[i]
		legal := sim.boundsFor(n.Spec(), sim.opts.EdgePadding)
		assert.True(t, legal.contains(n.Position), "node %s at %+v outside canvas", n.Label, n.Position)
		assert.GreaterOrEqual(t, n.Opacity, 0.3)
		assert.Less(t, n.Opacity, 0.5)
		assert.LessOrEqual(t, math.Abs(n.Velocity.X), 0.015)
		assert.LessOrEqual(t, math.Abs(n.Velocity.Y), 0.015)
	}

	// A node placed by a random tier clears every node placed before it.
	for j := range nodes {
		if nodes[j].Placement == PlacedOnGrid {
			continue
		}
		for i := 0; i < j; i++ {
			assert.True(t,
				clears(nodes[i].Position, nodes[i].Spec(), nodes[j].Position, nodes[j].Spec(), sim.opts.MinClearance),
				"%s overlaps %s", nodes[i].Label, nodes[j].Label)
		}
	}
}

func TestPlacementFallsBackThroughTiers(t *testing.T) {
	sim := newTestSimulator(t, DefaultLayout(), constRandom{f: 0.5})
	nodes := sim.Nodes()

	// PostgreSQL takes the middle of the top zone.
	assert.Equal(t, PlacedInZone, nodes[0].Placement)
	assert.Equal(t, Vec{X: 960, Y: 180}, nodes[0].Position)

	// Redis draws the same zone point, so it lands on the canvas centre.
	assert.Equal(t, PlacedOnCanvas, nodes[1].Placement)
	assert.Equal(t, Vec{X: 960, Y: 540}, nodes[1].Position)

	assert.Equal(t, PlacedInZone, nodes[2].Placement)

	// The gateway's zone point and canvas point are both taken by Redis.
	assert.Equal(t, PlacedOnGrid, nodes[3].Placement)
	assert.Equal(t, Vec{X: 1620, Y: 195}, nodes[3].Position)

	assert.Positive(t, sim.GridPlacements())
	for i := range nodes {
		legal := sim.boundsFor(nodes[i].Spec(), sim.opts.EdgePadding)
		assert.True(t, legal.contains(nodes[i].Position))
	}
}

func TestGridPositionOnTinyCanvasCollapses(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 100, 100
	sim, err := NewSimulator(twoServices(), nil, opts, constRandom{f: 0.5})
	require.NoError(t, err)

	// The service box is wider than the legal range, so the centre collapses
	// to the middle of the canvas.
	for _, n := range sim.Nodes() {
		assert.Equal(t, 50.0, n.Position.X)
		assert.Equal(t, 50.0, n.Position.Y)
	}
}

func TestStepRevertsCollidingMove(t *testing.T) {
	sim := newTestSimulator(t, twoServices(), NewRandom(1))
	nodes := sim.Nodes()

	// Exactly at the clearance threshold: 160/2 + 160/2 + 120 = 280.
	nodes[0].Position = Vec{X: 500, Y: 500}
	nodes[0].Velocity = Vec{X: 1}
	nodes[1].Position = Vec{X: 780, Y: 500}
	nodes[1].Velocity = Vec{}

	sim.Step(Pointer{})

	assert.Equal(t, Vec{X: 500, Y: 500}, nodes[0].Position)
	assert.Equal(t, Vec{X: -1}, nodes[0].Velocity)
	assert.Equal(t, 0, sim.Overlaps())

	sim.Step(Pointer{})
	assert.Equal(t, Vec{X: 499, Y: 500}, nodes[0].Position)
}

func TestStepReflectsAtBoundary(t *testing.T) {
	sim := newTestSimulator(t, twoServices(), NewRandom(1))
	nodes := sim.Nodes()
	nodes[1].Position = Vec{X: 300, Y: 300}
	nodes[1].Velocity = Vec{}

	maxX := sim.opts.Width - 80 - sim.opts.EdgePadding
	nodes[0].Position = Vec{X: maxX - 0.5, Y: 700}
	nodes[0].Velocity = Vec{X: 1, Y: 0}

	sim.Step(Pointer{})

	assert.Equal(t, maxX, nodes[0].Position.X)
	assert.Equal(t, -1.0, nodes[0].Velocity.X)
}

func TestPointerRepulsion(t *testing.T) {
	single := Layout{Components: []Component{{Kind: KindService, Label: "S", Zone: ZoneCenter}}}

	tests := []struct {
		name    string
		pointer Pointer
		wantX   float64
	}{
		{"inactive pointer", Pointer{Position: Vec{X: 550, Y: 500}}, 500},
		{"inside radius", Pointer{Position: Vec{X: 550, Y: 500}, Active: true}, 500 - 50*(100.0/150*0.2/50)},
		{"on the centre", Pointer{Position: Vec{X: 500, Y: 500}, Active: true}, 500},
		{"outside radius", Pointer{Position: Vec{X: 700, Y: 500}, Active: true}, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSimulator(t, single, NewRandom(3))
			n := &sim.Nodes()[0]
			n.Position = Vec{X: 500, Y: 500}
			n.Velocity = Vec{}

			sim.Step(tt.pointer)

			assert.InDelta(t, tt.wantX, n.Position.X, 1e-9)
			assert.Equal(t, 500.0, n.Position.Y)
		})
	}
}

func TestStepAdvancesPhases(t *testing.T) {
	sim := newTestSimulator(t, twoServices(), NewRandom(5))
	before := sim.Snapshot()
	sim.Step(Pointer{})
	after := sim.Nodes()
	for i := range after {
		assert.InDelta(t, before[i].PulsePhase+0.02, after[i].PulsePhase, 1e-12)
		assert.InDelta(t, before[i].FlowPhase+0.01, after[i].FlowPhase, 1e-12)
	}
}

func TestResize(t *testing.T) {
	sim := newTestSimulator(t, twoServices(), NewRandom(5))
	sim.Resize(0, 500)
	w, h := sim.Size()
	assert.Equal(t, 1920.0, w)
	assert.Equal(t, 1080.0, h)

	sim.Resize(800, 600)
	w, h = sim.Size()
	assert.Equal(t, 800.0, w)
	assert.Equal(t, 600.0, h)
}

func TestNewSimulatorRejectsBadInput(t *testing.T) {
	_, err := NewSimulator(Layout{}, nil, DefaultOptions(), nil)
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.MinClearance = -1
	_, err = NewSimulator(DefaultLayout(), nil, opts, nil)
	assert.Error(t, err)
}

func TestZeroOptionsAreHonoured(t *testing.T) {
	opts := DefaultOptions()
	opts.MinClearance = 0
	opts.DriftSpeed = 0
	opts.PointerStrength = 0
	sim, err := NewSimulator(DefaultLayout(), nil, opts, NewRandom(5))
	require.NoError(t, err)

	got := sim.Options()
	assert.Zero(t, got.MinClearance)
	assert.Zero(t, got.DriftSpeed)
	assert.Zero(t, got.PointerStrength)

	before := sim.Nodes()
	for _, n := range before {
		assert.Equal(t, Vec{}, n.Velocity, n.Label)
	}
	sim.Step(Pointer{Position: before[0].Position.Add(Vec{X: 10}), Active: true})
	for i, n := range sim.Nodes() {
		assert.Equal(t, before[i].Position, n.Position, n.Label)
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		code   string
	}{
		{"empty", Layout{}, "LAYOUT_EMPTY"},
		{"unknown kind", Layout{Components: []Component{{Kind: "zeppelin", Label: "Z", Zone: ZoneTop}}}, "LAYOUT_UNKNOWN_KIND"},
		{"unknown zone", Layout{Components: []Component{{Kind: KindRedis, Label: "R", Zone: "moon"}}}, "LAYOUT_UNKNOWN_ZONE"},
		{"blank label", Layout{Components: []Component{{Kind: KindRedis, Label: " ", Zone: ZoneTop}}}, "LAYOUT_EMPTY_LABEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			var ve *vizerrors.VizError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.code, ve.Code)
		})
	}
	assert.NoError(t, DefaultLayout().Validate())
}

const yamlLayout = `
name: checkout
components:
  - kind: apiGateway
    label: Edge
    zone: center
  - kind: postgres
    label: Orders DB
    zone: top
`

const tomlLayout = `
name = "checkout"

[[components]]
kind = "apiGateway"
label = "Edge"
zone = "center"

[[components]]
kind = "postgres"
label = "Orders DB"
zone = "top"
`

func TestParseLayout(t *testing.T) {
	for _, tc := range []struct{ format, data string }{
		{"yaml", yamlLayout},
		{".yml", yamlLayout},
		{"toml", tomlLayout},
	} {
		t.Run(tc.format, func(t *testing.T) {
			layout, err := ParseLayout([]byte(tc.data), tc.format)
			require.NoError(t, err)
			assert.Equal(t, "checkout", layout.Name)
			require.Len(t, layout.Components, 2)
			assert.Equal(t, KindPostgres, layout.Components[1].Kind)
			assert.Equal(t, ZoneTop, layout.Components[1].Zone)
		})
	}

	_, err := ParseLayout([]byte("name: x\ncolour: red\n"), "yaml")
	assert.Error(t, err)

	_, err = ParseLayout([]byte("name = \"x\"\ncolour = \"red\"\n"), "toml")
	assert.Error(t, err)

	_, err = ParseLayout([]byte(yamlLayout), "json")
	var ve *vizerrors.VizError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "LAYOUT_FORMAT", ve.Code)
}

func TestLoadLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlLayout), 0o600))

	layout, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Len(t, layout.Components, 2)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("name = \"empty\"\n"), 0o600))
	_, err = LoadLayout(bad)
	var ve *vizerrors.VizError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, bad, ve.FilePath)
	assert.Equal(t, "LAYOUT_EMPTY", ve.Code)

	_, err = LoadLayout(filepath.Join(dir, "missing.yaml"))
	assert.True(t, vizerrors.IsType(err, vizerrors.ErrorTypeIO))
}
