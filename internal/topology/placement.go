package topology

import "math"

// bounds is the legal range for a node centre on the current canvas.
type bounds struct {
	minX, maxX, minY, maxY float64
}

func (s *Simulator) boundsFor(spec KindSpec, pad float64) bounds {
	return bounds{
		minX: spec.Width/2 + pad,
		maxX: s.opts.Width - spec.Width/2 - pad,
		minY: spec.Height/2 + pad,
		maxY: s.opts.Height - spec.Height/2 - pad,
	}
}

func (b bounds) contains(p Vec) bool {
	return p.X >= b.minX && p.X <= b.maxX && p.Y >= b.minY && p.Y <= b.maxY
}

func (b bounds) clamp(p Vec) Vec {
	return Vec{X: clamp(p.X, b.minX, b.maxX), Y: clamp(p.Y, b.minY, b.maxY)}
}

// clamp limits v to [lo, hi]. An empty range (canvas smaller than the shape)
// collapses to its midpoint.
func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

// validPlacement reports whether a node of the given kind may sit at p given
// the nodes placed so far.
func (s *Simulator) validPlacement(p Vec, spec KindSpec, placed []Node) bool {
	if !s.boundsFor(spec, s.opts.EdgePadding).contains(p) {
		return false
	}
	for i := range placed {
		if !clears(p, spec, placed[i].Position, placed[i].Spec(), s.opts.MinClearance) {
			return false
		}
	}
	return true
}

// place finds a starting position for the component at index among total
// components. It tries the component's zone, then the whole canvas, then
// falls back to a grid cell derived from index, which always succeeds.
func (s *Simulator) place(c Component, index, total int, placed []Node) (Vec, Placement) {
	spec := c.Kind.Spec()
	pad := s.opts.ZonePadding
	region := c.Zone.Region(s.opts.Width, s.opts.Height, pad)
	inner := s.boundsFor(spec, pad)

	for attempt := 0; attempt < s.opts.ZoneAttempts; attempt++ {
		p := Vec{
			X: region.X + s.rnd.Float64()*region.W,
			Y: region.Y + s.rnd.Float64()*region.H,
		}
		p = inner.clamp(p)
		if s.validPlacement(p, spec, placed) {
			return p, PlacedInZone
		}
	}

	for attempt := 0; attempt < s.opts.CanvasAttempts; attempt++ {
		p := Vec{
			X: pad + s.rnd.Float64()*(s.opts.Width-2*pad),
			Y: pad + s.rnd.Float64()*(s.opts.Height-2*pad),
		}
		if s.validPlacement(p, spec, placed) {
			return p, PlacedOnCanvas
		}
	}

	return s.gridPosition(spec, index, total), PlacedOnGrid
}

// gridPosition returns the centre of grid cell index in a near-square grid of
// total cells, clamped so the node stays inside the canvas.
func (s *Simulator) gridPosition(spec KindSpec, index, total int) Vec {
	if total < 1 {
		total = 1
	}
	pad := s.opts.ZonePadding
	cols := int(math.Ceil(math.Sqrt(float64(total))))
	rows := int(math.Ceil(float64(total) / float64(cols)))
	cellW := (s.opts.Width - 2*pad) / float64(cols)
	cellH := (s.opts.Height - 2*pad) / float64(rows)
	col := index % cols
	row := index / cols
	p := Vec{
		X: pad + float64(col)*cellW + cellW/2,
		Y: pad + float64(row)*cellH + cellH/2,
	}
	return s.boundsFor(spec, s.opts.EdgePadding).clamp(p)
}
