package topology

// Zone is a named layout region on the canvas.
type Zone string

const (
	ZoneTop         Zone = "top"
	ZoneLeftBottom  Zone = "left-bottom"
	ZoneCenter      Zone = "center"
	ZoneRightTop    Zone = "right-top"
	ZoneRightBottom Zone = "right-bottom"
)

// AllZones lists every zone.
var AllZones = []Zone{ZoneTop, ZoneLeftBottom, ZoneCenter, ZoneRightTop, ZoneRightBottom}

// IsValid reports whether z is one of the named zones.
func (z Zone) IsValid() bool {
	for _, known := range AllZones {
		if z == known {
			return true
		}
	}
	return false
}

// Region returns the rectangle the zone covers on a canvas of the given
// size. pad is the zone padding from the canvas edges.
func (z Zone) Region(width, height, pad float64) Rect {
	cx, cy := width/2, height/2
	switch z {
	case ZoneTop:
		return Rect{X: pad, Y: pad, W: width - 2*pad, H: 200}
	case ZoneLeftBottom:
		return Rect{X: pad, Y: height - 250, W: 300, H: 200}
	case ZoneCenter:
		return Rect{X: cx - 150, Y: cy - 150, W: 300, H: 300}
	case ZoneRightTop:
		return Rect{X: width - 400, Y: pad, W: 350, H: 250}
	case ZoneRightBottom:
		return Rect{X: width - 400, Y: height - 300, W: 350, H: 250}
	default:
		return Rect{X: cx - 50, Y: cy - 50, W: 100, H: 100}
	}
}
