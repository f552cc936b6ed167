package routing

import (
	"fmt"

	"github.com/conneroisu/techviz/internal/topology"
)

// RGB is an opaque colour.
type RGB struct {
	R, G, B uint8
}

// RGBA formats the colour with the given alpha as a CSS rgba() value.
func (c RGB) RGBA(alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.3f)", c.R, c.G, c.B, alpha)
}

// LineStyle is how a connection is stroked.
type LineStyle struct {
	Name    string    `json:"name"`
	Dash    []float64 `json:"dash"`
	Color   string    `json:"color"`
	Opacity float64   `json:"opacity"`
	Width   float64   `json:"width"`
}

type styleRule struct {
	name   string
	family topology.Family
	dash   []float64
	color  RGB
}

// styleRules are evaluated in order; the first family present on either
// endpoint decides the style.
var styleRules = []styleRule{
	{name: "relational-store", family: topology.FamilyRelationalStore, dash: []float64{8, 4}, color: RGB{255, 212, 59}},
	{name: "message-broker", family: topology.FamilyMessageBroker, dash: []float64{4, 8}, color: RGB{46, 204, 113}},
	{name: "key-value-cache", family: topology.FamilyKeyValueCache, dash: []float64{2, 6}, color: RGB{230, 126, 34}},
	{name: "api-gateway", family: topology.FamilyAPIGateway, dash: []float64{12, 4}, color: RGB{142, 68, 173}},
}

var defaultStyle = styleRule{name: "default", dash: []float64{}, color: RGB{0, 173, 216}}

// StyleFor picks the line style for a connection between kinds a and b at the
// given distance. Opacity fades linearly to zero at maxDistance.
func StyleFor(a, b topology.Kind, distance, maxDistance float64) LineStyle {
	rule := defaultStyle
	fa, fb := a.Spec().Family, b.Spec().Family
	for _, r := range styleRules {
		if fa == r.family || fb == r.family {
			rule = r
			break
		}
	}
	opacity := 0.0
	if maxDistance > 0 && distance < maxDistance {
		opacity = (maxDistance - distance) / maxDistance * 0.3
	}
	return LineStyle{
		Name:    rule.name,
		Dash:    append([]float64{}, rule.dash...),
		Color:   rule.color.RGBA(opacity),
		Opacity: opacity,
		Width:   2,
	}
}
