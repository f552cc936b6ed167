package topology

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	vizerrors "github.com/conneroisu/techviz/internal/errors"
)

// Component describes one node of a layout before placement.
type Component struct {
	Kind  Kind   `json:"kind" yaml:"kind" toml:"kind"`
	Label string `json:"label" yaml:"label" toml:"label"`
	Zone  Zone   `json:"zone" yaml:"zone" toml:"zone"`
}

// Layout is the ordered component list a simulator is built from. Order
// matters: it is the insertion order used by placement and the grid
// fallback.
type Layout struct {
	Name       string      `json:"name" yaml:"name" toml:"name"`
	Components []Component `json:"components" yaml:"components" toml:"components"`
}

// DefaultLayout returns the payment-gateway architecture.
func DefaultLayout() Layout {
	return Layout{
		Name: "payment-gateway",
		Components: []Component{
			{Kind: KindPostgres, Label: "PostgreSQL", Zone: ZoneTop},
			{Kind: KindRedis, Label: "Redis Cache", Zone: ZoneTop},

			{Kind: KindKafka, Label: "Kafka", Zone: ZoneLeftBottom},

			{Kind: KindAPIGateway, Label: "API Gateway", Zone: ZoneCenter},
			{Kind: KindRESTAPI, Label: "REST API", Zone: ZoneCenter},
			{Kind: KindRPC, Label: "RPC Service", Zone: ZoneCenter},

			{Kind: KindService, Label: "Payment Service", Zone: ZoneRightTop},
			{Kind: KindService, Label: "User Service", Zone: ZoneRightTop},
			{Kind: KindService, Label: "Auth Service", Zone: ZoneRightTop},
			{Kind: KindService, Label: "Notification Service", Zone: ZoneRightBottom},
			{Kind: KindService, Label: "Fraud Detection", Zone: ZoneRightBottom},
			{Kind: KindService, Label: "Analytics Service", Zone: ZoneRightBottom},
			{Kind: KindService, Label: "Audit Service", Zone: ZoneRightBottom},
		},
	}
}

// Validate checks that the layout is non-empty and names only known kinds
// and zones.
func (l Layout) Validate() error {
	if len(l.Components) == 0 {
		return vizerrors.NewValidationError("LAYOUT_EMPTY", "layout has no components")
	}
	for i, c := range l.Components {
		if !c.Kind.IsValid() {
			return vizerrors.NewValidationError("LAYOUT_UNKNOWN_KIND",
				fmt.Sprintf("component %d has unknown kind %q", i, c.Kind)).
				WithContext("index", i).
				WithContext("label", c.Label)
		}
		if !c.Zone.IsValid() {
			return vizerrors.NewValidationError("LAYOUT_UNKNOWN_ZONE",
				fmt.Sprintf("component %d has unknown zone %q", i, c.Zone)).
				WithContext("index", i).
				WithContext("label", c.Label)
		}
		if strings.TrimSpace(c.Label) == "" {
			return vizerrors.NewValidationError("LAYOUT_EMPTY_LABEL",
				fmt.Sprintf("component %d has an empty label", i)).
				WithContext("index", i)
		}
	}
	return nil
}

// LoadLayout reads a YAML or TOML layout file, chosen by extension.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, vizerrors.NewIOError("LAYOUT_READ", "failed to read layout file", err).
			WithLocation(path, 0, 0)
	}
	layout, err := ParseLayout(data, filepath.Ext(path))
	if err != nil {
		var ve *vizerrors.VizError
		if errors.As(err, &ve) {
			return Layout{}, ve.WithLocation(path, 0, 0)
		}
		return Layout{}, err
	}
	return layout, nil
}

// ParseLayout decodes a layout in the given format (".yaml", ".yml" or
// ".toml"; the leading dot is optional) and validates it.
func ParseLayout(data []byte, format string) (Layout, error) {
	var layout Layout
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&layout); err != nil {
			return Layout{}, vizerrors.NewValidationError("LAYOUT_PARSE", "invalid YAML layout").
				WithCause(err)
		}
	case "toml":
		md, err := toml.Decode(string(data), &layout)
		if err != nil {
			return Layout{}, vizerrors.NewValidationError("LAYOUT_PARSE", "invalid TOML layout").
				WithCause(err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Layout{}, vizerrors.NewValidationError("LAYOUT_PARSE",
				fmt.Sprintf("unknown layout field %q", undecoded[0].String()))
		}
	default:
		return Layout{}, vizerrors.NewValidationError("LAYOUT_FORMAT",
			fmt.Sprintf("unsupported layout format %q (want yaml or toml)", format))
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}
