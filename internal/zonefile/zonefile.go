// Package zonefile reads zone definitions from YAML documents and GeoJSON
// feature collections.
package zonefile

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/zone"
)

// ErrUnknownFormat is returned by Load for unsupported file extensions.
var ErrUnknownFormat = errors.New("unknown zone file format")

// Document is the YAML zone file layout.
type Document struct {
	Zones []zone.Definition `yaml:"zones"`
}

// Load reads zone definitions from path, picking the format by extension:
// .yaml/.yml or .geojson/.json.
func Load(path string) ([]zone.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading zone file %s: %w", path, err)
	}

	var defs []zone.Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		defs, err = ParseYAML(data)
	case ".geojson", ".json":
		defs, err = ParseGeoJSON(data)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing zone file %s: %w", path, err)
	}

	return defs, nil
}

// ParseYAML decodes a Document.
func ParseYAML(data []byte) ([]zone.Definition, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := checkIDs(doc.Zones); err != nil {
		return nil, err
	}
	return doc.Zones, nil
}

// ParseGeoJSON converts a FeatureCollection into definitions.
//
// Only the outer ring of a polygon is used; holes are dropped. A MultiPolygon
// yields one zone per part with ids "<id>/<n>". Feature properties become
// metadata. The zone id is the "id" property when it is a string, otherwise
// the feature id. Features with other geometry types are skipped.
func ParseGeoJSON(data []byte) ([]zone.Definition, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	defs := make([]zone.Definition, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := featureID(f)
		if id == "" {
			return nil, fmt.Errorf("feature %d: missing id", i)
		}

		switch g := f.Geometry.(type) {
		case orb.Polygon:
			defs = append(defs, definition(id, g, f.Properties))
		case orb.MultiPolygon:
			for n, p := range g {
				defs = append(defs, definition(fmt.Sprintf("%s/%d", id, n), p, f.Properties))
			}
		}
	}

	if err := checkIDs(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func featureID(f *geojson.Feature) string {
	if s, ok := f.Properties["id"].(string); ok && s != "" {
		return s
	}
	if f.ID == nil {
		return ""
	}
	return fmt.Sprint(f.ID)
}

func definition(id string, p orb.Polygon, props geojson.Properties) zone.Definition {
	var pts []geom.Point
	if len(p) > 0 {
		pts = make([]geom.Point, len(p[0]))
		for i, v := range p[0] {
			pts[i] = geom.Point{X: v.X(), Y: v.Y()}
		}
	}

	var meta zone.Metadata
	if len(props) > 0 {
		meta = zone.Metadata(maps.Clone(map[string]any(props)))
	}

	return zone.Definition{ID: id, Points: pts, Metadata: meta}
}

// checkIDs отклоняет пустые и повторяющиеся идентификаторы.
func checkIDs(defs []zone.Definition) error {
	seen := make(map[string]struct{}, len(defs))
	for i, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("zone %d: missing id", i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate zone id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
