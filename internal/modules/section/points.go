package section

import (
	"context"
	"strings"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/reference"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// DefaultCoordinatesPath is the state center file used by points sections.
const DefaultCoordinatesPath = "data/state-coordinates.csv"

// PointsSection projects rows with coordinates into map markers.
//
//	type: points
//	config:
//	  view: state-companies
//	  latitude: Latitude
//	  longitude: Longitude
//	  fields: [Name, Address, City]
//	  center: "{{params.state}}"
type PointsSection struct {
	base
	view        string
	latitude    string
	longitude   string
	fields      []string
	center      string
	coordinates string
	limit       int
}

// NewPoints builds a points section from its config.
func NewPoints(cfg report.ModuleConfig) (*PointsSection, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	view, err := requireView(cfg.Config)
	if err != nil {
		return nil, err
	}
	s := &PointsSection{base: b, view: view}
	for key, dst := range map[string]*string{"latitude": &s.latitude, "longitude": &s.longitude} {
		if *dst, err = moduleconfig.String(cfg.Config, key); err != nil {
			return nil, errhandling.NewValidationError(err.Error(), err)
		}
	}
	if s.fields, err = moduleconfig.StringSlice(cfg.Config, "fields"); err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	if s.center, err = moduleconfig.OptionalString(cfg.Config, "center", ""); err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	if s.coordinates, err = moduleconfig.OptionalString(cfg.Config, "coordinates", DefaultCoordinatesPath); err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	if s.limit, err = moduleconfig.Int(cfg.Config, "limit", 0); err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	return s, nil
}

// Views implements Module.
func (s *PointsSection) Views() []string { return []string{s.view} }

// Compute implements Module. Rows missing either coordinate are skipped.
func (s *PointsSection) Compute(ctx context.Context, env Env) (*report.SectionResult, error) {
	t, err := env.View(ctx, s.view)
	if err != nil {
		return nil, err
	}
	latCol, err := t.ColumnIndex(s.latitude)
	if err != nil {
		return nil, err
	}
	lonCol, err := t.ColumnIndex(s.longitude)
	if err != nil {
		return nil, err
	}
	fieldCols := make([]int, len(s.fields))
	for i, f := range s.fields {
		if fieldCols[i], err = t.ColumnIndex(f); err != nil {
			return nil, err
		}
	}

	r := s.result()
	r.Points = []report.Point{}
	for row := 0; row < t.Len(); row++ {
		lat, latOK := t.Float(row, latCol)
		lon, lonOK := t.Float(row, lonCol)
		if !latOK || !lonOK {
			continue
		}
		r.TotalEntries++
		if s.limit > 0 && len(r.Points) >= s.limit {
			continue
		}
		p := report.Point{Coordinate: report.Coordinate{Latitude: lat, Longitude: lon}}
		if len(fieldCols) > 0 {
			p.Fields = make(map[string]string, len(fieldCols))
			for i, c := range fieldCols {
				v, _ := t.String(row, c)
				p.Fields[s.fields[i]] = v
			}
		}
		r.Points = append(r.Points, p)
	}

	if center := strings.TrimSpace(s.center); !reference.NoCenter(center) {
		ref, err := env.Dataset(ctx, s.coordinates)
		if err != nil {
			return nil, err
		}
		coords, err := reference.CoordinatesFromTable(ref)
		if err != nil {
			return nil, err
		}
		c, err := coords.Center(center)
		if err != nil {
			return nil, err
		}
		r.Center = &c
	}
	return s.finish(env, r), nil
}

var _ Module = (*PointsSection)(nil)
