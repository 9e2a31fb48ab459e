package reference

import (
	"strings"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// Column names of the state coordinates file.
const (
	CoordinateStateColumn     = "State"
	CoordinateLatitudeColumn  = "Latitude"
	CoordinateLongitudeColumn = "Longitude"
)

// Coordinates maps upper-case state codes to a center point.
type Coordinates map[string]report.Coordinate

// CoordinatesFromTable reads a State,Latitude,Longitude table. Rows with a
// missing or non-numeric coordinate are skipped.
func CoordinatesFromTable(t *table.Table) (Coordinates, error) {
	stateCol, err := t.ColumnIndex(CoordinateStateColumn)
	if err != nil {
		return nil, err
	}
	latCol, err := t.ColumnIndex(CoordinateLatitudeColumn)
	if err != nil {
		return nil, err
	}
	lonCol, err := t.ColumnIndex(CoordinateLongitudeColumn)
	if err != nil {
		return nil, err
	}

	coords := make(Coordinates, t.Len())
	for row := 0; row < t.Len(); row++ {
		state, ok := t.String(row, stateCol)
		if !ok {
			continue
		}
		lat, latOK := t.Float(row, latCol)
		lon, lonOK := t.Float(row, lonCol)
		if !latOK || !lonOK {
			continue
		}
		coords[strings.ToUpper(state)] = report.Coordinate{Latitude: lat, Longitude: lon}
	}
	return coords, nil
}

// Center returns the coordinate for a state code. A code absent from the
// table yields a ReferenceError.
func (c Coordinates) Center(state string) (report.Coordinate, error) {
	coord, ok := c[strings.ToUpper(strings.TrimSpace(state))]
	if !ok {
		return report.Coordinate{}, errhandling.NewReferenceError("state coordinates", state)
	}
	return coord, nil
}

// NoCenter reports whether a center parameter asks for no centering: blank,
// or "None" for the whole country.
func NoCenter(state string) bool {
	state = strings.TrimSpace(state)
	return state == "" || strings.EqualFold(state, "None")
}
