package reference

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

func TestStateName(t *testing.T) {
	tests := map[string]string{
		"CA":  "California",
		"dc":  "District of Columbia",
		" PR": "Puerto Rico",
		"ZZ":  "ZZ",
		"":    "",
	}
	for code, want := range tests {
		if got := StateName(code); got != want {
			t.Errorf("StateName(%q) = %q, want %q", code, got, want)
		}
	}
	count := 0
	for code := range stateNames {
		if len(code) != 2 {
			t.Errorf("code %q is not two letters", code)
		}
		count++
	}
	if count < 51 {
		t.Errorf("got %d codes, want at least the 50 states and DC", count)
	}
}

func TestLookupLabeler(t *testing.T) {
	l, ok := LookupLabeler("states")
	if !ok || l("TX") != "Texas" {
		t.Fatal("states labeler missing or wrong")
	}
	if _, ok := LookupLabeler("counties"); ok {
		t.Error("unexpected labeler")
	}
}

func TestCoordinates(t *testing.T) {
	tbl, err := table.New("state-coordinates", []string{"State", "Latitude", "Longitude"}, [][]string{
		{"CA", "36.7783", "-119.4179"},
		{"tx", "31.9686", "-99.9018"},
		{"NY", "", "-74.0"},
	})
	if err != nil {
		t.Fatal(err)
	}
	coords, err := CoordinatesFromTable(tbl)
	if err != nil {
		t.Fatalf("CoordinatesFromTable() error = %v", err)
	}
	want := Coordinates{
		"CA": {Latitude: 36.7783, Longitude: -119.4179},
		"TX": {Latitude: 31.9686, Longitude: -99.9018},
	}
	if diff := cmp.Diff(want, coords); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}

	center, err := coords.Center("tx")
	if err != nil || center != (report.Coordinate{Latitude: 31.9686, Longitude: -99.9018}) {
		t.Errorf("Center(tx) = %v, %v", center, err)
	}
	if _, err := coords.Center("NY"); !errhandling.IsReference(err) || errhandling.IsFatal(err) {
		t.Errorf("Center(NY) error = %v, want non-fatal reference error", err)
	}

	bad, _ := table.New("bad", []string{"State", "Lat"}, nil)
	if _, err := CoordinatesFromTable(bad); !errhandling.IsSchema(err) {
		t.Errorf("CoordinatesFromTable() error = %v, want schema error", err)
	}
}

func TestNoCenter(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{"", true},
		{"  ", true},
		{"None", true},
		{" none ", true},
		{"TX", false},
		{"ZZ", false},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			if got := NoCenter(tt.state); got != tt.want {
				t.Errorf("NoCenter(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}
