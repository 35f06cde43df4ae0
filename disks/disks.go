// Package disks carries a small catalog of well-known floppy drive
// geometries, used to seed the physical cylinder count when the kernel's
// autodetected drive parameters are unavailable or wrong.
package disks

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
)

// Geometry describes one drive/media combination.
type Geometry struct {
	Slug       string `csv:"slug"`
	Name       string `csv:"name"`
	FormFactor string `csv:"form_factor"`
	// Cylinders is the number of physical cylinders the drive can step
	// over, not the number the medium is formatted with.
	Cylinders int    `csv:"cylinders"`
	Heads     int    `csv:"heads"`
	Media     string `csv:"media"`
}

//go:embed drive-geometries.csv
var driveGeometriesRawCSV string
var driveGeometries map[string]Geometry

// Get returns the predefined geometry with the given slug.
func Get(slug string) (Geometry, error) {
	geometry, ok := driveGeometries[slug]
	if ok {
		return geometry, nil
	}
	return Geometry{}, fmt.Errorf("no predefined drive geometry exists with slug %q", slug)
}

// List returns every predefined geometry, ordered by slug.
func List() []Geometry {
	all := make([]Geometry, 0, len(driveGeometries))
	for _, geometry := range driveGeometries {
		all = append(all, geometry)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	return all
}

func init() {
	reader := strings.NewReader(driveGeometriesRawCSV)
	csvReader := csv.NewReader(reader)
	csvReader.Comma = '|'
	// Names contain bare inch marks, e.g. 3.5" double density.
	csvReader.LazyQuotes = true

	decoder, err := csvutil.NewDecoder(csvReader)
	if err != nil {
		panic(fmt.Errorf("failed to create CSV decoder: %w", err))
	}

	driveGeometries = make(map[string]Geometry)

	for {
		var row Geometry
		if err = decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			panic(fmt.Errorf("failed to decode row %d: %w", len(driveGeometries)+1, err))
		}

		if _, exists := driveGeometries[row.Slug]; exists {
			panic(fmt.Errorf("duplicate definition for drive %q", row.Slug))
		}
		driveGeometries[row.Slug] = row
	}
}
