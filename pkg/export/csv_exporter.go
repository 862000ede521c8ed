// Package export renders a filter result set into downloadable
// artifacts for the admin dashboard's listing exports.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/campusstay/discovery/internal/models"
)

var listingHeaders = []string{"ID", "Title", "Address", "Type", "Available", "Total", "Capacity", "Campuses"}

// CSVExporter renders listings into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the result set.
func (e *CSVExporter) Render(properties []models.Property) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(listingHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, p := range properties {
		if err := writer.Write(listingRecord(p)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func listingRecord(p models.Property) []string {
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.Title,
		p.Address,
		unitType(p),
		strconv.Itoa(p.AvailableUnits),
		strconv.Itoa(p.TotalUnits),
		strconv.Itoa(p.UnitCapacity),
		strings.Join(p.CampusIntake, "; "),
	}
}

func unitType(p models.Property) string {
	if p.IsSharedUnit {
		return "commune"
	}
	return "bachelor"
}
