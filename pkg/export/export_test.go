package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusstay/discovery/internal/models"
)

func exportFixture() []models.Property {
	return []models.Property{
		{
			ID: 1, Title: "Arcadia Heights", Address: "12 Church Street",
			IsSharedUnit: true, AvailableUnits: 3, TotalUnits: 10, UnitCapacity: 2,
			CampusIntake: []string{"Arcadia Campus", "Arts Campus"},
		},
		{
			ID: 2, Title: "Park Lane Bachelors", Address: "77 Park Lane",
			IsSharedUnit: false, AvailableUnits: 0, TotalUnits: 6, UnitCapacity: 1,
			CampusIntake: []string{"Pretoria Campus (Main)"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	payload, err := NewCSVExporter().Render(exportFixture())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, listingHeaders, records[0])
	assert.Equal(t, []string{"1", "Arcadia Heights", "12 Church Street", "commune", "3", "10", "2", "Arcadia Campus; Arts Campus"}, records[1])
	assert.Equal(t, "bachelor", records[2][3])
}

func TestCSVExporterEmptyResultStillHasHeaders(t *testing.T) {
	payload, err := NewCSVExporter().Render(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, listingHeaders, records[0])
}

func TestPDFExporterRender(t *testing.T) {
	payload, err := NewPDFExporter().Render(exportFixture(), "CampusStay listings")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")), "output should be a PDF document")
}
