package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusstay/discovery/internal/models"
)

func intPtr(v int) *int { return &v }

func sampleCatalog() []models.Property {
	return []models.Property{
		{
			ID: 1, Title: "Arcadia Heights", Address: "12 Church Street",
			IsSharedUnit: true, AvailableUnits: 3, TotalUnits: 10, UnitCapacity: 1,
			CampusIntake: []string{"Arcadia Campus"},
		},
		{
			ID: 2, Title: "Bachelor Pads on Park", Address: "77 Park Lane",
			IsSharedUnit: false, AvailableUnits: 0, TotalUnits: 6, UnitCapacity: 2,
			CampusIntake: []string{"Arcadia Campus", "Arts Campus"},
		},
		{
			ID: 3, Title: "Garankuwa Student Village", Address: "5 Main Road",
			IsSharedUnit: true, AvailableUnits: 8, TotalUnits: 20, UnitCapacity: 3,
			CampusIntake: []string{"Garankuwa Campus"},
		},
		{
			ID: 4, Title: "Pretoria Central Lofts", Address: "9 Church Street",
			IsSharedUnit: false, AvailableUnits: 2, TotalUnits: 4, UnitCapacity: 4,
			CampusIntake: []string{"Pretoria Campus (Main)"},
		},
	}
}

func resultIDs(props []models.Property) []int64 {
	ids := make([]int64, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestApplyDefaultSpecExcludesSoldOut(t *testing.T) {
	result := Apply(sampleCatalog(), models.DefaultFilterSpec())
	assert.Equal(t, []int64{1, 3, 4}, resultIDs(result))
}

func TestApplyEmptySpecKeepsEverything(t *testing.T) {
	spec := models.FilterSpec{PropertyType: models.PropertyTypeAny}
	result := Apply(sampleCatalog(), spec)
	assert.Equal(t, []int64{1, 2, 3, 4}, resultIDs(result))
}

func TestApplyTextMatchesTitleOrAddress(t *testing.T) {
	catalog := sampleCatalog()
	spec := models.FilterSpec{SearchText: "church street"}
	result := Apply(catalog, spec)
	assert.Equal(t, []int64{1, 4}, resultIDs(result))

	spec.SearchText = "  GARANKUWA  "
	result = Apply(catalog, spec)
	assert.Equal(t, []int64{3}, resultIDs(result))
}

func TestApplyTextPreservesInternalWhitespace(t *testing.T) {
	catalog := []models.Property{
		{ID: 1, Title: "Park Lane", Address: "x", AvailableUnits: 1, TotalUnits: 1, UnitCapacity: 1, CampusIntake: []string{"A"}},
		{ID: 2, Title: "ParkLane", Address: "y", AvailableUnits: 1, TotalUnits: 1, UnitCapacity: 1, CampusIntake: []string{"A"}},
	}
	result := Apply(catalog, models.FilterSpec{SearchText: " park lane "})
	assert.Equal(t, []int64{1}, resultIDs(result))
}

func TestApplyTypeStage(t *testing.T) {
	catalog := sampleCatalog()

	shared := Apply(catalog, models.FilterSpec{PropertyType: models.PropertyTypeShared})
	assert.Equal(t, []int64{1, 3}, resultIDs(shared))

	private := Apply(catalog, models.FilterSpec{PropertyType: models.PropertyTypePrivate})
	assert.Equal(t, []int64{2, 4}, resultIDs(private))
}

func TestApplyCampusIntersectionNotSubset(t *testing.T) {
	// Property 2 accepts Arcadia and Arts; the selection shares only
	// Arts, which is enough.
	spec := models.FilterSpec{
		CampusSelection: []string{"Arts Campus", "Garankuwa Campus"},
	}
	result := Apply(sampleCatalog(), spec)
	assert.Equal(t, []int64{2, 3}, resultIDs(result))
}

func TestApplyCapacityBoundsInclusive(t *testing.T) {
	spec := models.FilterSpec{
		MinCapacity: intPtr(2),
		MaxCapacity: intPtr(3),
	}
	result := Apply(sampleCatalog(), spec)
	assert.Equal(t, []int64{2, 3}, resultIDs(result))
}

func TestApplyInvertedBoundsYieldEmptyResult(t *testing.T) {
	spec := models.FilterSpec{
		MinCapacity: intPtr(4),
		MaxCapacity: intPtr(2),
	}
	result := Apply(sampleCatalog(), spec)
	assert.Empty(t, result)
}

func TestApplyStagesCompose(t *testing.T) {
	spec := models.FilterSpec{
		SearchText:      "a",
		PropertyType:    models.PropertyTypeShared,
		CampusSelection: []string{"Garankuwa Campus"},
		MinCapacity:     intPtr(2),
		AvailableOnly:   true,
	}
	result := Apply(sampleCatalog(), spec)
	assert.Equal(t, []int64{3}, resultIDs(result))
}

func TestApplyIsPureAndRepeatable(t *testing.T) {
	catalog := sampleCatalog()
	original := sampleCatalog()
	spec := models.FilterSpec{SearchText: "street", AvailableOnly: true}

	first := Apply(catalog, spec)
	second := Apply(catalog, spec)

	assert.Equal(t, original, catalog, "catalog must not be mutated")
	assert.Equal(t, first, second, "same inputs must yield the same ordered result")
}

func TestApplyResultIsSubsequence(t *testing.T) {
	catalog := sampleCatalog()
	result := Apply(catalog, models.FilterSpec{AvailableOnly: true})

	idx := 0
	for _, p := range result {
		found := false
		for ; idx < len(catalog); idx++ {
			if catalog[idx].ID == p.ID {
				found = true
				idx++
				break
			}
		}
		require.True(t, found, "result must preserve catalog order with no insertions")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleCatalog())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Available)
	assert.Equal(t, 2, s.SharedUnits)
	assert.Equal(t, 2, s.PrivateUnits)
	assert.Equal(t, 13, s.AvailableUnits)
	assert.Equal(t, 10+12+60+16, s.TotalCapacity)
}

func TestEngineApplyMatchesPureApply(t *testing.T) {
	engine := NewEngine(nil, nil)
	spec := models.DefaultFilterSpec()
	assert.Equal(t, Apply(sampleCatalog(), spec), engine.Apply(sampleCatalog(), spec))
}
