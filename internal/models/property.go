package models

import (
	"fmt"
	"strings"
)

// PropertyType narrows a catalog search to shared or private units.
type PropertyType string

const (
	PropertyTypeAny     PropertyType = "any"
	PropertyTypeShared  PropertyType = "shared"
	PropertyTypePrivate PropertyType = "private"
)

// Property represents one accommodation listing from the remote catalog.
// The engine treats a catalog snapshot as immutable for the duration of a
// filtering pass.
type Property struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title" validate:"required"`
	Address        string   `json:"address" validate:"required"`
	IsSharedUnit   bool     `json:"is_shared_unit"`
	AvailableUnits int      `json:"available_units" validate:"gte=0"`
	TotalUnits     int      `json:"total_units" validate:"gte=0"`
	UnitCapacity   int      `json:"unit_capacity" validate:"gt=0"`
	CampusIntake   []string `json:"campus_intake" validate:"min=1,max=3"`
	ImageURLs      []string `json:"image_urls"`
}

// Validate enforces the listing invariants the wire layer cannot express.
func (p *Property) Validate() error {
	if p.AvailableUnits > p.TotalUnits {
		return fmt.Errorf("property %d: available units %d exceed total %d", p.ID, p.AvailableUnits, p.TotalUnits)
	}
	if p.UnitCapacity <= 0 {
		return fmt.Errorf("property %d: unit capacity must be positive", p.ID)
	}
	if len(p.CampusIntake) == 0 || len(p.CampusIntake) > 3 {
		return fmt.Errorf("property %d: campus intake must list 1-3 campuses", p.ID)
	}
	return nil
}

// CoverImage returns the first image URL, or empty when the listing has none.
func (p *Property) CoverImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

// FilterSpec captures the user's current search criteria. It is pure data;
// applying it never mutates the catalog or any persisted store.
type FilterSpec struct {
	SearchText      string       `json:"search_text"`
	PropertyType    PropertyType `json:"property_type"`
	CampusSelection []string     `json:"campus_selection"`
	MinCapacity     *int         `json:"min_capacity,omitempty"`
	MaxCapacity     *int         `json:"max_capacity,omitempty"`
	AvailableOnly   bool         `json:"available_only"`
}

// DefaultFilterSpec returns the spec a fresh search session starts from.
// Sold-out listings are excluded by default: "no filters" is not
// "no constraints".
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{
		PropertyType:  PropertyTypeAny,
		AvailableOnly: true,
	}
}

// NormalizedSearch returns the search text trimmed of surrounding
// whitespace and lowercased. Internal whitespace is preserved.
func (s FilterSpec) NormalizedSearch() string {
	return strings.ToLower(strings.TrimSpace(s.SearchText))
}
