// Package catalog implements the property filter engine and the client
// for the remote listing catalog.
package catalog

import (
	"strings"

	"github.com/campusstay/discovery/internal/models"
)

// Apply narrows a catalog snapshot to the properties matching every
// active stage of the spec. It is a pure function: the catalog and spec
// are never mutated, matches keep their catalog order, and the result is
// a fresh slice that may share Property values with the input.
//
// Stages compose by logical AND. A stage whose criterion is empty or
// absent is vacuously true and excludes nothing. Inverted capacity
// bounds legitimately produce an empty result.
func Apply(catalog []models.Property, spec models.FilterSpec) []models.Property {
	search := spec.NormalizedSearch()

	result := make([]models.Property, 0, len(catalog))
	for _, p := range catalog {
		if !matchesText(p, search) {
			continue
		}
		if !matchesType(p, spec.PropertyType) {
			continue
		}
		if !matchesCampus(p, spec.CampusSelection) {
			continue
		}
		if !matchesCapacity(p, spec.MinCapacity, spec.MaxCapacity) {
			continue
		}
		if spec.AvailableOnly && p.AvailableUnits == 0 {
			continue
		}
		result = append(result, p)
	}
	return result
}

// matchesText does a case-insensitive substring match against title or
// address. The search argument arrives already trimmed and lowercased.
func matchesText(p models.Property, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), search) ||
		strings.Contains(strings.ToLower(p.Address), search)
}

func matchesType(p models.Property, t models.PropertyType) bool {
	switch t {
	case models.PropertyTypeShared:
		return p.IsSharedUnit
	case models.PropertyTypePrivate:
		return !p.IsSharedUnit
	default:
		return true
	}
}

// matchesCampus keeps the property when any selected campus appears in
// its intake list. Intersection, not subset: a property accepting
// campuses beyond the selection still matches.
func matchesCampus(p models.Property, selection []string) bool {
	if len(selection) == 0 {
		return true
	}
	for _, want := range selection {
		for _, have := range p.CampusIntake {
			if want == have {
				return true
			}
		}
	}
	return false
}

func matchesCapacity(p models.Property, min, max *int) bool {
	if min != nil && p.UnitCapacity < *min {
		return false
	}
	if max != nil && p.UnitCapacity > *max {
		return false
	}
	return true
}

// Stats aggregates the headline counts shown on the admin dashboard
// cards.
type Stats struct {
	Total          int `json:"total"`
	Available      int `json:"available"`
	SharedUnits    int `json:"shared_units"`
	PrivateUnits   int `json:"private_units"`
	TotalCapacity  int `json:"total_capacity"`
	AvailableUnits int `json:"available_units"`
}

// Summarize computes catalog statistics in one pass.
func Summarize(catalog []models.Property) Stats {
	var s Stats
	for _, p := range catalog {
		s.Total++
		if p.AvailableUnits > 0 {
			s.Available++
		}
		if p.IsSharedUnit {
			s.SharedUnits++
		} else {
			s.PrivateUnits++
		}
		s.TotalCapacity += p.UnitCapacity * p.TotalUnits
		s.AvailableUnits += p.AvailableUnits
	}
	return s
}
