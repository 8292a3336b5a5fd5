package models

import (
	"fmt"
	"strings"
)

// Dimension names a complaint attribute that can be broken down by label.
type Dimension string

const (
	DimensionRace     Dimension = "race"
	DimensionGender   Dimension = "gender"
	DimensionDistrict Dimension = "district"
	DimensionNature   Dimension = "nature"
)

// Dimensions lists every supported dimension in display order.
var Dimensions = []Dimension{DimensionRace, DimensionGender, DimensionDistrict, DimensionNature}

// ParseDimension validates a dimension name.
func ParseDimension(raw string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dimension %q", raw)
}

// LabelCount is one slice of a breakdown.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Aggregate is an ordered label→count breakdown of one dimension.
type Aggregate struct {
	Dimension Dimension    `json:"dimension"`
	Items     []LabelCount `json:"items"`
	Total     int          `json:"total"`
}

// Count returns the count for label, or 0 when absent.
func (a Aggregate) Count(label string) int {
	for _, item := range a.Items {
		if item.Label == label {
			return item.Count
		}
	}
	return 0
}
