package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

// raceOtherLabel receives the folded race categories.
const raceOtherLabel = "Other"

// raceFoldedLabels are published only as part of raceOtherLabel. This is a
// fixed publication policy for the public charts.
var raceFoldedLabels = []string{"Bosnian", "Asian", "Hispanic"}

// AggregateOptions tune the ordering of a breakdown.
type AggregateOptions struct {
	// SortByCount orders items by descending count; ties keep first-seen order.
	SortByCount bool
}

// Aggregate counts complaints per label of dimension in first-seen order.
//
// The race breakdown drops blank labels and folds Bosnian, Asian and Hispanic
// into Other. If any of those three labels is missing from non-empty race
// data the category vocabulary has changed and the fold must be reviewed, so
// it fails with AGGREGATION_ASSUMPTION_VIOLATED.
func Aggregate(complaints []models.Complaint, dimension models.Dimension, opts AggregateOptions) (models.Aggregate, error) {
	pick, err := dimensionValue(dimension)
	if err != nil {
		return models.Aggregate{}, err
	}

	counts := make(map[string]int)
	var order []string
	for _, c := range complaints {
		label := pick(c)
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	if dimension == models.DimensionRace {
		if order, err = foldRace(order, counts); err != nil {
			return models.Aggregate{}, err
		}
	}

	agg := models.Aggregate{Dimension: dimension, Items: make([]models.LabelCount, 0, len(order))}
	for _, label := range order {
		agg.Items = append(agg.Items, models.LabelCount{Label: label, Count: counts[label]})
		agg.Total += counts[label]
	}
	if opts.SortByCount {
		agg.Items = SortByCount(agg.Items)
	}
	return agg, nil
}

// AggregateAll computes every supported dimension.
func AggregateAll(complaints []models.Complaint) (map[models.Dimension]models.Aggregate, error) {
	out := make(map[models.Dimension]models.Aggregate, len(models.Dimensions))
	for _, d := range models.Dimensions {
		agg, err := Aggregate(complaints, d, AggregateOptions{})
		if err != nil {
			return nil, err
		}
		out[d] = agg
	}
	return out, nil
}

// SortByCount returns a copy of items ordered by descending count. Equal
// counts keep their relative order.
func SortByCount(items []models.LabelCount) []models.LabelCount {
	sorted := make([]models.LabelCount, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	return sorted
}

func dimensionValue(d models.Dimension) (func(models.Complaint) string, error) {
	switch d {
	case models.DimensionRace:
		return func(c models.Complaint) string { return c.ComplainantRace }, nil
	case models.DimensionGender:
		return func(c models.Complaint) string { return c.ComplainantGender }, nil
	case models.DimensionDistrict:
		return func(c models.Complaint) string { return c.District }, nil
	case models.DimensionNature:
		return func(c models.Complaint) string { return c.NatureOfComplaint }, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown dimension %q", d))
	}
}

// foldRace applies the race publication policy to counts and returns the
// adjusted label order.
func foldRace(order []string, counts map[string]int) ([]string, error) {
	delete(counts, "")
	kept := order[:0:0]
	for _, label := range order {
		if label != "" {
			kept = append(kept, label)
		}
	}
	if len(kept) == 0 {
		return kept, nil
	}

	var missing []string
	for _, label := range raceFoldedLabels {
		if _, ok := counts[label]; !ok {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrAggregationAssumptionFailed,
			fmt.Sprintf("race labels %s not present; review the %q consolidation", strings.Join(missing, ", "), raceOtherLabel))
	}

	folded := make(map[string]bool, len(raceFoldedLabels))
	for _, label := range raceFoldedLabels {
		counts[raceOtherLabel] += counts[label]
		delete(counts, label)
		folded[label] = true
	}

	out := make([]string, 0, len(kept))
	hasOther := false
	for _, label := range kept {
		if folded[label] {
			continue
		}
		if label == raceOtherLabel {
			hasOther = true
		}
		out = append(out, label)
	}
	if !hasOther {
		out = append(out, raceOtherLabel)
	}
	return out, nil
}
