package charts

import "github.com/google/uuid"

// FallbackDescription is used when a proposal carries no description.
const FallbackDescription = "Updated based on your request"

// MergeResult is the reconciled chart set plus the IDs touched by the merge.
type MergeResult struct {
	Charts  []ChartSpec
	Updated []string
	Added   []string
}

// Merge reconciles proposals against current and returns a new chart slice; current is
// never modified. Each proposal is matched independently against the working set, which
// includes charts appended earlier in the same batch:
//
//  1. a chart with the proposal's ID and the same (XField, YField) pair, else
//  2. the first chart in array order with the same pair.
//
// A match keeps its ID, position, type and title and takes the proposal's series,
// description and insights. Unmatched proposals are appended.
func Merge(current, proposals []ChartSpec) MergeResult {
	res := MergeResult{Charts: make([]ChartSpec, 0, len(current)+len(proposals))}
	for _, c := range current {
		res.Charts = append(res.Charts, c.Clone())
	}
	for _, p := range proposals {
		p = p.Clone()
		if p.Description == "" {
			p.Description = FallbackDescription
		}
		if i := matchIndex(res.Charts, p); i >= 0 {
			existing := &res.Charts[i]
			existing.Series = p.Series
			existing.Description = p.Description
			existing.Insights = p.Insights
			res.Updated = append(res.Updated, existing.ID)
			continue
		}
		if p.ID == "" || indexOfID(res.Charts, p.ID) >= 0 {
			p.ID = uuid.NewString()
		}
		res.Charts = append(res.Charts, p)
		res.Added = append(res.Added, p.ID)
	}
	return res
}

func matchIndex(charts []ChartSpec, p ChartSpec) int {
	if p.ID != "" {
		if i := indexOfID(charts, p.ID); i >= 0 && charts[i].SameFields(p) {
			return i
		}
	}
	for i := range charts {
		if charts[i].SameFields(p) {
			return i
		}
	}
	return -1
}

func indexOfID(charts []ChartSpec, id string) int {
	for i := range charts {
		if charts[i].ID == id {
			return i
		}
	}
	return -1
}
