package research

import "strings"

// MaxAngles bounds the search fan-out. Fixed design constant.
const MaxAngles = 3

// Angle is one reformulation of the original query, biased toward a
// particular facet of the topic.
type Angle struct {
	Query string `json:"query"`
	Facet string `json:"facet"`
}

// DeriveAngles produces between one and MaxAngles distinct query
// reformulations. Identical reformulations collapse, so a degenerate
// query still yields at least one angle. Deterministic: safe to call
// from workflow code.
func DeriveAngles(query string) []Angle {
	query = strings.TrimSpace(query)

	candidates := []Angle{
		{Query: query + " recent research", Facet: "recency"},
		{Query: query + " academic papers", Facet: "scholarly"},
		{Query: query + " expert analysis", Facet: "expert-analysis"},
	}

	seen := make(map[string]bool, len(candidates))
	angles := make([]Angle, 0, MaxAngles)
	for _, a := range candidates {
		if seen[a.Query] {
			continue
		}
		seen[a.Query] = true
		angles = append(angles, a)
		if len(angles) == MaxAngles {
			break
		}
	}
	return angles
}

// MergeSources deduplicates search results from the fan-out. Input order
// is angle-dispatch order, then within-angle order; the first occurrence
// of a URL wins. Sources without a URL are dropped. The merged list is
// truncated to maxSources.
func MergeSources(perAngle [][]Source, maxSources int) []Source {
	seen := make(map[string]bool)
	merged := make([]Source, 0, maxSources)

	for _, batch := range perAngle {
		for _, s := range batch {
			if s.URL == "" || seen[s.URL] {
				continue
			}
			seen[s.URL] = true
			merged = append(merged, s)
		}
	}

	if len(merged) > maxSources {
		merged = merged[:maxSources]
	}
	return merged
}
