// Package quality scores research content on completeness, clarity,
// source diversity, source credibility and citation presence.
package quality

import (
	"math"
	"regexp"
	"strings"

	"github.com/researchpro/orchestrator/internal/research"
)

// Sub-score weights. Fixed design constants summing to 1.0.
const (
	weightCompleteness = 0.25
	weightClarity      = 0.25
	weightDiversity    = 0.15
	weightCredibility  = 0.20
	weightCitations    = 0.15
)

// Recommendation thresholds per sub-score.
const (
	completenessFloor = 0.7
	clarityFloor      = 0.7
	diversityFloor    = 0.6
	citationsFloor    = 0.7
)

var citationPattern = regexp.MustCompile(`\[\d+\]|\(\d{4}\)|https?://`)

// Score is a multi-factor quality assessment. Overall is in [0,1],
// rounded to two decimals.
type Score struct {
	Overall         float64            `json:"overall_score"`
	Breakdown       map[string]float64 `json:"breakdown"`
	Recommendations []string           `json:"recommendations"`
}

// Evaluate scores content against the fixed rubric. Sources are optional;
// when absent, the diversity and credibility sub-scores are not computed
// and contribute the neutral 0.5 default to the weighted sum.
func Evaluate(content string, sources []research.Source) Score {
	breakdown := map[string]float64{
		"completeness": scoreCompleteness(content),
		"clarity":      scoreClarity(content),
		"citations":    scoreCitations(content),
	}
	if len(sources) > 0 {
		breakdown["source_diversity"] = scoreDiversity(sources)
		breakdown["source_credibility"] = scoreCredibility(sources)
	}

	// Fixed iteration order keeps the float sum bit-stable; Evaluate runs
	// inside workflow code and must be deterministic.
	weights := []struct {
		key    string
		weight float64
	}{
		{"completeness", weightCompleteness},
		{"clarity", weightClarity},
		{"source_diversity", weightDiversity},
		{"source_credibility", weightCredibility},
		{"citations", weightCitations},
	}

	var overall float64
	for _, w := range weights {
		sub, ok := breakdown[w.key]
		if !ok {
			sub = 0.5
		}
		overall += sub * w.weight
	}

	return Score{
		Overall:         math.Round(overall*100) / 100,
		Breakdown:       breakdown,
		Recommendations: recommendations(breakdown),
	}
}

// scoreCompleteness is a step function of word count.
func scoreCompleteness(content string) float64 {
	words := len(strings.Fields(content))
	switch {
	case words >= 200:
		return 1.0
	case words >= 100:
		return 0.7
	case words >= 50:
		return 0.5
	default:
		return 0.3
	}
}

func scoreClarity(content string) float64 {
	score := 0.5
	if strings.Contains(content, "\n\n") {
		score += 0.2
	}
	if strings.Contains(content, "#") {
		score += 0.1
	}
	if meanSentenceLength(content) < 25 {
		score += 0.2
	}
	return math.Min(score, 1.0)
}

func meanSentenceLength(content string) float64 {
	sentences := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, s := range sentences {
		total += len(strings.Fields(s))
	}
	return float64(total) / float64(len(sentences))
}

func scoreDiversity(sources []research.Source) float64 {
	categories := make(map[string]bool)
	for _, s := range sources {
		cat := s.Category
		if cat == "" {
			cat = "unknown"
		}
		categories[cat] = true
	}
	return math.Min(float64(len(categories))/3.0, 1.0)
}

// scoreCredibility averages the per-source credibility ratings. A zero
// CredibilityScore means the rating was never assigned (the field is
// omitempty on the wire) and is excluded from the average rather than
// dragged in as a literal 0.0. With no rated sources at all the sub-score
// is the neutral 0.5.
func scoreCredibility(sources []research.Source) float64 {
	var sum float64
	rated := 0
	for _, s := range sources {
		if s.CredibilityScore == 0 {
			continue
		}
		sum += s.CredibilityScore
		rated++
	}
	if rated == 0 {
		return 0.5
	}
	return sum / float64(rated)
}

func scoreCitations(content string) float64 {
	if citationPattern.MatchString(content) {
		return 1.0
	}
	return 0.3
}

func recommendations(breakdown map[string]float64) []string {
	var recs []string

	below := func(key string, floor float64) bool {
		v, ok := breakdown[key]
		return ok && v < floor
	}

	if below("completeness", completenessFloor) {
		recs = append(recs, "Add more detail and expand key points")
	}
	if below("clarity", clarityFloor) {
		recs = append(recs, "Improve structure with headers and paragraphs")
	}
	if below("source_diversity", diversityFloor) {
		recs = append(recs, "Include more diverse source types")
	}
	if below("citations", citationsFloor) {
		recs = append(recs, "Add proper citations for claims")
	}

	if len(recs) == 0 {
		return []string{"Quality is good"}
	}
	return recs
}
