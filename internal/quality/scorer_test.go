package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchpro/orchestrator/internal/research"
)

func TestEvaluateBoundsForArbitraryInput(t *testing.T) {
	cases := []struct {
		name    string
		content string
		sources []research.Source
	}{
		{"empty content no sources", "", nil},
		{"empty content empty sources", "", []research.Source{}},
		{"short text", "Quantum computing is advancing.", nil},
		{"long structured text", strings.Repeat("Quantum computers factor integers quickly. ", 60) +
			"\n\n## Details\nSee [1] and (2024) for prior work: https://example.org/paper",
			[]research.Source{
				{URL: "https://a.test", Category: "academic", CredibilityScore: 0.9},
				{URL: "https://b.test", Category: "news", CredibilityScore: 0.6},
				{URL: "https://c.test", Category: "blog"},
			}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Evaluate(tc.content, tc.sources)
			assert.GreaterOrEqual(t, s.Overall, 0.0)
			assert.LessOrEqual(t, s.Overall, 1.0)
			// Rounded to two decimals.
			assert.InDelta(t, s.Overall, float64(int(s.Overall*100+0.5))/100, 1e-9)
			assert.NotEmpty(t, s.Recommendations)
		})
	}
}

func TestCompletenessStepFunction(t *testing.T) {
	word := "research "
	cases := []struct {
		words    int
		expected float64
	}{
		{10, 0.3},
		{50, 0.5},
		{100, 0.7},
		{200, 1.0},
		{500, 1.0},
	}
	for _, tc := range cases {
		content := strings.TrimSpace(strings.Repeat(word, tc.words))
		assert.Equal(t, tc.expected, scoreCompleteness(content), "words=%d", tc.words)
	}
}

func TestClarityRewardsStructure(t *testing.T) {
	flat := "one long unbroken run of text without structure at all"
	structured := "## Findings\n\nShort sentences. Clear text. Good flow."

	require.Less(t, scoreClarity(flat), scoreClarity(structured))
	assert.Equal(t, 1.0, scoreClarity(structured))
}

func TestCitationsDetection(t *testing.T) {
	assert.Equal(t, 1.0, scoreCitations("as shown in [1]"))
	assert.Equal(t, 1.0, scoreCitations("Smith et al. (2023) found"))
	assert.Equal(t, 1.0, scoreCitations("see https://example.org"))
	assert.Equal(t, 0.3, scoreCitations("no citations here"))
}

func TestDiversityCapsAtThreeCategories(t *testing.T) {
	sources := []research.Source{
		{URL: "u1", Category: "academic"},
		{URL: "u2", Category: "news"},
		{URL: "u3", Category: "blog"},
		{URL: "u4", Category: "forum"},
	}
	assert.Equal(t, 1.0, scoreDiversity(sources))
	assert.InDelta(t, 1.0/3.0, scoreDiversity(sources[:1]), 1e-9)
}

func TestCredibilityIgnoresUnratedSources(t *testing.T) {
	// An unrated source (zero score) is excluded from the average instead
	// of counting as a literal 0.0 or an invented default.
	sources := []research.Source{
		{URL: "u1", CredibilityScore: 0.9},
		{URL: "u2"},
		{URL: "u3", CredibilityScore: 0.5},
	}
	assert.InDelta(t, 0.7, scoreCredibility(sources), 1e-9)
	assert.InDelta(t, 0.9, scoreCredibility(sources[:2]), 1e-9)
}

func TestCredibilityNeutralWhenNothingRated(t *testing.T) {
	sources := []research.Source{{URL: "u1"}, {URL: "u2"}}
	assert.InDelta(t, 0.5, scoreCredibility(sources), 1e-9)
}

func TestAbsentSourceScoresDefaultToNeutralWeight(t *testing.T) {
	content := "brief"
	withNone := Evaluate(content, nil)

	// completeness 0.3, clarity 0.7 (short sentence), citations 0.3,
	// diversity/credibility absent -> 0.5 each.
	expected := 0.3*0.25 + 0.7*0.25 + 0.5*0.15 + 0.5*0.20 + 0.3*0.15
	assert.InDelta(t, expected, withNone.Overall, 0.005)
}

func TestRecommendationsTriggerPerSubScore(t *testing.T) {
	s := Evaluate("tiny", []research.Source{{URL: "u", Category: "news"}})
	assert.Contains(t, s.Recommendations, "Add more detail and expand key points")
	assert.Contains(t, s.Recommendations, "Include more diverse source types")
	assert.Contains(t, s.Recommendations, "Add proper citations for claims")

	good := Evaluate(strings.Repeat("Clear finding backed by data. ", 50)+
		"\n\n## Sources\nSee [1] and https://example.org",
		[]research.Source{
			{URL: "a", Category: "academic", CredibilityScore: 0.9},
			{URL: "b", Category: "news", CredibilityScore: 0.8},
			{URL: "c", Category: "blog", CredibilityScore: 0.8},
		})
	assert.Equal(t, []string{"Quality is good"}, good.Recommendations)
}
