package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSources(n int) []Source {
	out := make([]Source, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Source{
			URL:        "https://example.org/" + string(rune('a'+i)),
			Title:      "Source " + string(rune('A'+i)),
			Confidence: 0.8,
			Validated:  true,
		})
	}
	return out
}

func TestRenderReportSections(t *testing.T) {
	report := RenderReport(ReportInput{
		Query:     "What is CRISPR?",
		Synthesis: "CRISPR is a gene editing technology.",
		Summary: Summary{
			Content:      "fallback content",
			QualityScore: 0.85,
			Iterations:   2,
		},
		Sources:     sampleSources(3),
		Preferences: DefaultPreferences(),
	})

	assert.True(t, strings.HasPrefix(report, "# Research Report: What is CRISPR?\n"))
	assert.Contains(t, report, "## Summary\nCRISPR is a gene editing technology.")
	assert.Contains(t, report, "## Quality Metrics\n")
	assert.Contains(t, report, "- Sources Analyzed: 3\n")
	assert.Contains(t, report, "- Quality Score: 85%\n")
	assert.Contains(t, report, "- Iterations: 2\n")
	assert.Contains(t, report, "1. [Source A](https://example.org/a) - Confidence: 80%")
	assert.Contains(t, report, "## Methodology")
	assert.Contains(t, report, "Citations in APA style")
}

func TestRenderReportFallsBackToSummaryContent(t *testing.T) {
	report := RenderReport(ReportInput{
		Query:   "topic",
		Summary: Summary{Content: "summary only", QualityScore: 0.5, Iterations: 1},
	})
	assert.Contains(t, report, "## Summary\nsummary only")
}

func TestRenderReportCapsSourceList(t *testing.T) {
	report := RenderReport(ReportInput{
		Query:   "topic",
		Summary: Summary{Content: "s", QualityScore: 0.5, Iterations: 1},
		Sources: sampleSources(7),
	})

	assert.Contains(t, report, "- Sources Analyzed: 7\n")
	assert.Contains(t, report, "5. [Source E]")
	assert.NotContains(t, report, "6. [Source F]")
}

func TestRenderReportNoSources(t *testing.T) {
	report := RenderReport(ReportInput{
		Query:   "topic",
		Summary: Summary{Content: "s", QualityScore: 0.5, Iterations: 1},
	})
	assert.Contains(t, report, "No sources retained.")
}

func TestRenderReportConciseDetailLevel(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.DetailLevel = "concise"

	report := RenderReport(ReportInput{
		Query:       "topic",
		Synthesis:   "First paragraph.\n\nSecond paragraph with depth.",
		Summary:     Summary{QualityScore: 0.5, Iterations: 1},
		Preferences: prefs,
	})

	require.Contains(t, report, "First paragraph.")
	assert.NotContains(t, report, "Second paragraph with depth.")
}
