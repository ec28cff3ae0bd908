package research

import (
	"fmt"
	"strings"
)

// maxReportSources caps the source list rendered into a report.
const maxReportSources = 5

// ReportInput carries everything report rendering needs. Rendering is
// pure: it mutates nothing and depends only on its input.
type ReportInput struct {
	Query       string      `json:"query"`
	Synthesis   string      `json:"synthesis"` // narrative from the report agent; summary content when absent
	Summary     Summary     `json:"summary"`
	Sources     []Source    `json:"sources"`
	Preferences Preferences `json:"preferences"`
}

// RenderReport produces the final markdown report: synthesis, a quality
// metrics block, the top sources with confidence, and a fixed
// methodology note.
func RenderReport(in ReportInput) string {
	synthesis := in.Synthesis
	if strings.TrimSpace(synthesis) == "" {
		synthesis = in.Summary.Content
	}
	if in.Preferences.DetailLevel == "concise" {
		if head, _, found := strings.Cut(synthesis, "\n\n"); found {
			synthesis = head
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Report: %s\n\n", in.Query)

	b.WriteString("## Summary\n")
	b.WriteString(synthesis)
	b.WriteString("\n\n")

	b.WriteString("## Quality Metrics\n")
	fmt.Fprintf(&b, "- Sources Analyzed: %d\n", len(in.Sources))
	fmt.Fprintf(&b, "- Quality Score: %.0f%%\n", in.Summary.QualityScore*100)
	fmt.Fprintf(&b, "- Iterations: %d\n\n", in.Summary.Iterations)

	b.WriteString("## Sources\n")
	b.WriteString(formatSources(in.Sources))
	b.WriteString("\n\n")

	b.WriteString("## Methodology\n")
	b.WriteString("This report was generated by a multi-agent research pipeline:\n")
	b.WriteString("- Parallel search across multiple query angles\n")
	b.WriteString("- Fact-checking and source validation\n")
	b.WriteString("- Iterative quality-scored summarization\n")
	fmt.Fprintf(&b, "- Citations in %s style\n", in.Preferences.CitationStyle)

	return b.String()
}

func formatSources(sources []Source) string {
	if len(sources) == 0 {
		return "No sources retained."
	}
	if len(sources) > maxReportSources {
		sources = sources[:maxReportSources]
	}

	lines := make([]string, 0, len(sources))
	for i, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		lines = append(lines, fmt.Sprintf("%d. [%s](%s) - Confidence: %.0f%%",
			i+1, title, s.URL, s.Confidence*100))
	}
	return strings.Join(lines, "\n")
}
