package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a lineage report as Markdown string.
func RenderMarkdown(r *LineageReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Feature Lineage Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Dataset version: %s | Source: %s\n\n", r.DatasetVersion, r.Source))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Fixtures | %d |\n", r.Fixtures))
	sb.WriteString(fmt.Sprintf("| Latest Season | %d |\n", r.LatestSeason))
	sb.WriteString(fmt.Sprintf("| Direct Features | %d |\n", r.Direct))
	sb.WriteString(fmt.Sprintf("| Derived Features | %d |\n", r.Derived))
	sb.WriteString(fmt.Sprintf("| Unknown Features | %d |\n", r.Unknown))
	sb.WriteString("\n")

	// Missing features
	if len(r.Missing) > 0 {
		sb.WriteString("## Missing Features\n\n")
		sb.WriteString("These features are not produced for this dataset and resolve to 0.\n\n")
		for _, name := range r.Missing {
			sb.WriteString(fmt.Sprintf("- `%s`\n", name))
		}
		sb.WriteString("\n")
	}

	// Per-model tables
	for _, m := range r.Models {
		sb.WriteString(fmt.Sprintf("## Model: %s\n\n", m.Name))
		if len(m.Features) == 0 {
			sb.WriteString("No features recorded.\n\n")
			continue
		}
		sb.WriteString("| Feature | Origin |\n")
		sb.WriteString("|---------|--------|\n")
		for _, f := range m.Features {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", f.Name, f.Origin))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
