// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/candidate-ranker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// barWidth is the width of a weight bar at weight 1.0
	barWidth = 20
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// bar renders a weight in [0,1] as a fixed-width bar.
func bar(weight float64) string {
	n := int(weight*barWidth + 0.5)
	n = max(0, min(n, barWidth))
	return strings.Repeat("█", n) + strings.Repeat("·", barWidth-n)
}

func writeWeights(sb *strings.Builder, w types.WeightVector) {
	for _, wa := range w.Sorted() {
		sb.WriteString(fmt.Sprintf("%-18s %s %.3f\n", wa.Key, bar(wa.Weight), wa.Weight))
	}
}

// PrintWeights outputs a weight preview as a bar chart.
func (p *Printer) PrintWeights(preview *types.WeightPreview) {
	if preview == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", preview.JobID))
	sb.WriteString(fmt.Sprintf("Query:    %s\n", preview.Query))
	if preview.Degraded {
		sb.WriteString("Weights:  uniform fallback\n")
	}
	sb.WriteString("\n")
	writeWeights(&sb, preview.Weights)

	if preview.Reasoning != "" {
		sb.WriteString("\n")
		sb.WriteString(preview.Reasoning)
	}

	p.printBox("ASPECT WEIGHTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRanking outputs the weights and the top N ranked candidates with
// their strongest aspects.
func (p *Printer) PrintRanking(report *types.AnalysisReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	title := report.JobTitle
	if title == "" {
		title = report.JobID
	}
	sb.WriteString(fmt.Sprintf("Job:      %s\n", title))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", report.Status))
	if len(report.Degradations) > 0 {
		sb.WriteString(fmt.Sprintf("Degraded: %s\n", strings.Join(report.Degradations, ", ")))
	}
	sb.WriteString("\n")
	writeWeights(&sb, report.Weights)
	sb.WriteString("\n")

	if len(report.TopCandidates) == 0 {
		sb.WriteString("No candidates ranked")
		p.printBox("CANDIDATE RANKING", sb.String())
		return
	}

	sb.WriteString(fmt.Sprintf("Total candidates ranked: %d\n\n", len(report.TopCandidates)))

	count := min(len(report.TopCandidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := report.TopCandidates[i]
		label := c.CandidateID
		if c.Name != "" {
			label = fmt.Sprintf("%s (%s)", c.Name, c.CandidateID)
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", c.Rank, label))
		sb.WriteString(fmt.Sprintf("    Score: %.3f\n", c.CompositeScore))

		top := c.Breakdown.TopAspects(2)
		if len(top) > 0 {
			parts := make([]string, len(top))
			for j, key := range top {
				parts[j] = fmt.Sprintf("%s %.2f", key, c.Breakdown.AspectScores[key])
			}
			sb.WriteString(fmt.Sprintf("    Top:   %s\n", strings.Join(parts, ", ")))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(report.TopCandidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more candidates", len(report.TopCandidates)-maxItemsToShow))
	}

	p.printBox("CANDIDATE RANKING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExplanation outputs the narrative sections of a report.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintExplanation(report *types.AnalysisReport) {
	if report == nil {
		return
	}
	if report.Analysis == "" && report.Recommendations == "" && report.KeyInsights == "" {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO EXPLANATION AVAILABLE")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for _, section := range []struct{ title, body string }{
		{"Analysis", report.Analysis},
		{"Recommendations", report.Recommendations},
		{"Key insights", report.KeyInsights},
	} {
		if section.body == "" {
			continue
		}
		sb.WriteString(section.title + ":\n")
		for _, line := range wrap(section.body, boxWidth-6) {
			sb.WriteString("  " + line + "\n")
		}
		sb.WriteString("\n")
	}

	p.printBox("EXPLANATION", strings.TrimRight(sb.String(), "\n"))
}

// wrap splits text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len([]rune(line))+1+len([]rune(w)) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}
