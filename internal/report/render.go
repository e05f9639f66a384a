// Package report renders run reports for terminal output.
package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/magicmaxmagic/ScrappingBot/internal/models"
)

const maxErrorLines = 10

// Render formats the run report as an aligned two-column summary
// followed by the first recorded errors.
func Render(r *models.RunReport) string {
	rows := [][2]string{
		{"Phase", r.Phase},
		{"Success", fmt.Sprintf("%t", r.Success)},
		{"Duration", fmt.Sprintf("%.2fs", r.DurationSeconds)},
		{"Extracted", fmt.Sprintf("%d", r.Stats.Extracted)},
		{"Transformed", fmt.Sprintf("%d", r.Stats.Transformed)},
		{"Deduplicated", fmt.Sprintf("%d", r.Stats.Deduplicated)},
		{"Rejected", fmt.Sprintf("%d", r.Stats.Rejected)},
		{"Loaded", fmt.Sprintf("%d", r.Stats.Loaded)},
		{"Write failures", fmt.Sprintf("%d", r.Stats.WriteFailures)},
		{"Quality score", fmt.Sprintf("%.2f", r.Stats.QualityScore)},
		{"Errors", fmt.Sprintf("%d", len(r.Errors))},
	}

	// Column widths by display width so wide runes stay aligned.
	keyWidth, valWidth := 0, 0

	for _, row := range rows {
		if w := runewidth.StringWidth(row[0]); w > keyWidth {
			keyWidth = w
		}

		if w := runewidth.StringWidth(row[1]); w > valWidth {
			valWidth = w
		}
	}

	var sb strings.Builder

	border := "+" + strings.Repeat("-", keyWidth+2) + "+" + strings.Repeat("-", valWidth+2) + "+\n"
	sb.WriteString(border)

	for _, row := range rows {
		sb.WriteString("| ")
		sb.WriteString(pad(row[0], keyWidth))
		sb.WriteString(" | ")
		sb.WriteString(pad(row[1], valWidth))
		sb.WriteString(" |\n")
	}

	sb.WriteString(border)

	if len(r.Errors) > 0 {
		sb.WriteString("\nErrors:\n")

		for i, e := range r.Errors {
			if i == maxErrorLines {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(r.Errors)-maxErrorLines))
				break
			}

			source := e.Source
			if source == "" {
				source = "-"
			}

			sb.WriteString(fmt.Sprintf("  [%s] %s: %s\n", e.Category, source, e.Message))
		}
	}

	return sb.String()
}

// pad right-pads s with spaces up to the given display width.
func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}

	return s + strings.Repeat(" ", gap)
}
