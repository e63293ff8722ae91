// Package legend renders the colour scale of a trace-gas layer.
package legend

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

const swatchWidth = 3

// View renders a legend as a column of swatches and labels.
type View struct {
	styles *styles.Styles
	legend domain.Legend
}

// NewView creates a legend view.
func NewView(s *styles.Styles, legend domain.Legend) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, legend: legend}
}

// View renders the legend, or nothing when it has no bins.
func (v *View) View() string {
	if len(v.legend.Bins) == 0 {
		return ""
	}

	rows := make([]string, 0, len(v.legend.Bins)+1)
	rows = append(rows, v.styles.Label.UnsetWidth().Render(v.legend.Title))
	for _, bin := range v.legend.Bins {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			v.styles.Swatch(bin.Color, swatchWidth),
			" ",
			v.styles.Normal.Render(bin.Label),
		))
	}
	return strings.Join(rows, "\n")
}
