package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan  = lipgloss.Color("36")  // Teal - primary actions
	colorGreen = lipgloss.Color("35")  // Green - success
	colorWhite = lipgloss.Color("255") // Bright white - values
	colorGray  = lipgloss.Color("245") // Gray - secondary text
	colorDim   = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim    = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue  = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	iconSuccess = "✓"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Cluster Summary
// =============================================================================

// clusterLine summarizes one cluster: its texton count and, once analyzed,
// how many textons learned neighbours.
type clusterLine struct {
	ID         int
	Textons    int
	Linked     int
	Background bool
}

// printClusters prints one dim line per cluster, parts joined by a middle dot.
func printClusters(w io.Writer, lines []clusterLine) {
	fmt.Fprintln(w, StyleTitle.Render("Clusters"))
	for _, l := range lines {
		parts := []string{
			fmt.Sprintf("#%d", l.ID),
			StyleNumber.Render(fmt.Sprint(l.Textons)) + StyleDim.Render(" textons"),
		}
		if l.Linked > 0 {
			parts = append(parts, StyleDim.Render(fmt.Sprintf("%d linked", l.Linked)))
		}
		if l.Background {
			parts = append(parts, StyleDim.Render("background"))
		}
		fmt.Fprintln(w, "  "+strings.Join(parts, StyleDim.Render(" · ")))
	}
}
