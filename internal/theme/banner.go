package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"biaslens/internal/model"
)

var (
	title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("213")).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("245")).
		Padding(0, 12)

	tagline = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))

	labelColors = map[model.BiasLabel]lipgloss.Color{
		model.Left:        lipgloss.Color("27"),
		model.LeftCenter:  lipgloss.Color("39"),
		model.Center:      lipgloss.Color("255"),
		model.RightCenter: lipgloss.Color("205"),
		model.Right:       lipgloss.Color("196"),
	}
)

// Banner returns the CLI banner with the bias axis drawn in color.
func Banner() string {
	return title.Render("BIASLENS") + "\n" +
		"  " + Axis() + "\n" +
		"  " + tagline.Render("see your news from every side") + "\n"
}

// Axis renders the five bias labels from left to right.
func Axis() string {
	parts := make([]string, len(model.Labels))
	for i, l := range model.Labels {
		parts[i] = Label(l)
	}
	return strings.Join(parts, " · ")
}

// Label is l's name in its color.
func Label(l model.BiasLabel) string {
	return lipgloss.NewStyle().Foreground(labelColors[l]).Render(l.String())
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
