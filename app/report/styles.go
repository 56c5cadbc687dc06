package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lysyi3m/news-sieve/app/classify"
)

var (
	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Foreground(lipgloss.Color("99"))

	SubheaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("243"))

	TitleStyle = lipgloss.NewStyle().
		Bold(true)

	SourceStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	DimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	URLStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Underline(true)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	WarningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	PromptStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("226")).
		Bold(true)
)

var sentimentStyles = map[string]lipgloss.Style{
	classify.LabelPositive: SuccessStyle,
	classify.LabelNegative: ErrorStyle,
	classify.LabelNeutral:  DimStyle,
}

func sentimentStyle(label string) lipgloss.Style {
	if style, ok := sentimentStyles[label]; ok {
		return style
	}
	return DimStyle
}
