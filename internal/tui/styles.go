package tui

import "github.com/charmbracelet/lipgloss"

const cellWidth = 10

var (
	primary = lipgloss.Color("#7D56F4")
	accent  = lipgloss.Color("#04B575")
	muted   = lipgloss.Color("#626262")
	danger  = lipgloss.Color("#FF5F87")
	text    = lipgloss.Color("#FAFAFA")

	monthHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primary).
				Width(cellWidth * 7).
				Align(lipgloss.Center).
				MarginBottom(1)

	weekdayStyle = lipgloss.NewStyle().
			Bold(true).
			Width(cellWidth).
			Align(lipgloss.Center)

	dayStyle      = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center)
	outsideStyle  = dayStyle.Foreground(muted)
	todayStyle    = dayStyle.Bold(true).Foreground(accent)
	selectedStyle = dayStyle.Background(primary).Foreground(text)
	markerStyle   = lipgloss.NewStyle().Foreground(accent)

	dateHeaderStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	timeStyle       = lipgloss.NewStyle().Foreground(muted).Width(7)
	pointerStyle    = lipgloss.NewStyle().Foreground(primary)
	noEventsStyle   = lipgloss.NewStyle().Foreground(muted).Italic(true)

	errStyle    = lipgloss.NewStyle().Foreground(danger)
	statusStyle = lipgloss.NewStyle().Foreground(muted)
	helpStyle   = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(primary)

	formTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(primary).MarginBottom(1)
	labelStyle     = lipgloss.NewStyle().Width(13).Foreground(muted)
	focusedLabel   = labelStyle.Foreground(primary)

	appStyle = lipgloss.NewStyle().Padding(1, 2)
)
