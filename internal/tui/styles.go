package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#0EA5E9")
	okColor     = lipgloss.Color("#22C55E")
	faintColor  = lipgloss.Color("#64748B")
	failColor   = lipgloss.Color("#F43F5E")
	warnColor   = lipgloss.Color("#EAB308")
	inkColor    = lipgloss.Color("#F1F5F9")
)

var (
	frameStyle = lipgloss.NewStyle().Padding(1, 2)

	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0F172A")).Background(accentColor).Padding(0, 1)

	// Rows in the item, version and change lists.
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	rowStyle    = lipgloss.NewStyle().Foreground(inkColor)
	faintStyle  = lipgloss.NewStyle().Foreground(faintColor)

	keysStyle = lipgloss.NewStyle().Foreground(faintColor).PaddingTop(1)

	okMark   = lipgloss.NewStyle().Bold(true).Foreground(okColor)
	failMark = lipgloss.NewStyle().Bold(true).Foreground(failColor)
	warnMark = lipgloss.NewStyle().Foreground(warnColor)

	insertStyle = lipgloss.NewStyle().Foreground(okColor)
	removeStyle = lipgloss.NewStyle().Foreground(failColor)
)
