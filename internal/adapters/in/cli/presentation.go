package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorPrimary = lipgloss.Color("#00ff88")
	colorInfo    = lipgloss.Color("#00ccff")
	colorWarning = lipgloss.Color("#fbbf24")
	colorMuted   = lipgloss.Color("#737373")
	colorBorder  = lipgloss.Color("#404040")
	colorText    = lipgloss.Color("#e5e5e5")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Foreground(colorText).Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(colorBorder)
)

var cliWriteLine = func(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

func cliRenderTitle(msg string) string {
	return titleStyle.Render(msg)
}

func cliRenderMuted(msg string) string {
	return mutedStyle.Render(msg)
}

func cliRenderMeta(label, value string) string {
	return boldStyle.Render(label) + " " + mutedStyle.Render(value)
}

func cliRenderSuccess(msg string) string {
	return successStyle.Render("✓ " + msg)
}

func cliRenderWarning(msg string) string {
	return warningStyle.Render("! " + msg)
}

func cliRenderInfo(msg string) string {
	return infoStyle.Render("i " + msg)
}

func cliRenderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
