package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rickchristie/gentask/models"
	"github.com/rickchristie/gentask/task"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")). // Blue
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")) // White bold

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red
)

// renderExchange renders a message and its response in a rounded box, with the
// elapsed time in the response heading.
func renderExchange(message, response string, elapsed time.Duration) string {
	var b strings.Builder
	if message != "" {
		b.WriteString(titleStyle.Render("Message"))
		b.WriteString("\n")
		b.WriteString(message)
		b.WriteString("\n\n")
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Response (%.1fs)", elapsed.Seconds())))
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(response, "\n"))
	return boxStyle.Render(b.String())
}

// renderFooter renders elapsed time and, for langchaingo models, token usage.
func renderFooter(t *task.Task, elapsed time.Duration) string {
	line := fmt.Sprintf("%.1fs", elapsed.Seconds())
	if lcg, ok := t.Model().(*models.LCG); ok {
		u := lcg.Usage()
		line += fmt.Sprintf(" | %d calls | %d in / %d out tokens", u.Calls, u.InputTokens, u.OutputTokens)
	}
	return dimStyle.Render(line)
}

// renderOutput formats a structured output for display.
func renderOutput(res *task.Result) string {
	if !res.Structured {
		return res.Raw
	}
	out, err := yamlString(res.Output)
	if err != nil {
		return res.Raw
	}
	return out
}
