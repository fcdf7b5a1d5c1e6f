package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm prints a warning box listing warnings and asks the user to type
// "yes". Anything else, including EOF, declines.
func Confirm(in io.Reader, out io.Writer, title string, warnings ...string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render("⚠  WARNING  ─  " + title), ""}
	for _, w := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("• "+w))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, boxStyle(WarningColor, width).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, lipgloss.NewStyle().Bold(true).Render("Type 'yes' to continue: "))

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "yes")
}
