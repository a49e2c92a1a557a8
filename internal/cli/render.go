package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/todo/internal/task"
)

var (
	colorMuted = lipgloss.Color("#6c757d")

	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f9fb0"))
	doneStyle  = lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true)
	metaStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	emptyStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("#d16d7a")).Bold(true),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(colorMuted),
	}
)

// minIDLen is the shortest id prefix shown.
const minIDLen = 8

// renderTasks writes tasks as aligned rows under title.
func renderTasks(w io.Writer, title string, tasks []task.Task) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if len(tasks) == 0 {
		fmt.Fprintln(w, emptyStyle.Render("  no tasks"))
		return
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	short := uniquePrefixes(ids, minIDLen)

	cols := [4]int{}
	rows := make([][4]string, len(tasks))
	for i, t := range tasks {
		rows[i] = [4]string{short[i], t.Text, string(t.Priority), t.Category}
		for c, cell := range rows[i] {
			cols[c] = max(cols[c], lipgloss.Width(cell))
		}
	}

	for i, t := range tasks {
		r := rows[i]
		check := "[ ]"
		text := pad(r[1], cols[1])
		if t.Completed {
			check = "[x]"
			text = doneStyle.Render(r[1]) + strings.Repeat(" ", cols[1]-lipgloss.Width(r[1]))
		}
		line := fmt.Sprintf("%s %s  %s  %s  %s",
			check,
			idStyle.Render(pad(r[0], cols[0])),
			text,
			priorityStyles[t.Priority].Render(pad(r[2], cols[2])),
			metaStyle.Render(pad(r[3], cols[3])),
		)
		if due := formatDue(t); due != "" {
			line += "  " + metaStyle.Render(due)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", max(0, width-lipgloss.Width(s)))
}

// formatDue shows the due instant without seconds, and without the time
// at midnight.
func formatDue(t task.Task) string {
	if t.DueAt.IsZero() {
		return ""
	}
	if h, m, s := t.DueAt.Clock(); h == 0 && m == 0 && s == 0 {
		return t.DueAt.Format("2006-01-02")
	}
	return t.DueAt.Format("2006-01-02 15:04")
}

// uniquePrefixes returns, for each id, its shortest prefix of at least minLen
// bytes that no other id in ids shares.
func uniquePrefixes(ids []string, minLen int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		n := minLen
		for j, other := range ids {
			if i == j {
				continue
			}
			n = max(n, commonPrefix(id, other)+1)
		}
		if n > len(id) {
			n = len(id)
		}
		out[i] = id[:n]
	}
	return out
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
