package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// textStyles holds the terminal styles, bound to one output's renderer so
// color is only emitted when that output supports it.
type textStyles struct {
	header lipgloss.Style
	dim    lipgloss.Style
	date   lipgloss.Style
	title  lipgloss.Style
	source lipgloss.Style
	link   lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)

	return textStyles{
		header: r.NewStyle().Foreground(lipgloss.Color("#0969DA")).Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("#6E7681")),
		date:   r.NewStyle().Foreground(lipgloss.Color("#A371F7")),
		title:  r.NewStyle().Bold(true),
		source: r.NewStyle().Foreground(lipgloss.Color("#FFA657")),
		link:   r.NewStyle().Foreground(lipgloss.Color("#58A6FF")).Underline(true),
	}
}

// maxTitleWidth is where long titles are truncated in text output.
const maxTitleWidth = 80

// Text writes page as human-readable terminal output.
func Text(w io.Writer, page Page) error {
	styles := newTextStyles(w)
	var b strings.Builder

	b.WriteString(styles.header.Render(fmt.Sprintf("Aggregated feed items (%d)", len(page.Items))))
	b.WriteString("\n")
	if page.Filtered() {
		b.WriteString(styles.dim.Render("Filtering by tags: " + strings.Join(page.AllowedTags, ", ")))
	} else {
		b.WriteString(styles.dim.Render("Filterable tags: " + strings.Join(page.Vocabulary, ", ")))
	}
	b.WriteString("\n\n")

	if len(page.Items) == 0 {
		b.WriteString("No items to display.\n")
	}

	for _, item := range page.ViewItems() {
		title := item.Title
		if runes := []rune(title); len(runes) > maxTitleWidth {
			title = string(runes[:maxTitleWidth-3]) + "..."
		}

		fmt.Fprintf(&b, "%s  %s\n", styles.date.Render(fmt.Sprintf("%-10s", item.Date)), styles.title.Render(title))
		fmt.Fprintf(&b, "%s  %s", strings.Repeat(" ", 10), styles.source.Render(item.Subscription))
		if item.Link != "" {
			fmt.Fprintf(&b, " %s %s", styles.dim.Render("|"), styles.link.Render(item.Link))
		}
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write text output: %w", err)
	}
	return nil
}
