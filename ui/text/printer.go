// Package text prints rendered trees for terminals.
package text

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/ui"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	buttonStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	containerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	alertStyles    = map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		"success": lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
	statusIcons = map[string]string{
		"pending":     "○",
		"in-progress": "◐",
		"success":     "●",
		"error":       "✕",
	}
)

// Printer renders nodes to styled text.
type Printer struct {
	Width int
}

// NewPrinter returns a printer with the given wrap width; 0 disables wrapping.
func NewPrinter(width int) *Printer {
	return &Printer{Width: width}
}

// Print renders n; a nil node prints as "".
func (p *Printer) Print(n *ui.Node) string {
	if n == nil {
		return ""
	}
	out := p.node(n)
	if p.Width > 0 {
		out = lipgloss.NewStyle().Width(p.Width).Render(out)
	}
	return out
}

func (p *Printer) node(n *ui.Node) string {
	switch n.Type {
	case ui.TypeHeader:
		title := headerStyle.Render(p.children(n, " "))
		if desc := n.Props.String("description"); desc != "" {
			title += "\n" + mutedStyle.Render(desc)
		}
		if action := p.slot(n.Props["action"]); action != "" {
			title += "  " + action
		}
		return title
	case ui.TypeContainer, ui.TypeExpandableSection:
		parts := []string{}
		if h := p.slot(n.Props["header"]); h != "" {
			parts = append(parts, h)
		} else if h := n.Props.String("headerText"); h != "" {
			parts = append(parts, headerStyle.Render(h))
		}
		if body := p.children(n, "\n"); body != "" {
			parts = append(parts, body)
		}
		if f := p.slot(n.Props["footer"]); f != "" {
			parts = append(parts, mutedStyle.Render(f))
		}
		return containerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	case ui.TypeColumnLayout:
		cols := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			cols = append(cols, lipgloss.NewStyle().PaddingRight(2).Render(p.value(c)))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	case ui.TypeAlert:
		style, ok := alertStyles[n.Props.String("type")]
		if !ok {
			style = alertStyles["info"]
		}
		body := p.children(n, " ")
		if h := n.Props.String("header"); h != "" {
			body = headerStyle.Render(h) + " " + body
		}
		return style.Render("▌ " + body)
	case ui.TypeStatusIndicator:
		typ := n.Props.String("type")
		icon, ok := statusIcons[typ]
		if !ok {
			icon = "•"
		}
		return icon + " " + p.children(n, " ")
	case ui.TypeBadge:
		return "[" + p.children(n, " ") + "]"
	case ui.TypeButton, ui.TypeLink:
		label := p.children(n, " ")
		if label == "" {
			label = n.Props.String("label")
		}
		if id := n.Props.String("action"); id != "" {
			return buttonStyle.Render("[ "+label+" ]") + mutedStyle.Render(" ("+id+")")
		}
		return buttonStyle.Render("[ " + label + " ]")
	case ui.TypeKeyValuePairs:
		return p.keyValues(n)
	case ui.TypeTable, ui.TypeCards:
		return p.table(n)
	case ui.TypeProgressBar:
		return p.progress(n)
	case ui.TypeCodeView:
		return mutedStyle.Render(n.Props.String("content"))
	case ui.TypeInput, ui.TypeTextarea, ui.TypeSelect, ui.TypeRadioGroup:
		return fmt.Sprintf("%s: %v", fieldLabel(n), n.Props["value"])
	case ui.TypeCheckbox, ui.TypeToggle:
		box := "[ ]"
		if checked, _ := n.Props.Bool("checked"); checked {
			box = "[x]"
		}
		return box + " " + fieldLabel(n)
	case ui.TypeFormField:
		label := n.Props.String("label")
		body := p.children(n, " ")
		if label == "" {
			return body
		}
		return headerStyle.Render(label) + "\n" + body
	default:
		return p.children(n, "\n")
	}
}

func (p *Printer) children(n *ui.Node, sep string) string {
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		if s := p.value(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func (p *Printer) slot(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := p.value(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return p.value(v)
	}
}

func (p *Printer) value(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case *ui.Node:
		return p.node(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (p *Printer) keyValues(n *ui.Node) string {
	items, _ := n.Props["items"].([]any)
	width := 0
	rows := make([][2]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label := fmt.Sprint(m["label"])
		if len(label) > width {
			width = len(label)
		}
		rows = append(rows, [2]string{label, p.value(m["value"])})
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s  %s", mutedStyle.Render(fmt.Sprintf("%-*s", width, r[0])), r[1]))
	}
	return strings.Join(lines, "\n")
}

func (p *Printer) table(n *ui.Node) string {
	cols, _ := n.Props["columnDefinitions"].([]ui.Column)
	items, _ := n.Props["items"].([]any)
	if len(cols) == 0 {
		cols = inferColumns(items)
	}
	grid := make([][]string, 0, len(items)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	grid = append(grid, header)
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cells := make([]string, len(cols))
		for i, c := range cols {
			if c.Cell != nil {
				cells[i] = p.value(c.Cell(row))
			} else {
				cells[i] = p.value(row[c.ID])
			}
		}
		grid = append(grid, cells)
	}

	widths := make([]int, len(cols))
	for _, row := range grid {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	lines := make([]string, 0, len(grid))
	for r, row := range grid {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		line := strings.Join(cells, "  ")
		if r == 0 {
			line = headerStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (p *Printer) progress(n *ui.Node) string {
	v, _ := n.Props["value"].(float64)
	const width = 20
	filled := int(v / 100 * width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	label := n.Props.String("label")
	if label != "" {
		label += " "
	}
	return fmt.Sprintf("%s%s %3.0f%%", label, bar, v)
}

func inferColumns(items []any) []ui.Column {
	seen := map[string]struct{}{}
	var ids []string
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				ids = append(ids, k)
			}
		}
	}
	sort.Strings(ids)
	cols := make([]ui.Column, len(ids))
	for i, id := range ids {
		cols[i] = ui.Column{ID: id, Header: id}
	}
	return cols
}

func fieldLabel(n *ui.Node) string {
	if label := n.Props.String("label"); label != "" {
		return label
	}
	return n.Props.String(ui.PropFieldID)
}

// PrintMessage formats a chat message with its embedded tree.
func (p *Printer) PrintMessage(msg assistant.Message, tree *ui.Node) string {
	var prefix string
	switch msg.Role {
	case assistant.RoleUser:
		prefix = headerStyle.Render("you")
	case assistant.RoleAgent:
		prefix = buttonStyle.Render("assistant")
	case assistant.RoleError:
		prefix = alertStyles["error"].Render("error")
	default:
		prefix = mutedStyle.Render(string(msg.Role))
	}
	out := prefix + "  " + msg.Content
	if tree != nil {
		out += "\n" + p.Print(tree)
	}
	for _, a := range msg.Actions {
		out += "\n" + buttonStyle.Render("[ "+a.Label+" ]") + mutedStyle.Render(" (action "+a.ID+")")
	}
	if msg.RequiresConfirmation && msg.Confirmation != nil {
		out += "\n" + buttonStyle.Render("[ "+msg.Confirmation.Label+" ]") + mutedStyle.Render(" (confirm "+msg.ID+")")
	}
	return out
}
