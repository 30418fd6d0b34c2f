package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/wiretree/pkg/layout"
)

// Tree styles
var (
	treeSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	treeNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	treeTextStyle     = lipgloss.NewStyle().Foreground(colorYellow)
	treeDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// TreeModel - Interactive layout tree browser
// =============================================================================

// treeRow is one visible line of the tree.
type treeRow struct {
	node  *layout.Node
	depth int
}

// TreeModel is the bubbletea model for browsing a layout tree.
type TreeModel struct {
	Title  string
	Root   *layout.Node
	Cursor int
	Offset int
	Height int

	collapsed map[string]bool
	rows      []treeRow
}

// NewTreeModel creates a tree model with every node expanded.
func NewTreeModel(title string, root *layout.Node) TreeModel {
	m := TreeModel{
		Title:     title,
		Root:      root,
		Height:    15,
		collapsed: make(map[string]bool),
	}
	m.rows = m.visibleRows()
	return m
}

// visibleRows lists nodes in pre-order, skipping children of collapsed nodes.
func (m TreeModel) visibleRows() []treeRow {
	var rows []treeRow
	if m.Root == nil {
		return rows
	}
	m.Root.Walk(func(n *layout.Node, depth int) bool {
		rows = append(rows, treeRow{node: n, depth: depth})
		return !m.collapsed[n.ID]
	})
	return rows
}

// Selected returns the node under the cursor.
func (m TreeModel) Selected() *layout.Node {
	if m.Cursor < 0 || m.Cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.Cursor].node
}

func (m TreeModel) Init() tea.Cmd {
	return nil
}

func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.rows)-1 {
				m.Cursor++
			}
		case "left", "h":
			m = m.collapse()
		case "right", "l":
			if n := m.Selected(); n != nil && m.collapsed[n.ID] {
				delete(m.collapsed, n.ID)
				m.rows = m.visibleRows()
			}
		case "enter", " ":
			if n := m.Selected(); n != nil && len(n.Children) > 0 {
				m.collapsed[n.ID] = !m.collapsed[n.ID]
				m.rows = m.visibleRows()
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = len(m.rows) - 1
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-14, 5)
	}
	m.scroll()
	return m, nil
}

// collapse folds the selected node, or moves to its parent when it is
// already folded or has no children.
func (m TreeModel) collapse() TreeModel {
	n := m.Selected()
	if n == nil {
		return m
	}
	if len(n.Children) > 0 && !m.collapsed[n.ID] {
		m.collapsed[n.ID] = true
		m.rows = m.visibleRows()
		return m
	}
	depth := m.rows[m.Cursor].depth
	for i := m.Cursor - 1; i >= 0; i-- {
		if m.rows[i].depth < depth {
			m.Cursor = i
			break
		}
	}
	return m
}

func (m *TreeModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m TreeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(treeDimStyle.Render("↑/↓ navigate  ←/→ fold  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.rows))
	for i := m.Offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}
	b.WriteString(treeDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.rows))))
	b.WriteString("\n\n")

	if n := m.Selected(); n != nil {
		b.WriteString(nodeTable(n))
		b.WriteString("\n")
	}
	return b.String()
}

func (m TreeModel) renderRow(i int) string {
	row := m.rows[i]
	n := row.node

	marker := "  "
	switch {
	case len(n.Children) == 0:
	case m.collapsed[n.ID]:
		marker = "▸ "
	default:
		marker = "▾ "
	}

	label := n.ID
	if n.IsText() {
		label += "  " + quoteText(n.TextValue())
	} else if m.collapsed[n.ID] {
		label += fmt.Sprintf("  (%d)", n.Count()-1)
	}
	line := strings.Repeat("  ", row.depth) + marker + label

	switch {
	case i == m.Cursor:
		return treeSelectedStyle.Render("› " + line)
	case n.IsText():
		return "  " + treeTextStyle.Render(line)
	default:
		return "  " + treeNormalStyle.Render(line)
	}
}

// nodeTable renders the relative geometry of n.
func nodeTable(n *layout.Node) string {
	box := n.Layout
	rows := [][]string{
		{"type", n.Type},
		{"top / left", fmt.Sprintf("%g / %g", box.Top, box.Left)},
		{"right / bottom", fmt.Sprintf("%g / %g", box.Right, box.Bottom)},
		{"width / height", fmt.Sprintf("%g / %g", box.Width, box.Height)},
		{"children", fmt.Sprintf("%d", len(n.Children))},
	}
	if n.IsText() {
		rows = append(rows, []string{"text", quoteText(n.TextValue())})
		if n.Font != nil {
			rows = append(rows, []string{"font", fmt.Sprintf("%g", n.Font.SizeRelOuter)})
		}
	}

	keyStyle := lipgloss.NewStyle().Foreground(colorGray).PaddingRight(1)
	valStyle := lipgloss.NewStyle().Foreground(colorWhite).PaddingLeft(1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(n.ID, "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return StyleTitle
			}
			if col == 0 {
				return keyStyle
			}
			return valStyle
		}).
		Render()
}

func quoteText(s string) string {
	const maxLen = 40
	if r := []rune(s); len(r) > maxLen {
		s = string(r[:maxLen-1]) + "…"
	}
	return fmt.Sprintf("%q", s)
}
