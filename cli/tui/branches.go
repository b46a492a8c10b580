package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kodrdriv/kodrdriv/tree"
)

// Run starts the interactive branches view over the report rows.
func Run(rows []tree.BranchRow) error {
	model := NewBranchesModel(rows)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// BranchesModel is a Bubble Tea model rendering the branches report as a
// scrollable table.
type BranchesModel struct {
	table    table.Model
	quitting bool
}

// NewBranchesModel builds the table model from report rows.
func NewBranchesModel(rows []tree.BranchRow) BranchesModel {
	columns := []table.Column{
		{Title: "Package", Width: widest(rows, func(r tree.BranchRow) string { return r.Package }, 7)},
		{Title: "Branch", Width: widest(rows, func(r tree.BranchRow) string { return r.Branch }, 6)},
		{Title: "Version", Width: widest(rows, func(r tree.BranchRow) string { return r.Version }, 7)},
		{Title: "Status", Width: 8},
		{Title: "Linked", Width: 6},
		{Title: "Consumers", Width: 9},
	}

	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, table.Row{
			row.Package,
			row.Branch,
			row.Version,
			row.Status,
			row.Linked,
			fmt.Sprintf("%d", row.Consumers),
		})
	}

	height := len(tableRows)
	if height > 20 {
		height = 20
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(height+1),
	)
	return BranchesModel{table: t}
}

// Init implements tea.Model.
func (m BranchesModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BranchesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m BranchesModel) View() string {
	if m.quitting {
		return ""
	}
	title := TitleStyle.Render("Workspace Branches")
	help := HelpStyle.Render("↑/↓ to scroll, q or Ctrl+C to quit")
	return title + "\n" + BoxStyle.Render(m.table.View()) + "\n" + help
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// widest returns the widest cell produced by get, with a floor of min.
func widest(rows []tree.BranchRow, get func(tree.BranchRow) string, min int) int {
	w := min
	for _, row := range rows {
		if n := len(get(row)); n > w {
			w = n
		}
	}
	return w
}
