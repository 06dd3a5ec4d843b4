package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/moxie/pkg/maven"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// SolutionModel - Interactive solution browser
// =============================================================================

// SolutionModel is the bubbletea model for browsing solved scopes. Left and
// right switch the scope, up and down move through its dependencies.
type SolutionModel struct {
	Scopes   []maven.Scope
	Solution map[maven.Scope][]*maven.Dependency
	Scope    int
	Cursor   int
	Height   int
	Offset   int
}

// NewSolutionModel creates a browser over solution, showing scopes in order.
func NewSolutionModel(scopes []maven.Scope, solution map[maven.Scope][]*maven.Dependency) SolutionModel {
	return SolutionModel{
		Scopes:   scopes,
		Solution: solution,
		Height:   15,
	}
}

func (m SolutionModel) deps() []*maven.Dependency {
	if len(m.Scopes) == 0 {
		return nil
	}
	return m.Solution[m.Scopes[m.Scope]]
}

// Current returns the dependency under the cursor, or nil.
func (m SolutionModel) Current() *maven.Dependency {
	deps := m.deps()
	if m.Cursor < 0 || m.Cursor >= len(deps) {
		return nil
	}
	return deps[m.Cursor]
}

func (m SolutionModel) Init() tea.Cmd {
	return nil
}

func (m SolutionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.deps())-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "left", "h", "shift+tab":
			if len(m.Scopes) > 0 {
				m.Scope = (m.Scope + len(m.Scopes) - 1) % len(m.Scopes)
				m.Cursor, m.Offset = 0, 0
			}
		case "right", "l", "tab":
			if len(m.Scopes) > 0 {
				m.Scope = (m.Scope + 1) % len(m.Scopes)
				m.Cursor, m.Offset = 0, 0
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 14
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m SolutionModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Solution"))
	b.WriteString("  ")
	for i, s := range m.Scopes {
		label := fmt.Sprintf("%s (%d)", s, len(m.Solution[s]))
		if i == m.Scope {
			b.WriteString(listSelectedStyle.Render("[" + label + "]"))
		} else {
			b.WriteString(listDimStyle.Render(" " + label + " "))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←/→ scope  ↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	deps := m.deps()
	if len(deps) == 0 {
		b.WriteString(listDimStyle.Render("  no dependencies"))
		b.WriteString("\n")
		return b.String()
	}

	end := m.Offset + m.Height
	if end > len(deps) {
		end = len(deps)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		d := deps[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		version := d.Version
		if r := d.ResolvedVersion(); r != d.Version {
			version += " → " + r
		}
		rows = append(rows, []string{cursor, d.GroupID, d.ArtifactID, version, strconv.Itoa(d.Ring), d.Extension()})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Group", "Artifact", "Version", "Ring", "Type").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(deps) {
				return lipgloss.NewStyle()
			}
			d := deps[idx]
			base := lipgloss.NewStyle()
			if col == 4 || col == 5 {
				base = base.Foreground(colorDim)
			}
			switch {
			case idx == m.Cursor:
				return base.Foreground(colorGreen).Bold(true)
			case d.Ring == 0:
				return base.Foreground(colorWhite)
			case d.Optional:
				return base.Foreground(colorYellow)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(deps))))
	b.WriteString("\n\n")
	b.WriteString(dependencyDetails(m.Current()))

	return b.String()
}

// dependencyDetails renders the detail pane for d.
func dependencyDetails(d *maven.Dependency) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	line := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  %-11s", key)))
		b.WriteString(listNormalStyle.Render(value))
		b.WriteString("\n")
	}
	line("coordinate", d.Coordinates())
	line("purl", d.PURL())
	line("origin", d.Origin)
	line("path", d.Path)
	if len(d.Exclusions) > 0 {
		line("excludes", strings.Join(d.Exclusions, ", "))
	}
	if d.Optional {
		line("optional", "yes")
	}
	return b.String()
}
