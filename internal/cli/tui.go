package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mlorenz/drawbridge/pkg/confluence"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// AttachmentPickerModel is the bubbletea model for choosing between
// several .drawio attachments on the same page.
type AttachmentPickerModel struct {
	PageTitle   string
	Attachments []*confluence.Attachment
	Cursor      int
	Selected    *confluence.Attachment
}

// NewAttachmentPickerModel creates a picker over the given candidates.
func NewAttachmentPickerModel(pageTitle string, atts []*confluence.Attachment) AttachmentPickerModel {
	return AttachmentPickerModel{PageTitle: pageTitle, Attachments: atts}
}

func (m AttachmentPickerModel) Init() tea.Cmd {
	return nil
}

func (m AttachmentPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Attachments)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = m.Attachments[m.Cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m AttachmentPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Diagram"))
	b.WriteString(" ")
	b.WriteString(StyleDim.Render("on " + m.PageTitle))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	rows := [][]string{}
	for i, att := range m.Attachments {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, att.Filename, fmt.Sprintf("v%d", att.Version), att.MediaType})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Attachment", "Version", "Type").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Attachments))))

	return b.String()
}

// pickAttachment runs the interactive picker and returns the choice,
// or nil when the user backed out.
func pickAttachment(pageTitle string, atts []*confluence.Attachment) (*confluence.Attachment, error) {
	p := tea.NewProgram(NewAttachmentPickerModel(pageTitle, atts))
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	fm, ok := finalModel.(AttachmentPickerModel)
	if !ok {
		return nil, nil
	}
	return fm.Selected, nil
}
