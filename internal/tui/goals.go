package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"dolma/internal/app"
)

func (m Model) renderGoalsPane(width, height int) string {
	style := m.theme.Pane
	title := m.theme.PaneTitle
	if m.focus == focusGoals {
		style = m.theme.PaneFocused
		title = m.theme.PaneTitleF
	}
	inner := maxInt(width-4, 16)

	goals := m.app.Goals.Goals()
	var blocks []string

	if listErr := m.app.Goals.ListError(); listErr != "" {
		blocks = append(blocks, m.theme.ErrorNote.Render(listErr))
	}
	if len(goals) == 0 {
		blocks = append(blocks, m.theme.GoalMeta.Render("No goals yet. Press n to add one."))
	}

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(maxInt(inner-2, 10)))

	for i, g := range goals {
		selected := m.focus == focusGoals && i == m.selected
		blocks = append(blocks, m.renderGoal(g, selected, inner, bar))
	}

	lines := strings.Split(strings.Join(blocks, "\n"), "\n")
	bodyHeight := maxInt(height-1, 3)
	lines = clampAroundSelection(lines, bodyHeight, m.selectionLine(goals))

	content := title.Render("Goals") + "\n" + strings.Join(lines, "\n")
	return style.Width(width).Height(height).Render(content)
}

// Each goal renders as a fixed three-line block, so selection scrolling can
// work on line offsets.
const goalBlockLines = 3

func (m Model) renderGoal(g app.Goal, selected bool, width int, bar progress.Model) string {
	cursor := "  "
	titleStyle := m.theme.GoalTitle
	if selected {
		cursor = "› "
		titleStyle = m.theme.GoalTitleSel
	}
	if g.Status == app.GoalStatusCompleted {
		titleStyle = m.theme.GoalDone
	}

	title := g.Title
	switch g.Status {
	case app.GoalStatusCompleted:
		title = "✓ " + title
	case app.GoalStatusArchived:
		title = title + " (archived)"
	}
	title = truncate(title, width-2)

	meta := app.FormatGoalProgress(g)
	if selected && m.overlay == overlayDraftEdit {
		meta = "progress %: " + m.draft.View()
	}

	lines := []string{
		cursor + titleStyle.Render(title),
		"  " + bar.ViewAs(g.Progress/100),
		"  " + m.theme.GoalMeta.Render(truncate(meta, width-2)),
	}
	return strings.Join(lines, "\n")
}

// selectionLine is the first line of the selected goal's block within the
// rendered pane body.
func (m Model) selectionLine(goals []app.Goal) int {
	offset := 0
	if m.app.Goals.ListError() != "" {
		offset++
	}
	if len(goals) == 0 {
		return 0
	}
	return offset + m.selected*goalBlockLines
}

func clampAroundSelection(lines []string, height, anchor int) []string {
	if len(lines) <= height {
		return lines
	}
	start := 0
	if anchor+goalBlockLines > height {
		start = anchor + goalBlockLines - height
	}
	if start+height > len(lines) {
		start = len(lines) - height
	}
	return lines[start : start+height]
}

func truncate(s string, w int) string {
	if w <= 1 || len([]rune(s)) <= w {
		return s
	}
	r := []rune(s)
	return string(r[:w-1]) + "…"
}

// Create-goal form

var goalFormLabels = []string{
	"Title",
	"Category (" + strings.Join(app.GoalCategories, "/") + ")",
	"Custom unit (for category: other)",
	"Target amount",
	"Starting amount (optional)",
	"Target date (YYYY-MM-DD, optional)",
	"Target period (optional)",
	"Description (optional)",
}

type goalForm struct {
	inputs  []textinput.Model
	focus   int
	errText string
}

func newGoalForm() *goalForm {
	f := &goalForm{inputs: make([]textinput.Model, len(goalFormLabels))}
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 200
		in.Width = 40
		f.inputs[i] = in
	}
	f.inputs[1].SetValue(app.GoalCategories[0])
	return f
}

func (f *goalForm) focusCurrent() tea.Cmd {
	for i := range f.inputs {
		if i == f.focus {
			continue
		}
		f.inputs[i].Blur()
	}
	return f.inputs[f.focus].Focus()
}

func (f *goalForm) next() tea.Cmd {
	f.focus = (f.focus + 1) % len(f.inputs)
	return f.focusCurrent()
}

func (f *goalForm) prev() tea.Cmd {
	f.focus = (f.focus + len(f.inputs) - 1) % len(f.inputs)
	return f.focusCurrent()
}

func (f *goalForm) onLastField() bool {
	return f.focus == len(f.inputs)-1
}

func (f *goalForm) updateCurrent(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *goalForm) values() app.CreateGoalForm {
	return app.CreateGoalForm{
		Title:          f.inputs[0].Value(),
		Category:       strings.ToLower(strings.TrimSpace(f.inputs[1].Value())),
		CustomUnit:     f.inputs[2].Value(),
		TargetAmount:   f.inputs[3].Value(),
		StartingAmount: f.inputs[4].Value(),
		TargetDate:     f.inputs[5].Value(),
		TargetPeriod:   f.inputs[6].Value(),
		Description:    f.inputs[7].Value(),
	}
}

func (m Model) renderGoalFormPane(height int) string {
	f := m.form
	if f == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.theme.PaneTitleF.Render("New Goal"))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := goalFormLabels[i]
		style := m.theme.GoalMeta
		if i == f.focus {
			style = m.theme.GoalTitleSel
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n  ")
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.errText != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.ErrorNote.Render(f.errText))
	}
	return m.theme.PaneFocused.Width(maxInt(m.width-2, 40)).Height(height).Render(b.String())
}

func (m Model) renderHatPicker(height int) string {
	var b strings.Builder
	b.WriteString(m.theme.PaneTitleF.Render("Choose a hat for DOLMA"))
	b.WriteString("\n\n")
	for i, h := range app.HatLibrary {
		cursor := "  "
		style := m.theme.GoalTitle
		if i == m.hatIndex {
			cursor = "› "
			style = m.theme.GoalTitleSel
		}
		marker := " "
		if h.ID == m.hat {
			marker = "•"
		}
		b.WriteString(cursor + style.Render(h.Name) + " " + m.theme.GoalMeta.Render(marker))
		b.WriteString("\n")
	}
	return m.theme.PaneFocused.Width(maxInt(m.width-2, 40)).Height(height).Render(b.String())
}
