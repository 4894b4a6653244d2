package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dolma/internal/app"
)

type focusArea int

const (
	focusChat focusArea = iota
	focusGoals
)

// Overlay modes. At most one is active and it captures all key input until
// dismissed.
type overlay int

const (
	overlayNone overlay = iota
	overlayGoalForm
	overlayHatPicker
	overlayDraftEdit
	overlayConfirmDelete
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type (
	chatReplyMsg       struct{}
	goalsRefreshedMsg  struct{ err error }
	goalMutatedMsg     struct{ err error }
	goalCreatedMsg     struct{ err error }
	hatChangedMsg      struct{ hat string }
	locationChangedMsg struct{ snap app.LocationSnapshot }
	locationStartedMsg struct{}
	spinTickMsg        struct{}
)

// Model is the root bubbletea model: a chat transcript on the left, the goal
// list on the right, and modal overlays for the create form, hat picker, and
// delete confirmation.
type Model struct {
	app      *app.Application
	theme    Theme
	markdown *MarkdownRenderer

	input    textarea.Model
	draft    textinput.Model
	form     *goalForm
	focus    focusArea
	overlay  overlay
	selected int
	hat      string
	hatIndex int
	location app.LocationSnapshot

	chatBusy bool
	goalBusy bool
	spin     int
	status   string
	deleteID string

	width  int
	height int

	hatCh       chan string
	locCh       chan app.LocationSnapshot
	unsubscribe func()
}

func NewModel(application *app.Application) Model {
	theme := NewTheme()

	input := textarea.New()
	input.Placeholder = "Ask DOLMA anything..."
	input.Prompt = ""
	input.ShowLineNumbers = false
	input.CharLimit = 4000
	input.SetHeight(1)
	input.Focus()

	m := Model{
		app:      application,
		theme:    theme,
		markdown: NewMarkdownRenderer(theme),
		input:    input,
		hat:      application.Prefs.Read(),
		location: app.LocationSnapshot{Status: app.LocationUnknown},
		hatCh:    make(chan string, 8),
		locCh:    make(chan app.LocationSnapshot, 8),
	}
	m.hatIndex = hatIndexOf(m.hat)

	m.unsubscribe = application.Prefs.Subscribe(func(hat string) {
		select {
		case m.hatCh <- hat:
		default:
		}
	})
	if application.Location != nil {
		m.location = application.Location.Snapshot()
		application.Location.OnChange(func(snap app.LocationSnapshot) {
			select {
			case m.locCh <- snap:
			default:
			}
		})
	}
	return m
}

func hatIndexOf(id string) int {
	for i, h := range app.HatLibrary {
		if h.ID == id {
			return i
		}
	}
	return 0
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.refreshGoalsCmd(), m.waitHatCmd()}
	if m.app.Location != nil {
		cmds = append(cmds, m.acquireLocationCmd(), m.waitLocationCmd())
	}
	return tea.Batch(cmds...)
}

// Commands

func (m Model) refreshGoalsCmd() tea.Cmd {
	goals := m.app.Goals
	return func() tea.Msg {
		return goalsRefreshedMsg{err: goals.Refresh(context.Background())}
	}
}

func (m Model) sendChatCmd(text string) tea.Cmd {
	session := m.app.Session
	return func() tea.Msg {
		session.Exchange(context.Background(), text)
		return chatReplyMsg{}
	}
}

func (m Model) acquireLocationCmd() tea.Cmd {
	loc := m.app.Location
	return func() tea.Msg {
		loc.Acquire(context.Background())
		return locationStartedMsg{}
	}
}

func (m Model) waitHatCmd() tea.Cmd {
	ch := m.hatCh
	return func() tea.Msg {
		return hatChangedMsg{hat: <-ch}
	}
}

func (m Model) waitLocationCmd() tea.Cmd {
	ch := m.locCh
	return func() tea.Msg {
		return locationChangedMsg{snap: <-ch}
	}
}

func (m Model) applyDraftCmd(id string) tea.Cmd {
	goals := m.app.Goals
	return func() tea.Msg {
		return goalMutatedMsg{err: goals.ApplyDraft(context.Background(), id)}
	}
}

func (m Model) setStatusCmd(id, status string) tea.Cmd {
	goals := m.app.Goals
	return func() tea.Msg {
		return goalMutatedMsg{err: goals.Update(context.Background(), id, app.GoalPatch{Status: &status})}
	}
}

func (m Model) deleteGoalCmd(id string) tea.Cmd {
	goals := m.app.Goals
	return func() tea.Msg {
		return goalMutatedMsg{err: goals.Delete(context.Background(), id)}
	}
}

func (m Model) createGoalCmd(form app.CreateGoalForm) tea.Cmd {
	goals := m.app.Goals
	return func() tea.Msg {
		_, err := goals.Create(context.Background(), form)
		return goalCreatedMsg{err: err}
	}
}

func (m Model) spinTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return spinTickMsg{}
	})
}

// Update

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(maxInt(msg.Width-6, 20))
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case chatReplyMsg:
		m.chatBusy = false
		return m, nil

	case goalsRefreshedMsg:
		m.goalBusy = false
		m.clampSelection()
		return m, nil

	case goalMutatedMsg:
		m.goalBusy = false
		if msg.err != nil {
			m.status = app.UserFacingError(msg.err)
		} else {
			m.status = ""
		}
		m.clampSelection()
		return m, nil

	case goalCreatedMsg:
		m.goalBusy = false
		if msg.err != nil {
			if m.form != nil {
				m.form.errText = app.UserFacingError(msg.err)
			}
			return m, nil
		}
		m.form = nil
		m.overlay = overlayNone
		m.status = ""
		return m, nil

	case hatChangedMsg:
		m.hat = msg.hat
		m.hatIndex = hatIndexOf(msg.hat)
		return m, m.waitHatCmd()

	case locationChangedMsg:
		m.location = msg.snap
		return m, m.waitLocationCmd()

	case locationStartedMsg:
		return m, nil

	case spinTickMsg:
		if m.chatBusy || m.goalBusy {
			m.spin = (m.spin + 1) % len(spinnerFrames)
			return m, m.spinTick()
		}
		return m, nil
	}

	if m.focus == focusChat && m.overlay == overlayNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.unsubscribe != nil {
			m.unsubscribe()
			m.unsubscribe = nil
		}
		return m, tea.Quit
	}

	switch m.overlay {
	case overlayGoalForm:
		return m.updateGoalForm(msg)
	case overlayHatPicker:
		return m.updateHatPicker(msg)
	case overlayDraftEdit:
		return m.updateDraftEdit(msg)
	case overlayConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	switch msg.String() {
	case "tab":
		if m.focus == focusChat {
			m.focus = focusGoals
			m.input.Blur()
		} else {
			m.focus = focusChat
			return m, m.input.Focus()
		}
		return m, nil
	}

	if m.focus == focusGoals {
		return m.updateGoalKeys(msg)
	}

	switch msg.String() {
	case "enter":
		if m.chatBusy {
			return m, nil
		}
		text := m.input.Value()
		if _, ok := m.app.Session.Send(text); !ok {
			return m, nil
		}
		m.input.Reset()
		m.chatBusy = true
		return m, tea.Batch(m.sendChatCmd(text), m.spinTick())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateGoalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	goals := m.app.Goals.Goals()

	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(goals)-1 {
			m.selected++
		}
		return m, nil
	case "r":
		m.goalBusy = true
		return m, tea.Batch(m.refreshGoalsCmd(), m.spinTick())
	case "n":
		m.form = newGoalForm()
		m.overlay = overlayGoalForm
		return m, m.form.focusCurrent()
	case "h":
		m.overlay = overlayHatPicker
		m.hatIndex = hatIndexOf(m.hat)
		return m, nil
	}

	if m.selected >= len(goals) {
		return m, nil
	}
	goal := goals[m.selected]

	switch msg.String() {
	case "enter", "p":
		m.draft = textinput.New()
		m.draft.Prompt = ""
		m.draft.CharLimit = 8
		m.draft.Placeholder = "0-100"
		m.draft.SetValue(m.app.Goals.Draft(goal.ID))
		m.overlay = overlayDraftEdit
		return m, m.draft.Focus()
	case "c":
		next := app.GoalStatusCompleted
		if goal.Status == app.GoalStatusCompleted {
			next = app.GoalStatusActive
		}
		m.goalBusy = true
		return m, tea.Batch(m.setStatusCmd(goal.ID, next), m.spinTick())
	case "a":
		next := app.GoalStatusArchived
		if goal.Status == app.GoalStatusArchived {
			next = app.GoalStatusActive
		}
		m.goalBusy = true
		return m, tea.Batch(m.setStatusCmd(goal.ID, next), m.spinTick())
	case "d":
		m.deleteID = goal.ID
		m.overlay = overlayConfirmDelete
		return m, nil
	}
	return m, nil
}

func (m Model) updateDraftEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	goals := m.app.Goals.Goals()
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "enter":
		if m.selected >= len(goals) {
			m.overlay = overlayNone
			return m, nil
		}
		id := goals[m.selected].ID
		m.app.Goals.SetDraft(id, m.draft.Value())
		m.overlay = overlayNone
		m.goalBusy = true
		return m, tea.Batch(m.applyDraftCmd(id), m.spinTick())
	}
	var cmd tea.Cmd
	m.draft, cmd = m.draft.Update(msg)
	if m.selected < len(goals) {
		m.app.Goals.SetDraft(goals[m.selected].ID, m.draft.Value())
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.deleteID
		m.deleteID = ""
		m.overlay = overlayNone
		m.goalBusy = true
		return m, tea.Batch(m.deleteGoalCmd(id), m.spinTick())
	case "n", "N", "esc":
		m.deleteID = ""
		m.overlay = overlayNone
		return m, nil
	}
	return m, nil
}

func (m Model) updateHatPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "up", "k":
		if m.hatIndex > 0 {
			m.hatIndex--
		}
		return m, nil
	case "down", "j":
		if m.hatIndex < len(app.HatLibrary)-1 {
			m.hatIndex++
		}
		return m, nil
	case "enter":
		id := app.HatLibrary[m.hatIndex].ID
		if err := m.app.Prefs.Write(id); err != nil {
			m.status = app.UserFacingError(err)
		} else {
			m.hat = id
			m.status = ""
		}
		m.overlay = overlayNone
		return m, nil
	}
	return m, nil
}

func (m Model) updateGoalForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.overlay = overlayNone
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.form = nil
		m.overlay = overlayNone
		return m, nil
	case "tab", "down":
		return m, m.form.next()
	case "shift+tab", "up":
		return m, m.form.prev()
	case "enter":
		if !m.form.onLastField() {
			return m, m.form.next()
		}
		fallthrough
	case "ctrl+s":
		form := m.form.values()
		m.goalBusy = true
		return m, tea.Batch(m.createGoalCmd(form), m.spinTick())
	}
	cmd := m.form.updateCurrent(msg)
	return m, cmd
}

func (m *Model) clampSelection() {
	n := len(m.app.Goals.Goals())
	if n == 0 {
		m.selected = 0
		return
	}
	if m.selected >= n {
		m.selected = n - 1
	}
}

// View

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	top := m.renderTopBar()
	goalsWidth := 36
	if m.width < 80 {
		goalsWidth = m.width / 3
	}
	chatWidth := m.width - goalsWidth - 2
	paneHeight := maxInt(m.height-8, 6)

	var body string
	switch m.overlay {
	case overlayGoalForm:
		body = m.renderGoalFormPane(paneHeight)
	case overlayHatPicker:
		body = m.renderHatPicker(paneHeight)
	default:
		chat := m.renderChatPane(chatWidth, paneHeight)
		goals := m.renderGoalsPane(goalsWidth, paneHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top, chat, goals)
	}

	inputStyle := m.theme.InputBox
	if m.focus == focusChat && m.overlay == overlayNone {
		inputStyle = m.theme.InputBoxF
	}
	inputBox := inputStyle.Width(maxInt(m.width-2, 24)).Render(m.input.View())

	return strings.Join([]string{top, body, inputBox, m.renderStatusLine(), m.renderFooter()}, "\n")
}

func (m Model) renderTopBar() string {
	title := m.theme.TopBarTitle.Render("DOLMA")
	hat := m.theme.TopBarBadge.Render("🎩 " + app.HatName(m.hat))
	parts := []string{title, hat}
	if m.chatBusy || m.goalBusy {
		parts = append(parts, m.theme.Spinner.Render(spinnerFrames[m.spin]))
	}
	return m.theme.TopBar.Render(strings.Join(parts, "  "))
}

func (m Model) renderStatusLine() string {
	if m.status != "" {
		return m.theme.ErrorNote.Render(m.status)
	}
	switch {
	case m.location.ErrorText != "":
		return m.theme.ErrorNote.Render(m.location.ErrorText)
	case m.location.InfoText != "":
		return m.theme.InfoNote.Render(m.location.InfoText)
	case m.location.Status == app.LocationChecking:
		return m.theme.Footer.Render("Checking location...")
	}
	return ""
}

func (m Model) renderFooter() string {
	var help string
	switch m.overlay {
	case overlayGoalForm:
		help = "tab next field · enter/ctrl+s save · esc cancel"
	case overlayHatPicker:
		help = "↑/↓ choose · enter select · esc cancel"
	case overlayDraftEdit:
		help = "enter save progress · esc cancel"
	case overlayConfirmDelete:
		help = "delete goal? y/n"
	default:
		if m.focus == focusGoals {
			help = "↑/↓ select · p progress · c complete · a archive · d delete · n new · h hat · r refresh · tab chat"
		} else {
			help = "enter send · tab goals · ctrl+c quit"
		}
	}
	return m.theme.Footer.Render(help)
}

// Run starts the full-screen program and blocks until exit.
func Run(application *app.Application) error {
	p := tea.NewProgram(NewModel(application), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
