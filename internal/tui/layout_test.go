package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"dolma/internal/app"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		w    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten.", 12, "exactly ten."},
		{"a very long goal title", 10, "a very lo…"},
		{"x", 1, "x"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.w); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.w, got, tt.want)
		}
	}
}

func TestClampAroundSelection(t *testing.T) {
	lines := make([]string, 12)
	for i := range lines {
		lines[i] = string(rune('a' + i))
	}

	// Fits: unchanged.
	if got := clampAroundSelection(lines, 20, 0); len(got) != 12 {
		t.Errorf("fit case trimmed to %d lines", len(got))
	}

	// Anchor near the top: window starts at the top.
	got := clampAroundSelection(lines, 6, 0)
	if len(got) != 6 || got[0] != "a" {
		t.Errorf("top window = %v", got)
	}

	// Anchor below the fold: window shifts to keep the block visible.
	got = clampAroundSelection(lines, 6, 9)
	if len(got) != 6 {
		t.Fatalf("window size = %d", len(got))
	}
	if !contains(got, "j") {
		t.Errorf("anchor line not visible: %v", got)
	}
}

func contains(lines []string, s string) bool {
	for _, l := range lines {
		if l == s {
			return true
		}
	}
	return false
}

func TestHatIndexOf(t *testing.T) {
	for i, h := range app.HatLibrary {
		if got := hatIndexOf(h.ID); got != i {
			t.Errorf("hatIndexOf(%q) = %d, want %d", h.ID, got, i)
		}
	}
	if got := hatIndexOf("unknown"); got != 0 {
		t.Errorf("unknown hat index = %d, want 0", got)
	}
}

func TestGoalFormValues(t *testing.T) {
	f := newGoalForm()
	f.inputs[0].SetValue("  Vacation Fund ")
	f.inputs[1].SetValue("Savings")
	f.inputs[3].SetValue("200")

	v := f.values()
	if v.Category != "savings" {
		t.Errorf("category not normalized: %q", v.Category)
	}
	if v.Title != "  Vacation Fund " {
		t.Errorf("title must pass through untrimmed (validation trims): %q", v.Title)
	}
	if v.TargetAmount != "200" {
		t.Errorf("target = %q", v.TargetAmount)
	}
}

func TestGoalFormCycle(t *testing.T) {
	f := newGoalForm()
	n := len(f.inputs)
	for i := 0; i < n; i++ {
		if f.focus != i {
			t.Fatalf("focus = %d, want %d", f.focus, i)
		}
		f.next()
	}
	if f.focus != 0 {
		t.Errorf("focus did not wrap: %d", f.focus)
	}
	f.prev()
	if f.focus != n-1 {
		t.Errorf("prev did not wrap: %d", f.focus)
	}
	if !f.onLastField() {
		t.Error("onLastField false on last field")
	}
}

func TestQuitUnsubscribesFromPreferences(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.LocationEnabled = false
	application, err := app.NewApplication(cfg)
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	defer application.Close()

	m := NewModel(application)

	if err := application.Prefs.Write(app.HatScholar); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case hat := <-m.hatCh:
		if hat != app.HatScholar {
			t.Fatalf("notified hat = %q", hat)
		}
	default:
		t.Fatal("no notification while subscribed")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)

	if err := application.Prefs.Write(app.HatClassic); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case hat := <-m.hatCh:
		t.Errorf("still subscribed after quit, got %q", hat)
	default:
	}
}

func TestMarkdownRendererPlainText(t *testing.T) {
	r := NewMarkdownRenderer(NewNoColorTheme())
	out := r.Render("Save **$50** this week", 60)
	if !strings.Contains(out, "$50") {
		t.Errorf("render lost content: %q", out)
	}
	if strings.Contains(out, "<strong>") || strings.Contains(out, "<p>") {
		t.Errorf("html leaked: %q", out)
	}
}
