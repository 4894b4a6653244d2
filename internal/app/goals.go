package app

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Goal categories offered by the create form. Each maps to a fixed unit;
// "other" is the escape hatch and requires a custom unit string.
const CategoryOther = "other"

var categoryUnits = map[string]string{
	"savings":  "$",
	"fitness":  "km",
	"reading":  "pages",
	"learning": "hours",
	"habit":    "days",
}

// GoalCategories is the form order.
var GoalCategories = []string{"savings", "fitness", "reading", "learning", "habit", CategoryOther}

// CreateGoalForm is the raw user input for a new goal, before validation.
// Numeric fields arrive as text straight from the form.
type CreateGoalForm struct {
	Title          string
	Description    string
	Category       string
	CustomUnit     string
	TargetAmount   string
	StartingAmount string
	TargetDate     string
	TargetPeriod   string
}

// GoalReconciler keeps the local goal collection consistent with the server.
// The server is the source of truth: every successful mutation response
// overwrites the local record wholesale, and a full list (from Refresh or
// embedded in a conversation reply) replaces the collection with no merge.
//
// It also owns the per-goal progress drafts: free-text percentage buffers
// decoupled from the committed Goal.Progress.
type GoalReconciler struct {
	mu      sync.Mutex
	client  *BackendClient
	logger  *Logger
	goals   []Goal
	drafts  map[string]string
	synced  map[string]string
	pending map[string]bool
	listErr string
	onSysMsg func(string)
}

func NewGoalReconciler(client *BackendClient, logger *Logger) *GoalReconciler {
	if logger == nil {
		logger = NewLogger(io.Discard)
	}
	return &GoalReconciler{
		client:  client,
		logger:  logger,
		drafts:  map[string]string{},
		synced:  map[string]string{},
		pending: map[string]bool{},
	}
}

// OnSystemMessage registers the sink for one-shot system messages the backend
// attaches to goal mutations; they end up in the conversation transcript.
func (r *GoalReconciler) OnSystemMessage(fn func(string)) {
	r.mu.Lock()
	r.onSysMsg = fn
	r.mu.Unlock()
}

// Goals returns a copy of the local collection.
func (r *GoalReconciler) Goals() []Goal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Goal, len(r.goals))
	copy(out, r.goals)
	return out
}

// ListError is the last fetch failure, empty after a successful Refresh.
func (r *GoalReconciler) ListError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listErr
}

// Draft returns the in-progress percentage text for a goal.
func (r *GoalReconciler) Draft(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drafts[id]
}

// SetDraft records the user's edit buffer without touching committed state.
func (r *GoalReconciler) SetDraft(id, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[id]; ok {
		r.drafts[id] = text
	}
}

// Refresh fetches the authoritative list. Failure keeps the prior collection
// intact and records the error text.
func (r *GoalReconciler) Refresh(ctx context.Context) error {
	goals, err := r.client.ListGoals(ctx)
	if err != nil {
		r.mu.Lock()
		r.listErr = UserFacingError(err)
		r.mu.Unlock()
		return err
	}
	r.mu.Lock()
	r.listErr = ""
	r.replaceAllLocked(goals)
	r.mu.Unlock()
	return nil
}

// ReplaceFromConversation applies a goal list embedded in an assistant reply.
// Last write wins over the whole collection, including any goal with a
// mutation still in flight.
func (r *GoalReconciler) ReplaceFromConversation(goals []Goal) {
	r.mu.Lock()
	r.replaceAllLocked(goals)
	r.mu.Unlock()
}

// Create validates the form client-side, then posts it. The server-returned
// record is appended verbatim; on failure nothing local changes.
func (r *GoalReconciler) Create(ctx context.Context, form CreateGoalForm) (Goal, error) {
	title := strings.TrimSpace(form.Title)
	if title == "" {
		return Goal{}, validationErr("title", "Goal title is required.")
	}
	target, err := strconv.ParseFloat(strings.TrimSpace(form.TargetAmount), 64)
	if err != nil || target <= 0 {
		return Goal{}, validationErr("target", "Target amount must be a positive number.")
	}
	unit, ok := categoryUnits[form.Category]
	if !ok {
		if form.Category != CategoryOther {
			return Goal{}, validationErr("category", "Unknown goal category.")
		}
		unit = strings.TrimSpace(form.CustomUnit)
		if unit == "" {
			return Goal{}, validationErr("unit", "A unit is required for custom goals.")
		}
	}

	req := CreateGoalRequest{
		Title:        title,
		Description:  strings.TrimSpace(form.Description),
		TargetDate:   strings.TrimSpace(form.TargetDate),
		TargetValue:  target,
		TargetUnit:   unit,
		TargetPeriod: strings.TrimSpace(form.TargetPeriod),
	}
	if raw := strings.TrimSpace(form.StartingAmount); raw != "" {
		start, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Goal{}, validationErr("starting", "Starting progress must be numeric.")
		}
		if start < 0 {
			start = 0
		}
		req.ProgressValue = &start
	}

	goal, err := r.client.CreateGoal(ctx, req)
	if err != nil {
		return Goal{}, err
	}

	r.mu.Lock()
	r.goals = append(r.goals, goal)
	committed := progressString(goal.Progress)
	r.drafts[goal.ID] = committed
	r.synced[goal.ID] = committed
	r.mu.Unlock()
	return goal, nil
}

// Update issues a partial update and swaps in the full server record on
// success. Never merges fields client-side: derived server fields (status
// auto-completion, recomputed progress_value) would drift.
func (r *GoalReconciler) Update(ctx context.Context, id string, patch GoalPatch) error {
	if err := r.begin(id); err != nil {
		return err
	}
	defer r.end(id)

	goal, sysMsg, err := r.client.UpdateGoal(ctx, id, patch)
	if err != nil {
		return err
	}

	r.mu.Lock()
	found := false
	for i := range r.goals {
		if r.goals[i].ID == id {
			r.goals[i] = goal
			found = true
			break
		}
	}
	// A conversation-embedded replace may have removed the goal while the
	// request was in flight; writing its draft back would orphan the entry.
	if found {
		committed := progressString(goal.Progress)
		r.drafts[id] = committed
		r.synced[id] = committed
	}
	fn := r.onSysMsg
	r.mu.Unlock()

	if sysMsg != "" && fn != nil {
		fn(sysMsg)
	}
	return nil
}

// Delete removes the goal server-side, then drops the local record and its
// draft together. Callers gate this behind an explicit user confirmation.
func (r *GoalReconciler) Delete(ctx context.Context, id string) error {
	if err := r.begin(id); err != nil {
		return err
	}
	defer r.end(id)

	sysMsg, err := r.client.DeleteGoal(ctx, id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	kept := r.goals[:0]
	for _, g := range r.goals {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	r.goals = kept
	delete(r.drafts, id)
	delete(r.synced, id)
	fn := r.onSysMsg
	r.mu.Unlock()

	if sysMsg != "" && fn != nil {
		fn(sysMsg)
	}
	return nil
}

// ApplyDraft parses the goal's draft as a percentage and commits it.
// Non-numeric input is rejected before any network call; numeric input is
// clamped to [0,100].
func (r *GoalReconciler) ApplyDraft(ctx context.Context, id string) error {
	r.mu.Lock()
	raw := strings.TrimSpace(r.drafts[id])
	r.mu.Unlock()

	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return validationErr("progress", "Progress must be a number between 0 and 100.")
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return r.Update(ctx, id, GoalPatch{Progress: &pct})
}

// begin takes the per-goal mutation token. A second mutation while one is
// pending is rejected instead of racing the first response.
func (r *GoalReconciler) begin(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[id] {
		return ErrMutationInFlight
	}
	r.pending[id] = true
	return nil
}

func (r *GoalReconciler) end(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// replaceAllLocked swaps in a full server list and reconciles the draft map:
// every present goal gets exactly one draft entry, drafts for vanished goals
// are purged, and a user-diverged draft survives the refresh (first-seen-wins
// per goal id).
func (r *GoalReconciler) replaceAllLocked(goals []Goal) {
	r.goals = goals

	present := map[string]bool{}
	for _, g := range goals {
		present[g.ID] = true
		committed := progressString(g.Progress)
		prior, seen := r.drafts[g.ID]
		if !seen || prior == r.synced[g.ID] {
			r.drafts[g.ID] = committed
		}
		r.synced[g.ID] = committed
	}
	for id := range r.drafts {
		if !present[id] {
			delete(r.drafts, id)
			delete(r.synced, id)
		}
	}
}

func progressString(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64)
}

// UserFacingError maps an error to the text shown in the UI: validation and
// server messages verbatim, transport failures as a generic retry prompt.
func UserFacingError(err error) string {
	if err == nil {
		return ""
	}
	if IsValidation(err) {
		return err.Error()
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Error()
	}
	return "Network error, please try again."
}
