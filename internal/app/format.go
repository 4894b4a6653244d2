package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Display epsilon: values this close to an integer are shown without a
// decimal, everything else gets one decimal place.
const amountEpsilon = 0.05

var currencyUnits = map[string]bool{
	"$": true,
	"€": true,
	"£": true,
}

var timeUnits = map[string]bool{
	"minute": true,
	"hour":   true,
	"day":    true,
	"week":   true,
	"month":  true,
	"year":   true,
}

// FormatAmount renders a numeric amount: nearest integer when within epsilon
// of it, one decimal otherwise.
func FormatAmount(v float64) string {
	rounded := math.Round(v)
	if math.Abs(v-rounded) < amountEpsilon {
		return strconv.FormatFloat(rounded, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatWithUnit renders an amount with unit-aware placement: currency
// symbols prefix ("$42"), time units pluralize ("3 hours"), anything else is
// a plain suffix ("3 km").
func FormatWithUnit(v float64, unit string) string {
	amount := FormatAmount(v)
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return amount
	}
	if currencyUnits[unit] {
		return unit + amount
	}
	singular := strings.TrimSuffix(strings.ToLower(unit), "s")
	if timeUnits[singular] {
		if amount == "1" {
			return amount + " " + singular
		}
		return amount + " " + singular + "s"
	}
	return amount + " " + unit
}

// GoalProgressValue derives the absolute progress for a goal: the
// server-provided value when present, else target × percentage.
func GoalProgressValue(g Goal) (float64, bool) {
	if g.ProgressValue != nil {
		return *g.ProgressValue, true
	}
	if g.TargetValue != nil {
		return *g.TargetValue * g.Progress / 100, true
	}
	return 0, false
}

// GoalRemaining is the amount still to go, floored at zero.
func GoalRemaining(g Goal) (float64, bool) {
	if g.TargetValue == nil {
		return 0, false
	}
	done, ok := GoalProgressValue(g)
	if !ok {
		return 0, false
	}
	return math.Max(*g.TargetValue-done, 0), true
}

// FormatGoalProgress is the one-line progress summary shown under a goal,
// e.g. "$150 of $200 · $50 to go". Falls back to a bare percentage when the
// goal has no target amount.
func FormatGoalProgress(g Goal) string {
	done, ok := GoalProgressValue(g)
	if !ok || g.TargetValue == nil {
		return fmt.Sprintf("%s%%", FormatAmount(g.Progress))
	}
	line := fmt.Sprintf("%s of %s", FormatWithUnit(done, g.TargetUnit), FormatWithUnit(*g.TargetValue, g.TargetUnit))
	if left, ok := GoalRemaining(g); ok && left > 0 {
		line += fmt.Sprintf(" · %s to go", FormatWithUnit(left, g.TargetUnit))
	}
	return line
}

// FormatWeather renders whichever metrics are present, each rounded and
// labeled on its own. Returns "" when nothing usable is set.
func FormatWeather(w *Weather) string {
	if w == nil {
		return ""
	}
	var parts []string
	if w.Condition != nil {
		parts = append(parts, *w.Condition)
	}
	if w.TempC != nil {
		parts = append(parts, fmt.Sprintf("%.0f°C", math.Round(*w.TempC)))
	}
	if w.FeelsC != nil {
		parts = append(parts, fmt.Sprintf("feels like %.0f°C", math.Round(*w.FeelsC)))
	}
	if w.Humidity != nil {
		parts = append(parts, fmt.Sprintf("humidity %.0f%%", math.Round(*w.Humidity)))
	}
	if w.WindKph != nil {
		parts = append(parts, fmt.Sprintf("wind %.0f km/h", math.Round(*w.WindKph)))
	}
	return strings.Join(parts, " · ")
}

var emphasisReplacer = strings.NewReplacer(
	"**", "",
	"__", "",
	"*", "",
	"`", "",
)

// StripEmphasis removes markdown emphasis markers for plain-text display.
func StripEmphasis(s string) string {
	return emphasisReplacer.Replace(s)
}

// DisplayText is the plain-text body of a message: the markdown variant,
// stripped, supersedes the plain text when present.
func DisplayText(m Message) string {
	if m.ReplyMD != "" {
		return StripEmphasis(m.ReplyMD)
	}
	return m.Text
}
