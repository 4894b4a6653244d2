package app

import "testing"

func f64(v float64) *float64 { return &v }

func TestFormatWithUnit(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		unit string
		want string
	}{
		{"integer distance", 3.0, "km", "3 km"},
		{"near integer rounds", 3.01, "km", "3 km"},
		{"fractional distance", 3.14159, "km", "3.1 km"},
		{"currency prefixes", 42, "$", "$42"},
		{"currency fractional", 42.5, "$", "$42.5"},
		{"euro prefixes", 10, "€", "€10"},
		{"time unit pluralizes", 3, "hour", "3 hours"},
		{"time unit singular", 1, "hour", "1 hour"},
		{"time unit already plural", 3, "hours", "3 hours"},
		{"unknown unit suffixes", 5, "pages", "5 pages"},
		{"empty unit", 7, "", "7"},
		{"unit with spaces", 2, " km ", "2 km"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatWithUnit(tt.v, tt.unit); got != tt.want {
				t.Errorf("FormatWithUnit(%v, %q) = %q, want %q", tt.v, tt.unit, got, tt.want)
			}
		})
	}
}

func TestFormatAmountEpsilon(t *testing.T) {
	if got := FormatAmount(2.96); got != "3" {
		t.Errorf("FormatAmount(2.96) = %q, want %q", got, "3")
	}
	if got := FormatAmount(2.9); got != "2.9" {
		t.Errorf("FormatAmount(2.9) = %q, want %q", got, "2.9")
	}
}

func TestGoalProgressValue(t *testing.T) {
	explicit := Goal{Progress: 50, ProgressValue: f64(120), TargetValue: f64(200)}
	if v, ok := GoalProgressValue(explicit); !ok || v != 120 {
		t.Errorf("explicit progress value: got %v, %v", v, ok)
	}

	derived := Goal{Progress: 25, TargetValue: f64(200)}
	if v, ok := GoalProgressValue(derived); !ok || v != 50 {
		t.Errorf("derived progress value: got %v, %v", v, ok)
	}

	if _, ok := GoalProgressValue(Goal{Progress: 25}); ok {
		t.Error("no target: expected ok=false")
	}
}

func TestFormatGoalProgress(t *testing.T) {
	g := Goal{Progress: 75, TargetValue: f64(200), TargetUnit: "$"}
	want := "$150 of $200 · $50 to go"
	if got := FormatGoalProgress(g); got != want {
		t.Errorf("FormatGoalProgress = %q, want %q", got, want)
	}

	complete := Goal{Progress: 100, TargetValue: f64(200), TargetUnit: "$"}
	want = "$200 of $200"
	if got := FormatGoalProgress(complete); got != want {
		t.Errorf("complete goal = %q, want %q", got, want)
	}

	bare := Goal{Progress: 40}
	if got := FormatGoalProgress(bare); got != "40%" {
		t.Errorf("bare percentage = %q, want %q", got, "40%")
	}
}

func TestFormatWeather(t *testing.T) {
	cond := "Partly cloudy"
	full := &Weather{Condition: &cond, TempC: f64(21.4), FeelsC: f64(19.2), Humidity: f64(65), WindKph: f64(12.3)}
	want := "Partly cloudy · 21°C · feels like 19°C · humidity 65% · wind 12 km/h"
	if got := FormatWeather(full); got != want {
		t.Errorf("FormatWeather = %q, want %q", got, want)
	}

	partial := &Weather{TempC: f64(8.6)}
	if got := FormatWeather(partial); got != "9°C" {
		t.Errorf("partial weather = %q, want %q", got, "9°C")
	}

	if got := FormatWeather(nil); got != "" {
		t.Errorf("nil weather = %q, want empty", got)
	}
	if got := FormatWeather(&Weather{}); got != "" {
		t.Errorf("empty weather = %q, want empty", got)
	}
}

func TestStripEmphasis(t *testing.T) {
	in := "You've saved **$150** toward *Vacation Fund* — `75%` done, __keep going__"
	want := "You've saved $150 toward Vacation Fund — 75% done, keep going"
	if got := StripEmphasis(in); got != want {
		t.Errorf("StripEmphasis = %q, want %q", got, want)
	}
}

func TestDisplayText(t *testing.T) {
	md := Message{Text: "plain", ReplyMD: "**rich**"}
	if got := DisplayText(md); got != "rich" {
		t.Errorf("markdown message = %q, want %q", got, "rich")
	}
	plain := Message{Text: "plain"}
	if got := DisplayText(plain); got != "plain" {
		t.Errorf("plain message = %q, want %q", got, "plain")
	}
}
