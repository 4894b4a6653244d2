package app

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeHat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{HatClassic, HatClassic},
		{HatScholar, HatScholar},
		{HatStrategist, HatStrategist},
		{"default", HatClassic},
		{"wizard", HatScholar},
		{"cowboy", HatStrategist},
		{"", HatClassic},
		{"propeller", HatClassic},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeHat(tt.in); got != tt.want {
				t.Errorf("NormalizeHat(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// Idempotent: normalizing twice changes nothing.
			if got := NormalizeHat(NormalizeHat(tt.in)); got != tt.want {
				t.Errorf("double normalize of %q = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPreferenceStoreReadMissing(t *testing.T) {
	s := NewPreferenceStore(t.TempDir(), NewLogger(io.Discard))
	if got := s.Read(); got != DefaultHat {
		t.Errorf("Read on missing file = %q, want default %q", got, DefaultHat)
	}
}

func TestPreferenceStoreReadLegacy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hat.yml")
	if err := os.WriteFile(path, []byte("selected-hat: wizard\n"), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
	s := NewPreferenceStore(dir, NewLogger(io.Discard))
	if got := s.Read(); got != HatScholar {
		t.Errorf("legacy read = %q, want %q", got, HatScholar)
	}
}

func TestPreferenceStoreReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hat.yml"), []byte(":::not yaml"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	s := NewPreferenceStore(dir, NewLogger(io.Discard))
	if got := s.Read(); got != DefaultHat {
		t.Errorf("corrupt read = %q, want default %q", got, DefaultHat)
	}
}

func TestPreferenceStoreWriteRejectsUnknown(t *testing.T) {
	dir := t.TempDir()
	s := NewPreferenceStore(dir, NewLogger(io.Discard))
	err := s.Write("sombrero")
	if err == nil {
		t.Fatal("expected error for unknown hat")
	}
	if !IsValidation(err) {
		t.Errorf("expected validation error, got %T", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "hat.yml")); !os.IsNotExist(statErr) {
		t.Error("rejected write must not touch the file")
	}
	// Legacy ids are read-side migrations only, never accepted for writing.
	if err := s.Write("wizard"); err == nil {
		t.Error("expected legacy id to be rejected on write")
	}
}

func TestPreferenceStoreWriteRoundTrip(t *testing.T) {
	s := NewPreferenceStore(t.TempDir(), NewLogger(io.Discard))
	if err := s.Write(HatStrategist); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := s.Read(); got != HatStrategist {
		t.Errorf("Read after Write = %q, want %q", got, HatStrategist)
	}
}

func TestPreferenceStoreSubscribe(t *testing.T) {
	s := NewPreferenceStore(t.TempDir(), NewLogger(io.Discard))

	var got []string
	cancel := s.Subscribe(func(hat string) { got = append(got, hat) })

	if err := s.Write(HatScholar); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(got) != 1 || got[0] != HatScholar {
		t.Fatalf("subscriber calls = %v, want [%s]", got, HatScholar)
	}

	cancel()
	if err := s.Write(HatClassic); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("cancelled subscriber still notified: %v", got)
	}
}

func TestHatName(t *testing.T) {
	if got := HatName(HatScholar); got != "Scholar Cap" {
		t.Errorf("HatName = %q", got)
	}
	if got := HatName("wizard"); got != "Scholar Cap" {
		t.Errorf("HatName legacy = %q", got)
	}
	if got := HatName("nonsense"); got != "Classic Top Hat" {
		t.Errorf("HatName unknown = %q", got)
	}
}
