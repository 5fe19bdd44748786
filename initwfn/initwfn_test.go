package initwfn

import "testing"

func TestNewGlorotUHasMatchingType(t *testing.T) {
	w, err := NewGlorotU(1.0)
	if err != nil {
		t.Fatalf("NewGlorotU: %v", err)
	}
	if w.Type != GlorotU {
		t.Errorf("Type = %v, want %v", w.Type, GlorotU)
	}
	if w.InitWFn() == nil {
		t.Errorf("expected a non-nil Gorgonia InitWFn")
	}
}

func TestNewZeroesHasMatchingType(t *testing.T) {
	w, err := NewZeroes()
	if err != nil {
		t.Fatalf("NewZeroes: %v", err)
	}
	if w.Type != Zeroes {
		t.Errorf("Type = %v, want %v", w.Type, Zeroes)
	}
}
