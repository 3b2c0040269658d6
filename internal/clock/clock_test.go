package clock

import (
	"testing"
	"time"
)

func TestRealIsUTC(t *testing.T) {
	now := Real{}.Now()
	if now.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", now.Location())
	}
}

func TestFixed(t *testing.T) {
	instant := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Fixed(instant)

	if !c.Now().Equal(instant) || !c.Now().Equal(instant) {
		t.Errorf("Expected fixed clock to always return %v", instant)
	}
}

func TestStepper(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStepper(start, time.Minute)

	first := s.Now()
	second := s.Now()

	if !first.Equal(start) {
		t.Errorf("Expected first call to return %v, got %v", start, first)
	}
	if !second.Equal(start.Add(time.Minute)) {
		t.Errorf("Expected second call to return %v, got %v", start.Add(time.Minute), second)
	}
	if s.Calls() != 2 {
		t.Errorf("Expected 2 calls, got %d", s.Calls())
	}
}
