package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{UpdatedAt: time.Date(2025, 3, 1, 8, 0, 0, 123456789, time.FixedZone("CET", 3600)), ID: 42}

	decoded, err := DecodeCursor(c.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.UpdatedAt.Equal(c.UpdatedAt) || decoded.ID != 42 {
		t.Errorf("Expected %+v, got %+v", c, decoded)
	}
	if decoded.UpdatedAt.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %v", decoded.UpdatedAt.Location())
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	encode := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%"},
		{"no separator", encode("2025-03-01T08:00:00Z")},
		{"bad time", encode("yesterday|1")},
		{"bad id", encode("2025-03-01T08:00:00Z|abc")},
		{"zero id", encode("2025-03-01T08:00:00Z|0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCursor(tt.cursor); !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("Expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}
