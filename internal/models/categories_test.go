package models

import (
	"reflect"
	"testing"
)

func TestCategoriesValue(t *testing.T) {
	tests := []struct {
		name string
		in   Categories
		want string
	}{
		{"nil", nil, "[]"},
		{"empty", Categories{}, "[]"},
		{"ordered", Categories{"go", "rss"}, `["go","rss"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.in.Value()
			if err != nil {
				t.Fatal(err)
			}
			if v != tt.want {
				t.Errorf("Expected %q, got %v", tt.want, v)
			}
		})
	}
}

func TestCategoriesScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want Categories
	}{
		{"nil", nil, Categories{}},
		{"string", `["b","a"]`, Categories{"b", "a"}},
		{"bytes", []byte(`["x"]`), Categories{"x"}},
		{"empty bytes", []byte{}, Categories{}},
		{"json null", "null", Categories{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Categories
			if err := c.Scan(tt.src); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(c, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, c)
			}
		})
	}
}

func TestCategoriesScanRejectsUnknownType(t *testing.T) {
	var c Categories
	if err := c.Scan(42); err == nil {
		t.Error("Expected error for integer source")
	}
}
