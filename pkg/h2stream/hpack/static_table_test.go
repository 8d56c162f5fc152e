package hpack

import "testing"

func TestStaticEntry(t *testing.T) {
	tests := []struct {
		index int
		want  Header
	}{
		{1, Header{Name: ":authority"}},
		{2, Header{Name: ":method", Value: "GET"}},
		{3, Header{Name: ":method", Value: "POST"}},
		{8, Header{Name: ":status", Value: "200"}},
		{61, Header{Name: "www-authenticate"}},
	}

	for _, tt := range tests {
		got, ok := staticEntry(tt.index)
		if !ok || got.Name != tt.want.Name || got.Value != tt.want.Value {
			t.Errorf("staticEntry(%d) = %+v, %v, want %+v", tt.index, got, ok, tt.want)
		}
	}

	if _, ok := staticEntry(0); ok {
		t.Errorf("staticEntry(0) should be invalid")
	}
	if _, ok := staticEntry(62); ok {
		t.Errorf("staticEntry(62) should be invalid")
	}
}

func TestFindStatic(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantIndex int
		wantExact bool
	}{
		{":method", "GET", 2, true},
		{":method", "DELETE", 2, false},
		{":status", "200", 8, true},
		{":status", "418", 8, false},
		{"custom-header", "value", 0, false},
	}

	for _, tt := range tests {
		idx, exact := findStatic(tt.name, tt.value)
		if idx != tt.wantIndex || exact != tt.wantExact {
			t.Errorf("findStatic(%q, %q) = (%d, %v), want (%d, %v)",
				tt.name, tt.value, idx, exact, tt.wantIndex, tt.wantExact)
		}
	}
}
