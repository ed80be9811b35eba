package transform

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		text  string
		min   float64
		max   float64
		exact float64
		// which pointers should be set
		hasMin, hasMax, hasExact bool
	}{
		{"$1,001 - $15,000", 1001, 15000, 0, true, true, false},
		{"$15,001 - $50,000", 15001, 50000, 0, true, true, false},
		{"$50,001 - $100,000", 50001, 100000, 0, true, true, false},
		{"$1,000,001 - $5,000,000", 1000001, 5000000, 0, true, true, false},
		{"$25,000,001 - $50,000,000", 25000001, 50000000, 0, true, true, false},
		{"$2,000 - $30,000", 2000, 30000, 0, true, true, false},
		{"Over $50,000,000", 50000001, 0, 0, true, false, false},
		{"over $1,000,000", 1000001, 0, 0, true, false, false},
		{"Under $15,000", 0, 15000, 0, false, true, false},
		{"$25,000", 0, 0, 25000, false, false, true},
		{"", 0, 0, 0, false, false, false},
		{"not an amount", 0, 0, 0, false, false, false},
	}

	for _, tt := range tests {
		min, max, exact := ParseAmount(tt.text)

		if tt.hasMin != (min != nil) {
			t.Errorf("ParseAmount(%q): min presence = %v, want %v", tt.text, min != nil, tt.hasMin)
			continue
		}
		if tt.hasMax != (max != nil) {
			t.Errorf("ParseAmount(%q): max presence = %v, want %v", tt.text, max != nil, tt.hasMax)
			continue
		}
		if tt.hasExact != (exact != nil) {
			t.Errorf("ParseAmount(%q): exact presence = %v, want %v", tt.text, exact != nil, tt.hasExact)
			continue
		}
		if min != nil && *min != tt.min {
			t.Errorf("ParseAmount(%q): min = %v, want %v", tt.text, *min, tt.min)
		}
		if max != nil && *max != tt.max {
			t.Errorf("ParseAmount(%q): max = %v, want %v", tt.text, *max, tt.max)
		}
		if exact != nil && *exact != tt.exact {
			t.Errorf("ParseAmount(%q): exact = %v, want %v", tt.text, *exact, tt.exact)
		}
	}
}

func TestParseAmountNormalizesWhitespace(t *testing.T) {
	min, max, _ := ParseAmount("  $1,001   -  $15,000 ")
	if min == nil || *min != 1001 {
		t.Fatalf("min = %v, want 1001", min)
	}
	if max == nil || *max != 15000 {
		t.Fatalf("max = %v, want 15000", max)
	}
}
