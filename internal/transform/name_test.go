package transform

import "testing"

func TestStripTitles(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hon. Nancy Pelosi", "Nancy Pelosi"},
		{"Sen. Sherrod Brown", "Sherrod Brown"},
		{"The Right Honourable Rishi Sunak", "Rishi Sunak"},
		{"Hon. Rep. Nancy Pelosi", "Nancy Pelosi"},
		{"Dr. Rand Paul", "Rand Paul"},
		{"Nancy Pelosi", "Nancy Pelosi"},
		{"  Mrs. Jane Doe  ", "Jane Doe"},
	}

	for _, tt := range tests {
		if got := StripTitles(tt.in); got != tt.want {
			t.Errorf("StripTitles(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in    string
		first string
		last  string
	}{
		{"Nancy Pelosi", "Nancy", "Pelosi"},
		{"Hon. Nancy Patricia Pelosi", "Nancy", "Pelosi"},
		{"Madonna", "Madonna", ""},
		{"", "", ""},
		{"Sen. John Fitzgerald Kennedy Jr", "John", "Jr"},
	}

	for _, tt := range tests {
		first, last := SplitName(tt.in)
		if first != tt.first || last != tt.last {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.in, first, last, tt.first, tt.last)
		}
	}
}
