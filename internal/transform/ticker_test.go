package transform

import "testing"

func TestExtractTicker(t *testing.T) {
	tests := []struct {
		assetName string
		want      string
	}{
		{"Apple Inc. (AAPL)", "AAPL"},
		{"Facebook Inc (FB)", "META"},
		{"Microsoft Corporation", "MSFT"},
		{"Tesla Motors common stock", "TSLA"},
		{"Some Obscure Holding LLC", ""},
		{"Twitter Inc (TWTR)", "X"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractTicker(tt.assetName); got != tt.want {
			t.Errorf("ExtractTicker(%q) = %q, want %q", tt.assetName, got, tt.want)
		}
	}
}

func TestCorrectTicker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FB", "META"},
		{"fb", "META"},
		{"TWTR", "X"},
		{"ATVI", "MSFT"},
		{"DISCA", "WBD"},
		{"AAPL", "AAPL"},
		{" nvda ", "NVDA"},
	}

	for _, tt := range tests {
		if got := CorrectTicker(tt.in); got != tt.want {
			t.Errorf("CorrectTicker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
