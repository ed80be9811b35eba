package pdftext

import (
	"testing"
	"time"
)

func TestParseTransactions_FilingCodes(t *testing.T) {
	text := "Apple Inc (AAPL) P 01/15/2024 $1,001 - $15,000\n" +
		"Microsoft Corp (MSFT) S 02/20/2024 $15,001 - $50,000\n" +
		"SP Common Stock E 03/05/2024 $50,001 - $100,000"

	txs := ParseTransactions(text)
	if len(txs) != 3 {
		t.Fatalf("transactions = %d, want 3", len(txs))
	}

	first := txs[0]
	if first.Ticker != "AAPL" {
		t.Errorf("Ticker = %q, want AAPL", first.Ticker)
	}
	if first.AssetName != "Apple Inc (AAPL)" {
		t.Errorf("AssetName = %q", first.AssetName)
	}
	if first.TransactionType != "purchase" {
		t.Errorf("TransactionType = %q, want purchase", first.TransactionType)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !first.TransactionDate.Equal(want) {
		t.Errorf("TransactionDate = %v, want %v", first.TransactionDate, want)
	}
	if first.AmountMin == nil || *first.AmountMin != 1001 {
		t.Errorf("AmountMin = %v, want 1001", first.AmountMin)
	}
	if first.AmountMax == nil || *first.AmountMax != 15000 {
		t.Errorf("AmountMax = %v, want 15000", first.AmountMax)
	}

	if txs[1].TransactionType != "sale" {
		t.Errorf("second TransactionType = %q, want sale", txs[1].TransactionType)
	}
	if txs[2].TransactionType != "exchange" {
		t.Errorf("third TransactionType = %q, want exchange", txs[2].TransactionType)
	}
}

func TestParseTransactions_Verbs(t *testing.T) {
	txs := ParseTransactions("Purchase of Tesla Inc (TSLA) on 2024-03-10 for $25,000")
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.TransactionType != "purchase" {
		t.Errorf("TransactionType = %q, want purchase", tx.TransactionType)
	}
	if tx.Ticker != "TSLA" {
		t.Errorf("Ticker = %q, want TSLA", tx.Ticker)
	}
	if tx.AmountExact == nil || *tx.AmountExact != 25000 {
		t.Errorf("AmountExact = %v, want 25000", tx.AmountExact)
	}
}

func TestParseTransactions_SkipsUnmarkedLines(t *testing.T) {
	text := "Periodic Transaction Report\n" +
		"Filed 01/15/2024\n" +
		"Asset with no signal whatsoever"

	if txs := ParseTransactions(text); len(txs) != 0 {
		t.Fatalf("transactions = %d, want 0", len(txs))
	}
}

func TestParseTransactions_CodeMustTouchDate(t *testing.T) {
	// P appears mid-line but not adjacent to the date: not a transaction.
	txs := ParseTransactions("P Street Holdings LLC filing dated 01/15/2024")
	if len(txs) != 0 {
		t.Fatalf("transactions = %d, want 0", len(txs))
	}
}
