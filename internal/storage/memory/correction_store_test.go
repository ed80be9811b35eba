package memory

import (
	"context"
	"testing"

	"disclosure-lab/internal/domain"
)

func TestCorrectionStore_InsertAndListByRecord(t *testing.T) {
	ctx := context.Background()
	store := NewCorrectionStore()

	rows := []*domain.DataQualityCorrection{
		{TableName: "politicians", RecordID: 1, FieldName: "role", OldValue: "Rep.", NewValue: "Representative", Confidence: 1.0, CorrectedBy: "politician_normalizer", Status: domain.CorrectionApplied},
		{TableName: "politicians", RecordID: 1, FieldName: "state_or_country", OldValue: "", NewValue: "CA", Confidence: 1.0, CorrectedBy: "politician_normalizer", Status: domain.CorrectionApplied},
		{TableName: "politicians", RecordID: 2, FieldName: "role", OldValue: "Sen", NewValue: "Senator", Confidence: 1.0, CorrectedBy: "politician_normalizer", Status: domain.CorrectionApplied},
	}
	for _, c := range rows {
		if err := store.Insert(ctx, c); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.ListByRecord(ctx, "politicians", 1)
	if err != nil {
		t.Fatalf("ListByRecord failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 corrections, got %d", len(got))
	}
	if got[0].FieldName != "role" || got[1].FieldName != "state_or_country" {
		t.Errorf("expected insertion order, got %q %q", got[0].FieldName, got[1].FieldName)
	}

	empty, err := store.ListByRecord(ctx, "trading_disclosures", 1)
	if err != nil {
		t.Fatalf("ListByRecord failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no corrections, got %d", len(empty))
	}
}
