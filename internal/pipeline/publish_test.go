package pipeline

import (
	"context"
	"testing"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/publish"
	"disclosure-lab/internal/storage/memory"
)

func normalizedRecord(asset string) *domain.NormalizedDisclosure {
	return &domain.NormalizedDisclosure{
		CleanedDisclosure: domain.CleanedDisclosure{
			PoliticianName:  "Nancy Pelosi",
			TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			DisclosureDate:  time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			AssetName:       asset,
			TransactionType: "purchase",
			Source:          "us_house",
		},
		PoliticianFirstName: "Nancy",
		PoliticianLastName:  "Pelosi",
		PoliticianRole:      domain.RoleRepresentative,
	}
}

func newPublishStage() *PublishingStage {
	pub := publish.NewPublisher(memory.NewPoliticianStore(), memory.NewDisclosureStore(), nil,
		publish.Options{SkipDuplicates: true}, nil)
	return NewPublishingStage(pub)
}

func TestPublishingStage_CountsInsertedAsOutput(t *testing.T) {
	stage := newPublishStage()
	pc := NewContext("us_house", "us_house", nil, nil)

	res := stage.Process(context.Background(), []*domain.NormalizedDisclosure{
		normalizedRecord("Apple Inc"),
		normalizedRecord("Microsoft Corp"),
	}, pc)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q: %v", res.Status, res.Metrics.Errors)
	}
	if res.Metrics.RecordsOutput != 2 {
		t.Errorf("RecordsOutput = %d, want 2", res.Metrics.RecordsOutput)
	}

	stats, ok := pc.Metadata["publish_stats"].(*publish.Stats)
	if !ok {
		t.Fatalf("publish_stats missing from metadata")
	}
	if stats.PoliticiansCreated != 1 || stats.PoliticiansMatched != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPublishingStage_AllDuplicatesIsSuccess(t *testing.T) {
	stage := newPublishStage()
	pc := NewContext("us_house", "us_house", nil, nil)
	ctx := context.Background()

	records := []*domain.NormalizedDisclosure{normalizedRecord("Apple Inc")}
	stage.Process(ctx, records, pc)
	res := stage.Process(ctx, []*domain.NormalizedDisclosure{normalizedRecord("Apple Inc")}, pc)

	if res.Status != StatusSuccess {
		t.Errorf("Status = %q, want success for a no-op rerun", res.Status)
	}
	if res.Metrics.RecordsSkipped != 1 || res.Metrics.RecordsOutput != 0 {
		t.Errorf("metrics = %+v", res.Metrics)
	}
}
