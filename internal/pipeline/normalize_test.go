package pipeline

import (
	"context"
	"testing"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage/memory"
	"disclosure-lab/internal/transform"
)

func cleanedRecord(name, asset, amount string) *domain.CleanedDisclosure {
	return &domain.CleanedDisclosure{
		PoliticianName:  name,
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		DisclosureDate:  time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		AssetName:       asset,
		TransactionType: "purchase",
		AmountText:      amount,
		Source:          "us_house",
		SourceType:      "us_house",
		RawData:         map[string]any{},
	}
}

func TestNormalizationStage_EnrichesRecord(t *testing.T) {
	matcher := transform.NewPoliticianMatcher(memory.NewPoliticianStore())
	stage := NewNormalizationStage(matcher)
	pc := NewContext("us_house", "us_house", nil, nil)

	res := stage.Process(context.Background(), []*domain.CleanedDisclosure{
		cleanedRecord("Hon. Nancy Pelosi", "Facebook Inc", "$1,001 - $15,000"),
	}, pc)

	if res.Status != StatusSuccess || len(res.Data) != 1 {
		t.Fatalf("status %q, %d records", res.Status, len(res.Data))
	}
	rec := res.Data[0]
	if rec.PoliticianFirstName != "Nancy" || rec.PoliticianLastName != "Pelosi" {
		t.Errorf("name = %q %q", rec.PoliticianFirstName, rec.PoliticianLastName)
	}
	if rec.PoliticianRole != domain.RoleRepresentative {
		t.Errorf("role = %q, want %q", rec.PoliticianRole, domain.RoleRepresentative)
	}
	if rec.AssetTicker != "META" {
		t.Errorf("ticker = %q, want META after rebrand", rec.AssetTicker)
	}
	if rec.AmountRangeMin == nil || *rec.AmountRangeMin != 1001 {
		t.Errorf("AmountRangeMin = %v", rec.AmountRangeMin)
	}
	if rec.AmountRangeMax == nil || *rec.AmountRangeMax != 15000 {
		t.Errorf("AmountRangeMax = %v", rec.AmountRangeMax)
	}
	if rec.AmountExact != nil {
		t.Errorf("AmountExact = %v, want nil", rec.AmountExact)
	}
}

func TestNormalizationStage_ReusesMatchedIdentity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPoliticianStore()
	p := &domain.Politician{
		FirstName:      "Nancy",
		LastName:       "Pelosi",
		Role:           domain.RoleRepresentative,
		Party:          "D",
		StateOrCountry: "CA",
	}
	id, err := store.Insert(ctx, p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	p.ID = id

	stage := NewNormalizationStage(transform.NewPoliticianMatcher(store))
	pc := NewContext("us_house", "us_house", nil, nil)

	res := stage.Process(ctx, []*domain.CleanedDisclosure{
		cleanedRecord("Nancy Pelosi", "Apple Inc", ""),
	}, pc)

	rec := res.Data[0]
	if rec.PoliticianID == nil || *rec.PoliticianID != id {
		t.Fatalf("PoliticianID = %v, want %d", rec.PoliticianID, id)
	}
	if rec.PoliticianParty != "D" || rec.PoliticianState != "CA" {
		t.Errorf("party %q state %q", rec.PoliticianParty, rec.PoliticianState)
	}
}

func TestNormalizationStage_RawIdentityFillsGaps(t *testing.T) {
	stage := NewNormalizationStage(transform.NewPoliticianMatcher(memory.NewPoliticianStore()))
	pc := NewContext("quiverquant", "quiverquant", nil, nil)

	rec := cleanedRecord("Jane Doe", "Apple Inc", "")
	rec.Source = "quiverquant"
	rec.RawData = map[string]any{
		"party":       "R",
		"state":       "TX",
		"bioguide_id": "D000123",
	}
	res := stage.Process(context.Background(), []*domain.CleanedDisclosure{rec}, pc)

	got := res.Data[0]
	if got.PoliticianParty != "R" || got.PoliticianState != "TX" || got.BioguideID != "D000123" {
		t.Errorf("got %+v", got)
	}
}

func TestNormalizationStage_InfersAssetType(t *testing.T) {
	stage := NewNormalizationStage(transform.NewPoliticianMatcher(memory.NewPoliticianStore()))
	pc := NewContext("us_house", "us_house", nil, nil)

	res := stage.Process(context.Background(), []*domain.CleanedDisclosure{
		cleanedRecord("Jane Doe", "Vanguard Total Market ETF", ""),
		cleanedRecord("Jane Doe", "US Treasury Bond", ""),
		cleanedRecord("Jane Doe", "Apple Inc (AAPL)", ""),
	}, pc)

	wants := []string{
		string(domain.AssetTypeETF),
		string(domain.AssetTypeBond),
		string(domain.AssetTypeStock),
	}
	for i, want := range wants {
		if got := res.Data[i].AssetType; got != want {
			t.Errorf("record %d: AssetType = %q, want %q", i, got, want)
		}
	}
}

func TestNormalizationStage_HouseDistrictFillsState(t *testing.T) {
	stage := NewNormalizationStage(transform.NewPoliticianMatcher(memory.NewPoliticianStore()))
	pc := NewContext("us_house", "us_house", nil, nil)

	rec := cleanedRecord("Nancy Pelosi", "Apple Inc", "")
	rec.RawData = map[string]any{"state_district": "CA-11"}
	res := stage.Process(context.Background(), []*domain.CleanedDisclosure{rec}, pc)

	got := res.Data[0]
	if got.PoliticianState != "CA" {
		t.Errorf("PoliticianState = %q, want CA", got.PoliticianState)
	}
	if got.PoliticianDistrict != "CA-11" {
		t.Errorf("PoliticianDistrict = %q, want CA-11", got.PoliticianDistrict)
	}
}

func TestNormalizationStage_ChamberFillsRole(t *testing.T) {
	stage := NewNormalizationStage(transform.NewPoliticianMatcher(memory.NewPoliticianStore()))
	pc := NewContext("quiverquant", "quiverquant", nil, nil)

	houseRec := cleanedRecord("Jane Doe", "Apple Inc", "")
	houseRec.Source = "quiverquant"
	houseRec.RawData = map[string]any{"chamber": "House"}
	senateRec := cleanedRecord("John Roe", "Apple Inc", "")
	senateRec.Source = "quiverquant"
	senateRec.RawData = map[string]any{"chamber": "Senate"}

	res := stage.Process(context.Background(), []*domain.CleanedDisclosure{houseRec, senateRec}, pc)

	if got := res.Data[0].PoliticianRole; got != domain.RoleRepresentative {
		t.Errorf("house role = %q, want %q", got, domain.RoleRepresentative)
	}
	if got := res.Data[1].PoliticianRole; got != domain.RoleSenator {
		t.Errorf("senate role = %q, want %q", got, domain.RoleSenator)
	}
}

func TestNormalizationStage_RebrandKeepsOriginalTicker(t *testing.T) {
	stage := NewNormalizationStage(transform.NewPoliticianMatcher(memory.NewPoliticianStore()))
	pc := NewContext("quiverquant", "quiverquant", nil, nil)

	rec := cleanedRecord("Nancy Pelosi", "Meta Platforms Inc", "")
	rec.AssetTicker = "FB"
	res := stage.Process(context.Background(), []*domain.CleanedDisclosure{rec}, pc)

	got := res.Data[0]
	if got.AssetTicker != "META" {
		t.Errorf("AssetTicker = %q, want META", got.AssetTicker)
	}
	if got.AssetTickerOriginal != "FB" {
		t.Errorf("AssetTickerOriginal = %q, want FB", got.AssetTickerOriginal)
	}

	// An already-current symbol leaves no correction trace.
	rec = cleanedRecord("Nancy Pelosi", "Apple Inc", "")
	rec.AssetTicker = "AAPL"
	res = stage.Process(context.Background(), []*domain.CleanedDisclosure{rec}, pc)
	if got := res.Data[0].AssetTickerOriginal; got != "" {
		t.Errorf("AssetTickerOriginal = %q, want empty", got)
	}
}
