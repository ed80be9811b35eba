package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/observability"
	"disclosure-lab/internal/transform"
)

// NormalizationStage resolves politician identity and enriches records with
// tickers, asset types and parsed amounts.
type NormalizationStage struct {
	matcher *transform.PoliticianMatcher
}

// NewNormalizationStage creates the normalize stage.
func NewNormalizationStage(matcher *transform.PoliticianMatcher) *NormalizationStage {
	return &NormalizationStage{matcher: matcher}
}

// Name returns the stage name.
func (s *NormalizationStage) Name() string { return "normalize" }

// Process enriches each cleaned record. A failed politician lookup fails the
// record, not the stage.
func (s *NormalizationStage) Process(ctx context.Context, data []*domain.CleanedDisclosure, pc *Context) Result[*domain.NormalizedDisclosure] {
	start := time.Now()
	m := Metrics{RecordsInput: len(data)}

	out := make([]*domain.NormalizedDisclosure, 0, len(data))
	for _, cleaned := range data {
		if err := ctx.Err(); err != nil {
			m.Errors = append(m.Errors, err.Error())
			m.RecordsFailed++
			break
		}

		rec, err := s.normalizeOne(ctx, cleaned)
		if err != nil {
			m.RecordsFailed++
			m.Errors = append(m.Errors, err.Error())
			continue
		}
		out = append(out, rec)
	}

	m.RecordsOutput = len(out)
	m.DurationSeconds = time.Since(start).Seconds()
	status := statusFor(m)

	pc.Logger.Info("normalize stage finished",
		zap.String("source", pc.SourceName),
		zap.Int("input", m.RecordsInput),
		zap.Int("output", m.RecordsOutput),
		zap.Int("failed", m.RecordsFailed),
		zap.String("status", string(status)))
	observability.RecordStage(s.Name(), m.RecordsOutput, m.RecordsSkipped, m.RecordsFailed, m.DurationSeconds)

	return Result[*domain.NormalizedDisclosure]{
		Status:    status,
		Data:      out,
		Metrics:   m,
		StageName: s.Name(),
	}
}

func (s *NormalizationStage) normalizeOne(ctx context.Context, cleaned *domain.CleanedDisclosure) (*domain.NormalizedDisclosure, error) {
	first, last := transform.SplitName(cleaned.PoliticianName)

	match, err := s.matcher.Match(ctx, first, last, cleaned.Source)
	if err != nil {
		return nil, err
	}

	rec := &domain.NormalizedDisclosure{
		CleanedDisclosure:   *cleaned,
		PoliticianID:        match.ID,
		PoliticianFirstName: first,
		PoliticianLastName:  last,
		PoliticianRole:      match.Role,
		PoliticianParty:     match.Party,
		PoliticianState:     match.State,
	}

	// Source-provided identity fills any gaps left by the lookup.
	if rec.PoliticianRole == "" {
		rec.PoliticianRole = domain.RoleFromChamber(rawString(cleaned.RawData, "chamber"))
	}
	if rec.PoliticianParty == "" {
		rec.PoliticianParty = rawString(cleaned.RawData, "party")
	}
	rec.PoliticianDistrict = rawString(cleaned.RawData, "state_district")
	if rec.PoliticianState == "" {
		rec.PoliticianState = rawString(cleaned.RawData, "state")
	}
	if rec.PoliticianState == "" {
		rec.PoliticianState = transform.StateFromDistrict(rec.PoliticianDistrict)
	}
	rec.BioguideID = rawString(cleaned.RawData, "bioguide_id")

	if rec.AssetTicker == "" {
		rec.AssetTicker = transform.ExtractTicker(cleaned.AssetName)
	} else {
		corrected := transform.CorrectTicker(rec.AssetTicker)
		if canon := strings.ToUpper(strings.TrimSpace(rec.AssetTicker)); corrected != canon {
			rec.AssetTickerOriginal = canon
		}
		rec.AssetTicker = corrected
	}
	if rec.AssetType == "" {
		rec.AssetType = transform.InferAssetType(cleaned.AssetName)
	}

	rec.AmountRangeMin, rec.AmountRangeMax, rec.AmountExact = transform.ParseAmount(cleaned.AmountText)
	return rec, nil
}

func rawString(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}
