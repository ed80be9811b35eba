package transform

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// correctedBy identifies normalizer edits in the audit trail.
const correctedBy = "politician_normalizer"

// canonicalRoles rewrites the role variants that leak in from source feeds.
var canonicalRoles = map[string]string{
	"us_house_representative": domain.RoleRepresentative,
	"us_house_rep":            domain.RoleRepresentative,
	"representative":          domain.RoleRepresentative,
	"rep":                     domain.RoleRepresentative,
	"rep.":                    domain.RoleRepresentative,
	"house":                   domain.RoleRepresentative,
	"congressman":             domain.RoleRepresentative,
	"congresswoman":           domain.RoleRepresentative,
	"us_senator":              domain.RoleSenator,
	"senator":                 domain.RoleSenator,
	"sen":                     domain.RoleSenator,
	"sen.":                    domain.RoleSenator,
	"senate":                  domain.RoleSenator,
	"mep":                     domain.RoleMEP,
	"eu_parliament_member":    domain.RoleMEP,
	"mp":                      domain.RoleMP,
}

var (
	honorificRe   = regexp.MustCompile(`(?i)^(?:hon\.?|mr\.?|dr\.?|sen\.?|rep\.?|senator|representative|congressman|congresswoman)\s+`)
	placeholderRe = regexp.MustCompile(`(?i)^(?:placeholder|unknown|pending|tbd|n/a)`)
	districtRe    = regexp.MustCompile(`^([A-Z]{2})\d+$`)

	// stateDistrictRe also accepts the hyphenated form the House index uses
	// ("CA-11") and bare at-large codes ("AK").
	stateDistrictRe = regexp.MustCompile(`^([A-Z]{2})(?:-?\d+)?$`)
)

// StateFromDistrict pulls the two-letter state code off a district label
// like "CA-11", "CA11" or "AK". Unrecognized labels yield "".
func StateFromDistrict(district string) string {
	if m := stateDistrictRe.FindStringSubmatch(strings.TrimSpace(district)); m != nil {
		return m[1]
	}
	return ""
}

// NormalizerResult summarizes one normalizer pass.
type NormalizerResult struct {
	Scanned     int
	Updated     int
	Corrections int
	Errors      []string
}

// Normalizer is the data-quality batch job over the politicians table.
// Every edit is recorded in data_quality_corrections.
type Normalizer struct {
	politicians storage.PoliticianStore
	corrections storage.CorrectionStore
	logger      *zap.Logger
}

// NewNormalizer creates a politician normalizer.
func NewNormalizer(politicians storage.PoliticianStore, corrections storage.CorrectionStore, logger *zap.Logger) *Normalizer {
	return &Normalizer{politicians: politicians, corrections: corrections, logger: logger}
}

// Run normalizes every politician row: canonical roles, honorific-free
// first names, and state backfill from the district code. Dirty rows are
// written back; audit rows record each field edit.
func (n *Normalizer) Run(ctx context.Context) (*NormalizerResult, error) {
	politicians, err := n.politicians.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load politicians: %w", err)
	}

	result := &NormalizerResult{Scanned: len(politicians)}
	for _, p := range politicians {
		edits := n.normalize(p)
		if len(edits) == 0 {
			continue
		}

		if err := n.politicians.Update(ctx, p); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("politician %d: %v", p.ID, err))
			continue
		}
		result.Updated++

		for _, e := range edits {
			e.RecordID = p.ID
			if err := n.corrections.Insert(ctx, e); err != nil {
				n.logger.Warn("correction audit insert failed",
					zap.Int64("politician_id", p.ID),
					zap.String("field", e.FieldName),
					zap.Error(err))
				continue
			}
			result.Corrections++
		}
	}

	n.logger.Info("politician normalizer finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
		zap.Int("corrections", result.Corrections),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// normalize mutates p in place and returns an audit row per changed field.
func (n *Normalizer) normalize(p *domain.Politician) []*domain.DataQualityCorrection {
	var edits []*domain.DataQualityCorrection

	if canonical, ok := canonicalRoles[strings.ToLower(strings.TrimSpace(p.Role))]; ok && canonical != p.Role {
		edits = append(edits, auditEdit("role", p.Role, canonical))
		p.Role = canonical
	}

	if !placeholderRe.MatchString(p.FirstName) {
		if stripped := stripHonorifics(p.FirstName); stripped != p.FirstName && stripped != "" {
			edits = append(edits, auditEdit("first_name", p.FirstName, stripped))
			p.FirstName = stripped
		}
	}

	if p.StateOrCountry == "" {
		if m := districtRe.FindStringSubmatch(p.District); m != nil {
			edits = append(edits, auditEdit("state_or_country", "", m[1]))
			p.StateOrCountry = m[1]
		}
	}

	return edits
}

func stripHonorifics(name string) string {
	out := strings.TrimSpace(name)
	for {
		stripped := honorificRe.ReplaceAllString(out, "")
		if stripped == out {
			return out
		}
		out = stripped
	}
}

func auditEdit(field, oldValue, newValue string) *domain.DataQualityCorrection {
	return &domain.DataQualityCorrection{
		TableName:   "politicians",
		FieldName:   field,
		OldValue:    oldValue,
		NewValue:    newValue,
		Confidence:  1.0,
		CorrectedBy: correctedBy,
		Status:      domain.CorrectionApplied,
	}
}
