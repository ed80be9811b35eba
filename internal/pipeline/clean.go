package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/observability"
)

// requiredFields are the raw-record keys a cleanable record must carry.
var requiredFields = []string{
	"politician_name",
	"transaction_date",
	"disclosure_date",
	"asset_name",
	"transaction_type",
}

// dateLayouts is the ordered list of accepted date formats. First match wins.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// typeSynonyms maps raw transaction verbs onto canonical types.
var typeSynonyms = map[string]string{
	"buy":         "purchase",
	"bought":      "purchase",
	"purchase":    "purchase",
	"sell":        "sale",
	"sold":        "sale",
	"sale":        "sale",
	"swap":        "exchange",
	"trade":       "exchange",
	"exchange":    "exchange",
	"option buy":  "option_purchase",
	"option sell": "option_sale",
}

// CleaningStage validates raw records and normalizes their fields.
type CleaningStage struct {
	removeDuplicates bool
	strictValidation bool
}

// NewCleaningStage creates the clean stage.
func NewCleaningStage(removeDuplicates, strictValidation bool) *CleaningStage {
	return &CleaningStage{
		removeDuplicates: removeDuplicates,
		strictValidation: strictValidation,
	}
}

// Name returns the stage name.
func (s *CleaningStage) Name() string { return "clean" }

// Process validates and normalizes each raw record. Rejections count as
// skipped; the stage fails only when nothing survives.
func (s *CleaningStage) Process(ctx context.Context, data []*domain.RawDisclosure, pc *Context) Result[*domain.CleanedDisclosure] {
	start := time.Now()
	m := Metrics{RecordsInput: len(data)}
	seen := make(map[string]struct{})

	var out []*domain.CleanedDisclosure
	for _, raw := range data {
		if err := ctx.Err(); err != nil {
			m.Errors = append(m.Errors, err.Error())
			m.RecordsFailed++
			break
		}

		cleaned, note := s.cleanOne(raw)
		if cleaned == nil {
			m.RecordsSkipped++
			if note != "" {
				m.Warnings = append(m.Warnings, note)
			}
			continue
		}
		if note != "" {
			m.Warnings = append(m.Warnings, note)
		}

		if s.removeDuplicates {
			key := dedupKey(cleaned)
			if _, dup := seen[key]; dup {
				m.RecordsSkipped++
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, cleaned)
	}

	m.RecordsOutput = len(out)
	m.DurationSeconds = time.Since(start).Seconds()
	status := statusFor(m)

	pc.Logger.Info("clean stage finished",
		zap.String("source", pc.SourceName),
		zap.Int("input", m.RecordsInput),
		zap.Int("output", m.RecordsOutput),
		zap.Int("skipped", m.RecordsSkipped),
		zap.String("status", string(status)))
	observability.RecordStage(s.Name(), m.RecordsOutput, m.RecordsSkipped, m.RecordsFailed, m.DurationSeconds)

	return Result[*domain.CleanedDisclosure]{
		Status:    status,
		Data:      out,
		Metrics:   m,
		StageName: s.Name(),
	}
}

// cleanOne validates one raw record. A nil result means rejection with the
// reason as the second return; a non-nil result may still carry a warning
// note for suspicious but acceptable data.
func (s *CleaningStage) cleanOne(raw *domain.RawDisclosure) (*domain.CleanedDisclosure, string) {
	for _, field := range requiredFields {
		if cleanString(stringField(raw.RawData, field)) == "" {
			return nil, fmt.Sprintf("missing required field %s", field)
		}
	}

	txDate, ok := parseDate(stringField(raw.RawData, "transaction_date"))
	if !ok {
		return nil, fmt.Sprintf("unparseable transaction_date %q", stringField(raw.RawData, "transaction_date"))
	}
	discDate, ok := parseDate(stringField(raw.RawData, "disclosure_date"))
	if !ok {
		return nil, fmt.Sprintf("unparseable disclosure_date %q", stringField(raw.RawData, "disclosure_date"))
	}

	txType, known := normalizeTransactionType(stringField(raw.RawData, "transaction_type"))
	if s.strictValidation && !known {
		return nil, fmt.Sprintf("unknown transaction_type %q", txType)
	}

	// A transaction dated long after its disclosure is suspect but filed
	// paperwork is filed paperwork; keep the record and note it.
	var note string
	if txDate.After(discDate.AddDate(0, 0, 90)) {
		note = fmt.Sprintf("transaction_date %s is more than 90 days after disclosure_date %s",
			txDate.Format("2006-01-02"), discDate.Format("2006-01-02"))
	}

	return &domain.CleanedDisclosure{
		PoliticianName:   cleanString(stringField(raw.RawData, "politician_name")),
		TransactionDate:  txDate,
		DisclosureDate:   discDate,
		AssetName:        cleanString(stringField(raw.RawData, "asset_name")),
		TransactionType:  txType,
		AssetTicker:      cleanString(stringField(raw.RawData, "asset_ticker")),
		AssetType:        cleanString(stringField(raw.RawData, "asset_type")),
		AmountText:       cleanString(stringField(raw.RawData, "amount")),
		SourceURL:        raw.SourceURL,
		SourceDocumentID: raw.SourceDocumentID,
		Source:           raw.Source,
		SourceType:       raw.SourceType,
		RawData:          raw.RawData,
	}, note
}

// normalizeTransactionType lowercases and maps synonyms. The second return
// reports whether the result is in the canonical set.
func normalizeTransactionType(raw string) (string, bool) {
	lower := strings.ToLower(cleanString(raw))
	if mapped, ok := typeSynonyms[lower]; ok {
		return mapped, true
	}
	return lower, domain.TransactionType(lower).IsValid()
}

// parseDate tries each accepted layout in order.
func parseDate(s string) (time.Time, bool) {
	s = cleanString(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanString trims, collapses internal whitespace and strips null bytes.
func cleanString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.Join(strings.Fields(s), " ")
}

// dedupKey is the stable run-local duplicate hash.
func dedupKey(c *domain.CleanedDisclosure) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		c.PoliticianName,
		c.TransactionDate.Format("2006-01-02"),
		c.AssetName,
		c.TransactionType,
		c.AmountText,
	}, "|")))
	return hex.EncodeToString(h[:])
}

// stringField reads a raw map value as a string.
func stringField(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
