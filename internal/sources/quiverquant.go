package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/httpclient"
)

const (
	quiverAPIBaseURL = "https://api.quiverquant.com"
	quiverWebBaseURL = "https://www.quiverquant.com"
)

// quiverFieldMap translates API field names onto the internal record schema.
var quiverFieldMap = map[string]string{
	"Representative":  "politician_name",
	"Ticker":          "asset_ticker",
	"TransactionDate": "transaction_date",
	"ReportDate":      "disclosure_date",
	"Transaction":     "transaction_type",
	"Range":           "amount",
	"Amount":          "amount",
	"House":           "chamber",
	"Party":           "party",
	"BioGuideID":      "bioguide_id",
}

// QuiverQuantAdapter ingests congressional trades from the QuiverQuant API,
// falling back to a scrape of the public trading page when no key is set.
type QuiverQuantAdapter struct {
	cfg      Config
	client   *httpclient.Client
	archiver *artifacts.Manager
	logger   *zap.Logger
}

// NewQuiverQuantAdapter creates the QuiverQuant adapter.
func NewQuiverQuantAdapter(cfg Config) (*QuiverQuantAdapter, error) {
	if cfg.BaseURL == "" {
		if cfg.APIKey != "" {
			cfg.BaseURL = quiverAPIBaseURL
		} else {
			cfg.BaseURL = quiverWebBaseURL
		}
	}
	return &QuiverQuantAdapter{
		cfg:    cfg,
		client: newClient("quiverquant", cfg),
		logger: cfg.logger(),
	}, nil
}

var _ Source = (*QuiverQuantAdapter)(nil)
var _ Archivable = (*QuiverQuantAdapter)(nil)

// Name returns the source name.
func (q *QuiverQuantAdapter) Name() string { return "quiverquant" }

// AttachArchiver enables whole-response archival in API mode.
func (q *QuiverQuantAdapter) AttachArchiver(m *artifacts.Manager) { q.archiver = m }

// Fetch pulls live congressional trades. API mode when a key is configured,
// web scrape otherwise.
func (q *QuiverQuantAdapter) Fetch(ctx context.Context, lookbackDays int, _ map[string]string) ([]*domain.RawDisclosure, error) {
	if q.cfg.APIKey != "" {
		return q.fetchAPI(ctx, lookbackDays)
	}
	return q.fetchWeb(ctx)
}

func (q *QuiverQuantAdapter) fetchAPI(ctx context.Context, lookbackDays int) ([]*domain.RawDisclosure, error) {
	endpoint := q.cfg.BaseURL + "/beta/live/congresstrading"
	body, err := q.client.Get(ctx, endpoint, map[string]string{
		"Authorization": "Token " + q.cfg.APIKey,
		"Accept":        "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("quiverquant api: %w", err)
	}

	if q.archiver != nil {
		if _, _, err := q.archiver.SaveAPIResponse(ctx, body, q.Name(), endpoint); err != nil {
			q.logger.Warn("quiverquant response archival failed", zap.Error(err))
		}
	}

	rows, err := decodeQuiverRows(body)
	if err != nil {
		return nil, err
	}

	cutoff := time.Time{}
	if lookbackDays > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -lookbackDays)
	}

	records := make([]*domain.RawDisclosure, 0, len(rows))
	for _, row := range rows {
		rec := q.mapRow(row)
		if !cutoff.IsZero() && recordBefore(rec, cutoff) {
			continue
		}
		records = append(records, rec)
	}
	q.logger.Info("quiverquant api fetched",
		zap.Int("rows", len(rows)),
		zap.Int("kept", len(records)))
	return records, nil
}

// decodeQuiverRows accepts either a bare array or an object wrapping the
// array under trades/data/results.
func decodeQuiverRows(body []byte) ([]map[string]any, error) {
	var arr []map[string]any
	if err := json.Unmarshal(body, &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("quiverquant response is not json: %w", err)
	}
	for _, key := range []string{"trades", "data", "results"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("quiverquant %s array: %w", key, err)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("quiverquant response has no trade array")
}

// mapRow renames upstream fields onto the internal schema. Unmapped fields
// are carried through untouched for archival.
func (q *QuiverQuantAdapter) mapRow(row map[string]any) *domain.RawDisclosure {
	data := make(map[string]any, len(row))
	for k, v := range row {
		if k == "Range" || k == "Amount" {
			continue
		}
		if mapped, ok := quiverFieldMap[k]; ok {
			data[mapped] = v
			continue
		}
		data[k] = v
	}

	// Range carries the bucket text; Amount is the fallback on older rows.
	if v, ok := row["Range"].(string); ok && v != "" {
		data["amount"] = v
	} else if v, ok := row["Amount"]; ok {
		data["amount"] = v
	}

	// Quiver rows identify assets by ticker only.
	if _, ok := data["asset_name"]; !ok {
		if company, ok := row["Company"].(string); ok && company != "" {
			data["asset_name"] = company
		} else if ticker, ok := data["asset_ticker"].(string); ok {
			data["asset_name"] = ticker
		}
	}

	sourceURL, _ := row["ReportLink"].(string)
	return &domain.RawDisclosure{
		Source:     q.Name(),
		SourceType: q.Name(),
		ScrapedAt:  time.Now().UTC(),
		SourceURL:  sourceURL,
		RawData:    data,
	}
}

func recordBefore(rec *domain.RawDisclosure, cutoff time.Time) bool {
	s, _ := rec.RawData["transaction_date"].(string)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return false
	}
	return t.Before(cutoff)
}

// fetchWeb scrapes the public congress-trading table.
// Column order: politician, ticker, transaction, date.
func (q *QuiverQuantAdapter) fetchWeb(ctx context.Context) ([]*domain.RawDisclosure, error) {
	body, err := q.client.Get(ctx, q.cfg.BaseURL+"/congresstrading/", nil)
	if err != nil {
		return nil, fmt.Errorf("quiverquant page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse quiverquant page: %w", err)
	}

	var out []*domain.RawDisclosure
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.TrimSpace(td.Text())
		})
		if len(cells) < 4 {
			return
		}
		out = append(out, &domain.RawDisclosure{
			Source:     q.Name(),
			SourceType: q.Name(),
			ScrapedAt:  time.Now().UTC(),
			RawData: map[string]any{
				"politician_name":  cells[0],
				"asset_ticker":     cells[1],
				"asset_name":       cells[1],
				"transaction_type": cells[2],
				"transaction_date": cells[3],
				"disclosure_date":  cells[3],
			},
		})
	})
	return out, nil
}
