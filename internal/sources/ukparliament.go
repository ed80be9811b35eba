package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/httpclient"
)

const ukParliamentBaseURL = "https://interests-api.parliament.uk"

const ukPageSize = 50

// UKParliamentAdapter ingests the Register of Members' Financial Interests
// through the official interests API.
type UKParliamentAdapter struct {
	cfg      Config
	client   *httpclient.Client
	archiver *artifacts.Manager
	logger   *zap.Logger
}

// NewUKParliamentAdapter creates the UK Parliament adapter.
func NewUKParliamentAdapter(cfg Config) (*UKParliamentAdapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ukParliamentBaseURL
	}
	return &UKParliamentAdapter{
		cfg:    cfg,
		client: newClient("uk_parliament", cfg),
		logger: cfg.logger(),
	}, nil
}

var _ BatchSource = (*UKParliamentAdapter)(nil)
var _ Archivable = (*UKParliamentAdapter)(nil)

// Name returns the source name.
func (u *UKParliamentAdapter) Name() string { return "uk_parliament" }

// AttachArchiver enables raw response archival.
func (u *UKParliamentAdapter) AttachArchiver(m *artifacts.Manager) { u.archiver = m }

type ukInterestsResponse struct {
	Items        []ukInterest `json:"items"`
	TotalResults int          `json:"totalResults"`
}

type ukInterest struct {
	ID               int    `json:"id"`
	Summary          string `json:"summary"`
	RegistrationDate string `json:"registrationDate"`
	Category         struct {
		Name string `json:"name"`
	} `json:"category"`
	Member struct {
		NameDisplayAs string `json:"nameDisplayAs"`
		House         string `json:"house"`
	} `json:"member"`
}

// Fetch pages through all registered interests inside the lookback window.
func (u *UKParliamentAdapter) Fetch(ctx context.Context, lookbackDays int, _ map[string]string) ([]*domain.RawDisclosure, error) {
	var out []*domain.RawDisclosure
	skip := 0
	for {
		page, total, err := u.fetchPage(ctx, skip, ukPageSize, lookbackDays)
		if err != nil {
			return out, err
		}
		out = append(out, page...)
		skip += ukPageSize
		if skip >= total {
			return out, nil
		}
	}
}

// FetchBatch fetches one page of registered interests.
func (u *UKParliamentAdapter) FetchBatch(ctx context.Context, offset, limit, lookbackDays int) ([]*domain.RawDisclosure, error) {
	if limit <= 0 {
		limit = ukPageSize
	}
	page, _, err := u.fetchPage(ctx, offset, limit, lookbackDays)
	return page, err
}

func (u *UKParliamentAdapter) fetchPage(ctx context.Context, skip, take, lookbackDays int) ([]*domain.RawDisclosure, int, error) {
	endpoint := fmt.Sprintf("%s/api/v1/Interests?Skip=%d&Take=%d", u.cfg.BaseURL, skip, take)
	if lookbackDays > 0 {
		from := time.Now().UTC().AddDate(0, 0, -lookbackDays)
		endpoint += "&RegisteredSince=" + from.Format("2006-01-02")
	}

	body, err := u.client.Get(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, 0, fmt.Errorf("uk interests api: %w", err)
	}

	if u.archiver != nil {
		if _, _, err := u.archiver.SaveAPIResponse(ctx, body, u.Name(), endpoint); err != nil {
			u.logger.Warn("uk interests archival failed", zap.Error(err))
		}
	}

	var resp ukInterestsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("parse uk interests response: %w", err)
	}

	records := make([]*domain.RawDisclosure, 0, len(resp.Items))
	for _, item := range resp.Items {
		records = append(records, &domain.RawDisclosure{
			Source:           u.Name(),
			SourceType:       u.Name(),
			ScrapedAt:        time.Now().UTC(),
			SourceDocumentID: fmt.Sprint(item.ID),
			RawData: map[string]any{
				"politician_name":  item.Member.NameDisplayAs,
				"house":            item.Member.House,
				"asset_name":       item.Summary,
				"category":         item.Category.Name,
				"transaction_type": categoryToType(item.Category.Name),
				"transaction_date": item.RegistrationDate,
				"disclosure_date":  item.RegistrationDate,
				"interest_id":      item.ID,
			},
		})
	}
	return records, resp.TotalResults, nil
}

// categoryToType maps register categories onto transaction types. Most
// entries are holdings rather than trades; shareholdings count as purchases
// for dataset purposes, anything else passes the category through lowered.
func categoryToType(category string) string {
	lower := strings.ToLower(category)
	if strings.Contains(lower, "shareholding") {
		return "purchase"
	}
	return strings.ReplaceAll(strings.TrimSpace(lower), " ", "_")
}
