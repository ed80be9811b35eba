package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/httpclient"
)

// stateRegistry describes one state's disclosure search endpoint and how its
// response fields map onto the internal schema.
type stateRegistry struct {
	name     string
	state    string
	baseURL  string
	path     string
	fieldMap map[string]string
}

// stateRegistries is the table of supported state sources. Each endpoint
// returns a JSON array of filing objects.
var stateRegistries = map[string]stateRegistry{
	domain.SourceCalifornia.String(): {
		name:    domain.SourceCalifornia.String(),
		state:   "CA",
		baseURL: "https://netfile.com",
		path:    "/Connect2/api/public/campaign/export/cal201/transaction/year",
		fieldMap: map[string]string{
			"filerName":       "politician_name",
			"transactionDate": "transaction_date",
			"filingDate":      "disclosure_date",
			"description":     "asset_name",
			"transactionType": "transaction_type",
			"amount":          "amount",
		},
	},
	domain.SourceNewYork.String(): {
		name:    domain.SourceNewYork.String(),
		state:   "NY",
		baseURL: "https://onlineapps.jcope.ny.gov",
		path:    "/JCOPESearch/api/disclosures",
		fieldMap: map[string]string{
			"FilerName":       "politician_name",
			"TransactionDate": "transaction_date",
			"FilingDate":      "disclosure_date",
			"AssetName":       "asset_name",
			"TransactionType": "transaction_type",
			"AmountRange":     "amount",
		},
	},
	domain.SourceTexas.String(): {
		name:    domain.SourceTexas.String(),
		state:   "TX",
		baseURL: "https://www.ethics.state.tx.us",
		path:    "/search/pfs/api/filings",
		fieldMap: map[string]string{
			"filer_name":   "politician_name",
			"trans_date":   "transaction_date",
			"filed_date":   "disclosure_date",
			"asset_desc":   "asset_name",
			"trans_type":   "transaction_type",
			"amount_range": "amount",
		},
	},
}

// StateRegistryAdapter is the shared table-driven adapter for US state
// disclosure registries.
type StateRegistryAdapter struct {
	cfg      Config
	reg      stateRegistry
	client   *httpclient.Client
	archiver *artifacts.Manager
	logger   *zap.Logger
}

// NewStateRegistryAdapter creates the adapter for one registered state.
func NewStateRegistryAdapter(sourceType string, cfg Config) (*StateRegistryAdapter, error) {
	reg, ok := stateRegistries[sourceType]
	if !ok {
		return nil, fmt.Errorf("unknown state registry %q", sourceType)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = reg.baseURL
	}
	return &StateRegistryAdapter{
		cfg:    cfg,
		reg:    reg,
		client: newClient(reg.name, cfg),
		logger: cfg.logger(),
	}, nil
}

var _ Source = (*StateRegistryAdapter)(nil)
var _ Archivable = (*StateRegistryAdapter)(nil)

// Name returns the source name.
func (s *StateRegistryAdapter) Name() string { return s.reg.name }

// AttachArchiver enables raw response archival.
func (s *StateRegistryAdapter) AttachArchiver(m *artifacts.Manager) { s.archiver = m }

// Fetch pulls the state's filing feed and maps fields onto the internal
// schema. Unknown upstream fields are carried through untouched.
func (s *StateRegistryAdapter) Fetch(ctx context.Context, _ int, params map[string]string) ([]*domain.RawDisclosure, error) {
	endpoint := s.cfg.BaseURL + s.reg.path
	if year := params["year"]; year != "" {
		endpoint += "?year=" + year
	}

	body, err := s.client.Get(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("%s registry: %w", s.reg.name, err)
	}

	if s.archiver != nil {
		if _, _, err := s.archiver.SaveAPIResponse(ctx, body, s.reg.name, endpoint); err != nil {
			s.logger.Warn("state registry archival failed",
				zap.String("source", s.reg.name), zap.Error(err))
		}
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse %s registry response: %w", s.reg.name, err)
	}

	records := make([]*domain.RawDisclosure, 0, len(rows))
	for _, row := range rows {
		data := make(map[string]any, len(row)+1)
		for k, v := range row {
			if mapped, ok := s.reg.fieldMap[k]; ok {
				data[mapped] = v
				continue
			}
			data[k] = v
		}
		data["state"] = s.reg.state

		records = append(records, &domain.RawDisclosure{
			Source:     s.reg.name,
			SourceType: s.reg.name,
			ScrapedAt:  time.Now().UTC(),
			SourceURL:  endpoint,
			RawData:    data,
		})
	}
	return records, nil
}
