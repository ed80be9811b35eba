package sources

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/httpclient"
	"disclosure-lab/internal/pdftext"
)

const houseBaseURL = "https://disclosures-clerk.house.gov"

// houseIndexFields is the minimum column count of a usable index line.
const houseIndexFields = 9

// HouseAdapter ingests the US House financial-disclosure ZIP index.
// The yearly archive holds one tab-separated {year}FD.txt member listing
// every filing; each line points at a PDF under /public_disc/financial-pdfs/.
type HouseAdapter struct {
	cfg       Config
	client    *httpclient.Client
	extractor pdftext.Extractor
	archiver  *artifacts.Manager
	logger    *zap.Logger
}

// NewHouseAdapter creates the House adapter.
func NewHouseAdapter(cfg Config) (*HouseAdapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = houseBaseURL
	}
	return &HouseAdapter{
		cfg:       cfg,
		client:    newClient("us_house", cfg),
		extractor: pdftext.NewTextLayerExtractor(),
		logger:    cfg.logger(),
	}, nil
}

var _ Source = (*HouseAdapter)(nil)
var _ Archivable = (*HouseAdapter)(nil)

// Name returns the source name.
func (h *HouseAdapter) Name() string { return "us_house" }

// AttachArchiver enables raw PDF archival.
func (h *HouseAdapter) AttachArchiver(m *artifacts.Manager) { h.archiver = m }

// SetExtractor replaces the PDF text extractor, e.g. with an OCR backend.
func (h *HouseAdapter) SetExtractor(e pdftext.Extractor) { h.extractor = e }

// Fetch downloads the yearly ZIP index and yields one record per filing.
// With DownloadPDFs enabled, each filing's PDF is fetched and its extracted
// transactions are yielded as individual records instead.
func (h *HouseAdapter) Fetch(ctx context.Context, lookbackDays int, params map[string]string) ([]*domain.RawDisclosure, error) {
	year := params["year"]
	if year == "" {
		year = strconv.Itoa(time.Now().UTC().Year())
	}

	zipURL := fmt.Sprintf("%s/public_disc/financial-pdfs/%sFD.ZIP", h.cfg.BaseURL, year)
	data, err := h.client.Get(ctx, zipURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download house index: %w", err)
	}

	index, err := readZipMember(data, year+"FD.txt")
	if err != nil {
		return nil, fmt.Errorf("unpack house index: %w", err)
	}

	filings := h.parseIndex(index, year)
	h.logger.Info("house index parsed",
		zap.String("year", year),
		zap.Int("filings", len(filings)))

	if !h.cfg.DownloadPDFs {
		return filings, nil
	}
	return h.expandFilings(ctx, filings)
}

// parseIndex reads the tab-separated index member. The first line is a
// header and is skipped; lines with fewer than nine fields are malformed
// filler and are dropped.
func (h *HouseAdapter) parseIndex(index []byte, year string) []*domain.RawDisclosure {
	lines := strings.Split(string(index), "\n")
	var out []*domain.RawDisclosure

	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < houseIndexFields {
			continue
		}

		// Doc ids in the raw file carry trailing carriage returns.
		docID := strings.TrimRight(strings.TrimSpace(fields[8]), "\r")
		if docID == "" {
			continue
		}
		pdfURL := fmt.Sprintf("%s/public_disc/financial-pdfs/%s/%s.pdf", h.cfg.BaseURL, year, docID)

		first := strings.TrimSpace(fields[2])
		last := strings.TrimSpace(fields[1])

		out = append(out, &domain.RawDisclosure{
			Source:           h.Name(),
			SourceType:       h.Name(),
			ScrapedAt:        time.Now().UTC(),
			SourceURL:        pdfURL,
			SourceDocumentID: docID,
			RawData: map[string]any{
				"prefix":          strings.TrimSpace(fields[0]),
				"last_name":       last,
				"first_name":      first,
				"suffix":          strings.TrimSpace(fields[3]),
				"filing_type":     strings.TrimSpace(fields[4]),
				"state_district":  strings.TrimSpace(fields[5]),
				"year":            strings.TrimSpace(fields[6]),
				"filing_date":     strings.TrimSpace(fields[7]),
				"doc_id":          docID,
				"pdf_url":         pdfURL,
				"politician_name": strings.TrimSpace(first + " " + last),
				"disclosure_date": strings.TrimSpace(fields[7]),
				"chamber":         domain.ChamberHouse,
			},
		})
	}
	return out
}

// expandFilings downloads each filing PDF and replaces the filing record
// with one record per extracted transaction. Filings whose PDF cannot be
// fetched or yields no text keep their index record untouched.
func (h *HouseAdapter) expandFilings(ctx context.Context, filings []*domain.RawDisclosure) ([]*domain.RawDisclosure, error) {
	var out []*domain.RawDisclosure
	for _, filing := range filings {
		pdfURL, _ := filing.RawData["pdf_url"].(string)
		pdf, err := h.client.Get(ctx, pdfURL, nil)
		if err != nil {
			h.logger.Warn("house pdf download failed",
				zap.String("url", pdfURL), zap.Error(err))
			out = append(out, filing)
			continue
		}

		if h.archiver != nil {
			name, _ := filing.RawData["politician_name"].(string)
			txDate := parseHouseDate(filing.RawData["filing_date"])
			if _, _, err := h.archiver.SavePDF(ctx, pdf, 0, name, pdfURL, txDate, h.Name()); err != nil {
				h.logger.Warn("house pdf archival failed",
					zap.String("url", pdfURL), zap.Error(err))
			}
		}

		text := h.extractor.ExtractText(ctx, pdf)
		txs := pdftext.ParseTransactions(text)
		if len(txs) == 0 {
			out = append(out, filing)
			continue
		}

		for _, tx := range txs {
			rec := &domain.RawDisclosure{
				Source:           filing.Source,
				SourceType:       filing.SourceType,
				ScrapedAt:        filing.ScrapedAt,
				SourceURL:        filing.SourceURL,
				SourceDocumentID: filing.SourceDocumentID,
				RawData:          map[string]any{},
			}
			for k, v := range filing.RawData {
				rec.RawData[k] = v
			}
			rec.RawData["asset_name"] = tx.AssetName
			rec.RawData["asset_ticker"] = tx.Ticker
			rec.RawData["transaction_type"] = tx.TransactionType
			rec.RawData["transaction_date"] = tx.TransactionDate.Format("2006-01-02")
			if tx.AmountMin != nil || tx.AmountMax != nil || tx.AmountExact != nil {
				rec.RawData["amount"] = amountText(tx.AmountMin, tx.AmountMax, tx.AmountExact)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// readZipMember extracts one named member from an in-memory ZIP archive.
func readZipMember(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip member %s: %w", f.Name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("zip member %s not found", name)
}

func parseHouseDate(v any) time.Time {
	s, _ := v.(string)
	if t, err := time.Parse("01/02/2006", s); err == nil {
		return t
	}
	return time.Now().UTC()
}

// amountText renders parsed bounds back into disclosure range text so the
// cleaning stage sees the same shape as API sources.
func amountText(min, max, exact *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("$%s - $%s", commas(*min), commas(*max))
	case exact != nil:
		return "$" + commas(*exact)
	case min != nil:
		return "Over $" + commas(*min-1)
	case max != nil:
		return "Under $" + commas(*max)
	}
	return ""
}

// commas formats a dollar figure with thousands separators.
func commas(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart := s
	var frac string
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String() + frac
}
