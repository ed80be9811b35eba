package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/httpclient"
)

const (
	senateBaseURL = "https://efdsearch.senate.gov"

	senatePageLength = 100

	// Search form constants: periodic transaction reports filed by senators.
	senateReportTypePTR = "11"
	senateFilerSenator  = "1"
)

var ptrHrefRe = regexp.MustCompile(`href="(/search/view/ptr/[^"]+)"`)

// SenateAdapter ingests the US Senate EFD search. The site sits behind
// Django CSRF plus a session agreement page, so every run starts with a
// three-step handshake before the paged search POSTs.
type SenateAdapter struct {
	cfg      Config
	client   *httpclient.Client
	archiver *artifacts.Manager
	logger   *zap.Logger

	csrfToken string
	sessionOK bool
}

// NewSenateAdapter creates the Senate adapter with a fresh cookie jar.
func NewSenateAdapter(cfg Config) (*SenateAdapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = senateBaseURL
	}
	return &SenateAdapter{
		cfg:    cfg,
		client: newClient("us_senate", cfg, httpclient.WithCookieJar()),
		logger: cfg.logger(),
	}, nil
}

var _ BatchSource = (*SenateAdapter)(nil)
var _ Archivable = (*SenateAdapter)(nil)
var _ BrowserCapable = (*SenateAdapter)(nil)

// Name returns the source name.
func (s *SenateAdapter) Name() string { return "us_senate" }

// AttachArchiver enables raw payload archival.
func (s *SenateAdapter) AttachArchiver(m *artifacts.Manager) { s.archiver = m }

// searchResponse is the EFD search JSON shape.
type searchResponse struct {
	Result       string     `json:"result"`
	RecordsTotal int        `json:"recordsTotal"`
	Data         [][]string `json:"data"`
}

// Fetch pages through the full PTR search result set.
func (s *SenateAdapter) Fetch(ctx context.Context, lookbackDays int, _ map[string]string) ([]*domain.RawDisclosure, error) {
	var out []*domain.RawDisclosure
	start := 0
	for {
		page, total, err := s.fetchPage(ctx, start, senatePageLength, lookbackDays)
		if err != nil {
			return out, err
		}
		out = append(out, page...)
		start += senatePageLength
		if start >= total {
			return out, nil
		}
	}
}

// FetchBatch fetches one search page.
func (s *SenateAdapter) FetchBatch(ctx context.Context, offset, limit, lookbackDays int) ([]*domain.RawDisclosure, error) {
	if limit <= 0 {
		limit = senatePageLength
	}
	page, _, err := s.fetchPage(ctx, offset, limit, lookbackDays)
	return page, err
}

func (s *SenateAdapter) fetchPage(ctx context.Context, start, length, lookbackDays int) ([]*domain.RawDisclosure, int, error) {
	if !s.sessionOK {
		if err := s.handshake(ctx); err != nil {
			return nil, 0, err
		}
	}

	form := url.Values{
		"start":               {fmt.Sprint(start)},
		"length":              {fmt.Sprint(length)},
		"report_type_id":      {senateReportTypePTR},
		"filer_type_id":       {senateFilerSenator},
		"csrfmiddlewaretoken": {s.csrfToken},
	}
	if lookbackDays > 0 {
		from := time.Now().UTC().AddDate(0, 0, -lookbackDays)
		form.Set("submitted_start_date", from.Format("01/02/2006")+" 00:00:00")
	}

	body, err := s.client.PostForm(ctx, s.cfg.BaseURL+"/search/report/data/", form, map[string]string{
		"Referer":          s.cfg.BaseURL + "/search/",
		"X-Requested-With": "XMLHttpRequest",
	})
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.StatusCode == 403 {
			return nil, 0, fmt.Errorf("senate search returned 403: %w", ErrBlocked)
		}
		return nil, 0, fmt.Errorf("senate search: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 || httpclient.IsHTML(body) {
		return nil, 0, fmt.Errorf("senate search returned non-json page: %w", ErrBlocked)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("senate search response: %w: %v", ErrBlocked, err)
	}

	records := s.rowsToRecords(ctx, resp.Data)
	s.logger.Debug("senate page fetched",
		zap.Int("start", start),
		zap.Int("rows", len(resp.Data)),
		zap.Int("total", resp.RecordsTotal))
	return records, resp.RecordsTotal, nil
}

// FetchViaBrowser pages through the PTR search with a driven browser
// issuing the search POSTs. The PTR detail pages are still fetched over the
// plain client; when those are blocked too, the filing-level records come
// back without transaction fields.
func (s *SenateAdapter) FetchViaBrowser(ctx context.Context, session *BrowserSession, lookbackDays int) ([]*domain.RawDisclosure, error) {
	var out []*domain.RawDisclosure
	start := 0
	for {
		body, err := session.FetchSenatePage(ctx, s.cfg.BaseURL, start, senatePageLength)
		if err != nil {
			return out, fmt.Errorf("senate browser fetch: %w", err)
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return out, fmt.Errorf("senate browser response: %w", err)
		}
		out = append(out, s.rowsToRecords(ctx, resp.Data)...)

		start += senatePageLength
		if start >= resp.RecordsTotal {
			return out, nil
		}
	}
}

// handshake performs the three-step CSRF flow: collect a csrftoken from the
// search page, accept the prohibition agreement to receive a sessionid, then
// refresh the csrftoken for the data endpoint.
func (s *SenateAdapter) handshake(ctx context.Context) error {
	searchURL := s.cfg.BaseURL + "/search/"

	if _, err := s.client.Get(ctx, searchURL, nil); err != nil {
		return fmt.Errorf("senate handshake get: %w", err)
	}
	token := s.cookieValue("csrftoken")
	if token == "" {
		return fmt.Errorf("senate handshake: no csrftoken cookie: %w", ErrBlocked)
	}

	form := url.Values{
		"prohibition_agreement": {"1"},
		"csrfmiddlewaretoken":   {token},
	}
	if _, err := s.client.PostForm(ctx, s.cfg.BaseURL+"/search/home/", form, map[string]string{
		"Referer": searchURL,
	}); err != nil {
		return fmt.Errorf("senate handshake agreement: %w", err)
	}
	if s.cookieValue("sessionid") == "" {
		return fmt.Errorf("senate handshake: no session cookie: %w", ErrBlocked)
	}

	s.csrfToken = s.cookieValue("csrftoken")
	s.sessionOK = true
	return nil
}

func (s *SenateAdapter) cookieValue(name string) string {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return ""
	}
	for _, c := range s.client.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// rowsToRecords converts search rows into raw records, one record per
// transaction on the linked PTR page.
func (s *SenateAdapter) rowsToRecords(ctx context.Context, rows [][]string) []*domain.RawDisclosure {
	var out []*domain.RawDisclosure
	for _, row := range rows {
		out = append(out, s.rowToRecords(ctx, row)...)
	}
	return out
}

// rowToRecords turns one search row into raw records. Rows link to a PTR
// page which holds the actual transaction table; the page is fetched and
// parsed, yielding one record per transaction. When the page cannot be
// fetched or holds no parseable table, the filing-level record is returned
// alone so the run still surfaces the filing.
func (s *SenateAdapter) rowToRecords(ctx context.Context, row []string) []*domain.RawDisclosure {
	if len(row) < 5 {
		return nil
	}
	first := strings.TrimSpace(row[0])
	last := strings.TrimSpace(row[1])
	dateFiled := strings.TrimSpace(row[4])

	m := ptrHrefRe.FindStringSubmatch(row[3])
	if m == nil {
		return nil
	}
	ptrURL := s.cfg.BaseURL + m[1]

	filing := map[string]any{
		"first_name":      first,
		"last_name":       last,
		"politician_name": strings.TrimSpace(first + " " + last),
		"disclosure_date": dateFiled,
		"ptr_url":         ptrURL,
		"chamber":         domain.ChamberSenate,
	}
	newRecord := func(extra map[string]any) *domain.RawDisclosure {
		data := make(map[string]any, len(filing)+len(extra))
		for k, v := range filing {
			data[k] = v
		}
		for k, v := range extra {
			data[k] = v
		}
		return &domain.RawDisclosure{
			Source:     s.Name(),
			SourceType: s.Name(),
			ScrapedAt:  time.Now().UTC(),
			SourceURL:  ptrURL,
			RawData:    data,
		}
	}

	page, err := s.client.Get(ctx, ptrURL, nil)
	if err != nil {
		s.logger.Warn("senate ptr page fetch failed",
			zap.String("url", ptrURL), zap.Error(err))
		return []*domain.RawDisclosure{newRecord(nil)}
	}
	if s.archiver != nil {
		if _, _, err := s.archiver.SaveAPIResponse(ctx, page, s.Name(), ptrURL); err != nil {
			s.logger.Warn("senate ptr archival failed", zap.Error(err))
		}
	}

	txs := parsePTRPage(page)
	if len(txs) == 0 {
		return []*domain.RawDisclosure{newRecord(nil)}
	}
	records := make([]*domain.RawDisclosure, 0, len(txs))
	for _, tx := range txs {
		records = append(records, newRecord(tx))
	}
	return records
}

// parsePTRPage reads the transaction table off a PTR detail page.
// Column order: #, transaction date, owner, ticker, asset name, type, amount.
func parsePTRPage(page []byte) []map[string]any {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var txs []map[string]any
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.TrimSpace(td.Text())
		})
		if len(cells) < 7 {
			return
		}
		txs = append(txs, map[string]any{
			"transaction_date": cells[1],
			"owner":            cells[2],
			"asset_ticker":     cells[3],
			"asset_name":       cells[4],
			"transaction_type": cells[5],
			"amount":           cells[6],
		})
	})
	return txs
}
