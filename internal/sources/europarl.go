package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/httpclient"
)

const europarlBaseURL = "https://www.europarl.europa.eu"

var dpiDateRe = regexp.MustCompile(`(\d{8})`)

// EuroparlAdapter ingests MEP declarations of private interests. The member
// list comes as XML; each member's declarations page links DPI PDFs.
type EuroparlAdapter struct {
	cfg      Config
	client   *httpclient.Client
	archiver *artifacts.Manager
	logger   *zap.Logger
}

// NewEuroparlAdapter creates the EU Parliament adapter.
func NewEuroparlAdapter(cfg Config) (*EuroparlAdapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = europarlBaseURL
	}
	return &EuroparlAdapter{
		cfg:    cfg,
		client: newClient("eu_parliament", cfg),
		logger: cfg.logger(),
	}, nil
}

var _ Source = (*EuroparlAdapter)(nil)
var _ Archivable = (*EuroparlAdapter)(nil)

// Name returns the source name.
func (e *EuroparlAdapter) Name() string { return "eu_parliament" }

// AttachArchiver enables DPI PDF archival.
func (e *EuroparlAdapter) AttachArchiver(m *artifacts.Manager) { e.archiver = m }

type mepList struct {
	MEPs []mepEntry `xml:"mep"`
}

type mepEntry struct {
	ID             string `xml:"id"`
	FullName       string `xml:"fullName"`
	Country        string `xml:"country"`
	PoliticalGroup string `xml:"politicalGroup"`
	NationalGroup  string `xml:"nationalPoliticalGroup"`
}

// Fetch lists current and outgoing MEPs and collects their DPI declarations.
func (e *EuroparlAdapter) Fetch(ctx context.Context, _ int, params map[string]string) ([]*domain.RawDisclosure, error) {
	meps, err := e.listMEPs(ctx, e.cfg.BaseURL+"/meps/en/full-list/xml")
	if err != nil {
		return nil, err
	}
	if outgoing, err := e.listMEPs(ctx, e.cfg.BaseURL+"/meps/en/directory/xml?leg=outgoing"); err == nil {
		meps = append(meps, outgoing...)
	} else {
		e.logger.Warn("outgoing mep list unavailable", zap.Error(err))
	}

	var out []*domain.RawDisclosure
	for _, mep := range meps {
		decls, err := e.fetchDeclarations(ctx, mep)
		if err != nil {
			e.logger.Warn("mep declarations fetch failed",
				zap.String("mep", mep.FullName), zap.Error(err))
			continue
		}
		out = append(out, decls...)
	}
	return out, nil
}

func (e *EuroparlAdapter) listMEPs(ctx context.Context, listURL string) ([]mepEntry, error) {
	body, err := e.client.Get(ctx, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch mep list: %w", err)
	}
	var list mepList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse mep list: %w", err)
	}
	return list.MEPs, nil
}

// fetchDeclarations scans a member's declarations page for DPI PDF anchors.
// Anchor order is the site's own: the original declaration first, then each
// numbered modification, so the anchor index doubles as the revision index.
func (e *EuroparlAdapter) fetchDeclarations(ctx context.Context, mep mepEntry) ([]*domain.RawDisclosure, error) {
	declURL := fmt.Sprintf("%s/meps/en/%s/%s/declarations", e.cfg.BaseURL, mep.ID, mepSlug(mep.FullName))
	page, err := e.client.Get(ctx, declURL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse declarations page: %w", err)
	}

	var out []*domain.RawDisclosure
	revision := 0
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(href, ".pdf") || !strings.Contains(href, "/DPI/") {
			return
		}
		pdfURL := href
		if strings.HasPrefix(href, "/") {
			pdfURL = e.cfg.BaseURL + href
		}

		declDate := ""
		if m := dpiDateRe.FindStringSubmatch(href); m != nil {
			declDate = m[1]
		}

		rec := &domain.RawDisclosure{
			Source:           e.Name(),
			SourceType:       e.Name(),
			ScrapedAt:        time.Now().UTC(),
			SourceURL:        pdfURL,
			SourceDocumentID: mep.ID,
			RawData: map[string]any{
				"mep_id":           mep.ID,
				"politician_name":  mep.FullName,
				"country":          mep.Country,
				"political_group":  mep.PoliticalGroup,
				"national_group":   mep.NationalGroup,
				"pdf_url":          pdfURL,
				"declaration_date": declDate,
				"revision":         revision,
			},
		}
		revision++

		if e.archiver != nil {
			e.archivePDF(ctx, rec, pdfURL, declDate)
		}
		out = append(out, rec)
	})
	return out, nil
}

// archivePDF downloads a DPI PDF, verifies the magic bytes and stores it.
func (e *EuroparlAdapter) archivePDF(ctx context.Context, rec *domain.RawDisclosure, pdfURL, declDate string) {
	pdf, err := e.client.Get(ctx, pdfURL, nil)
	if err != nil {
		e.logger.Warn("dpi pdf download failed", zap.String("url", pdfURL), zap.Error(err))
		return
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		e.logger.Warn("dpi url did not return a pdf", zap.String("url", pdfURL))
		return
	}

	date := time.Now().UTC()
	if t, err := time.Parse("20060102", declDate); err == nil {
		date = t
	}
	name, _ := rec.RawData["politician_name"].(string)
	if _, _, err := e.archiver.SavePDF(ctx, pdf, 0, name, pdfURL, date, e.Name()); err != nil {
		e.logger.Warn("dpi pdf archival failed", zap.String("url", pdfURL), zap.Error(err))
	}
}

// mepSlug builds the URL slug for a member: accents folded to ASCII and
// whitespace collapsed into "+".
func mepSlug(fullName string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, fullName)
	if err != nil {
		folded = fullName
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), "+")
}
