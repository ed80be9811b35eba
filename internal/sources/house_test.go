package sources

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func houseZip(t *testing.T, member string, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(member)
	if err != nil {
		t.Fatalf("create zip member: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("write zip member: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestHouseAdapter_Fetch(t *testing.T) {
	index := "Prefix\tLast\tFirst\tSuffix\tFilingType\tStateDst\tYear\tFilingDate\tDocID\n" +
		"Hon.\tPelosi\tNancy\t\tP\tCA-11\t2024\t01/15/2024\t10020001\r\n"
	archive := houseZip(t, "2024FD.txt", index)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public_disc/financial-pdfs/2024FD.ZIP" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive)
	}))
	defer srv.Close()

	adapter, err := NewHouseAdapter(Config{BaseURL: srv.URL, RequestDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	records, err := adapter.Fetch(context.Background(), 0, map[string]string{"year": "2024"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	rec := records[0]
	if got := rec.RawData["politician_name"]; got != "Nancy Pelosi" {
		t.Errorf("politician_name = %v, want Nancy Pelosi", got)
	}
	if got := rec.RawData["first_name"]; got != "Nancy" {
		t.Errorf("first_name = %v", got)
	}
	if got := rec.RawData["last_name"]; got != "Pelosi" {
		t.Errorf("last_name = %v", got)
	}
	if got := rec.RawData["state_district"]; got != "CA-11" {
		t.Errorf("state_district = %v", got)
	}
	if got := rec.RawData["doc_id"]; got != "10020001" {
		t.Errorf("doc_id = %v, want carriage return stripped", got)
	}
	if !strings.HasSuffix(rec.SourceURL, "/public_disc/financial-pdfs/2024/10020001.pdf") {
		t.Errorf("SourceURL = %q", rec.SourceURL)
	}
	if got := rec.RawData["disclosure_date"]; got != "01/15/2024" {
		t.Errorf("disclosure_date = %v", got)
	}
}

func TestHouseAdapter_SkipsShortLines(t *testing.T) {
	index := "Prefix\tLast\tFirst\tSuffix\tFilingType\tStateDst\tYear\tFilingDate\tDocID\n" +
		"junk line without tabs\n" +
		"\n" +
		"Hon.\tKhanna\tRo\t\tP\tCA-17\t2024\t02/01/2024\t10020002\n"
	archive := houseZip(t, "2024FD.txt", index)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	adapter, err := NewHouseAdapter(Config{BaseURL: srv.URL, RequestDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	records, err := adapter.Fetch(context.Background(), 0, map[string]string{"year": "2024"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if got := records[0].RawData["politician_name"]; got != "Ro Khanna" {
		t.Errorf("politician_name = %v", got)
	}
}

func TestReadZipMember_Missing(t *testing.T) {
	archive := houseZip(t, "2023FD.txt", "header\n")
	if _, err := readZipMember(archive, "2024FD.txt"); err == nil {
		t.Fatal("want error for missing member")
	}
}
