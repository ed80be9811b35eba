package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStateRegistryAdapter_FieldMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("year") != "2024" {
			http.Error(w, "missing year", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{
			"filer_name": "Jane Legislator",
			"trans_date": "2024-03-01",
			"filed_date": "2024-03-10",
			"asset_desc": "Acme Corp stock",
			"trans_type": "purchase",
			"amount_range": "$1,001 - $15,000",
			"county": "Travis"
		}]`))
	}))
	defer srv.Close()

	adapter, err := NewStateRegistryAdapter("texas", Config{BaseURL: srv.URL, RequestDelay: time.Millisecond})
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

	data := records[0].RawData
	if data["politician_name"] != "Jane Legislator" {
		t.Errorf("politician_name = %v", data["politician_name"])
	}
	if data["asset_name"] != "Acme Corp stock" {
		t.Errorf("asset_name = %v", data["asset_name"])
	}
	if data["state"] != "TX" {
		t.Errorf("state = %v, want TX", data["state"])
	}
	// Unmapped upstream fields are preserved.
	if data["county"] != "Travis" {
		t.Errorf("county = %v", data["county"])
	}
}

func TestNewStateRegistryAdapter_Unknown(t *testing.T) {
	if _, err := NewStateRegistryAdapter("florida", Config{}); err == nil {
		t.Fatal("want error for unregistered state")
	}
}
