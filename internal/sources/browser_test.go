package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// devtoolsEmulator answers the DevTools protocol over a websocket:
// Page.navigate gets an empty result, odd Runtime.evaluate calls (the
// agreement form script) return "", and even ones return the canned search
// pages in order.
func devtoolsEmulator(t *testing.T, pages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		evals, served := 0, 0
		for {
			var req cdpRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			result := map[string]any{}
			if req.Method == "Runtime.evaluate" {
				evals++
				value := ""
				if evals%2 == 0 && served < len(pages) {
					value = pages[served]
					served++
				}
				result["result"] = map[string]any{"value": value}
			}
			if err := conn.WriteJSON(map[string]any{"id": req.ID, "result": result}); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func devtoolsWSURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSenateAdapter_FetchViaBrowser(t *testing.T) {
	// PTR detail pages stay on the plain HTTP path.
	mux := http.NewServeMux()
	mux.HandleFunc("/search/view/ptr/b1/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><table><tbody><tr>
			<td>1</td><td>01/15/2024</td><td>Self</td><td>AAPL</td>
			<td>Apple Inc</td><td>Purchase</td><td>$1,001 - $15,000</td>
		</tr></tbody></table></html>`))
	})
	ptrSrv := httptest.NewServer(mux)
	defer ptrSrv.Close()

	searchJSON, err := json.Marshal(map[string]any{
		"result":       "ok",
		"recordsTotal": 1,
		"data": [][]string{{
			"Sherrod", "Brown", "Brown, Sherrod (Senator)",
			`<a href="/search/view/ptr/b1/">Periodic Transaction Report</a>`,
			"01/20/2024",
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	emu := devtoolsEmulator(t, []string{string(searchJSON)})

	adapter, err := NewSenateAdapter(Config{BaseURL: ptrSrv.URL, RequestDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	ctx := context.Background()
	session := NewBrowserSession(devtoolsWSURL(emu))
	if err := session.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	records, err := adapter.FetchViaBrowser(ctx, session, 0)
	if err != nil {
		t.Fatalf("fetch via browser: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if got := rec.RawData["politician_name"]; got != "Sherrod Brown" {
		t.Errorf("politician_name = %v", got)
	}
	if got := rec.RawData["asset_name"]; got != "Apple Inc" {
		t.Errorf("asset_name = %v, want parsed from ptr page", got)
	}
	if got := rec.RawData["amount"]; got != "$1,001 - $15,000" {
		t.Errorf("amount = %v", got)
	}
}

func TestBrowserSession_CallNotConnected(t *testing.T) {
	session := NewBrowserSession("ws://127.0.0.1:0/none")
	if _, err := session.Evaluate(context.Background(), "1"); err == nil {
		t.Fatal("want error before Connect")
	}
}
