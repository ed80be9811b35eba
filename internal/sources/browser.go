package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// BrowserSession drives a headless Chrome over the DevTools protocol. It is
// the fallback path when the Senate WAF rejects plain HTTP: the browser
// replays the same agreement form and search flow with a real JS runtime.
type BrowserSession struct {
	wsURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int
}

// NewBrowserSession creates a session against a DevTools websocket endpoint,
// e.g. the webSocketDebuggerUrl of a page target on localhost:9222.
func NewBrowserSession(wsURL string) *BrowserSession {
	return &BrowserSession{wsURL: wsURL}
}

// Connect dials the DevTools endpoint.
func (b *BrowserSession) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial devtools: %w", err)
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	return nil
}

// Close shuts the websocket down.
func (b *BrowserSession) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

type cdpRequest struct {
	ID     int            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

type cdpResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("devtools error %d: %s", e.Code, e.Message)
}

// call sends one DevTools command and blocks until its response arrives.
// Event notifications (messages without a matching id) are discarded.
func (b *BrowserSession) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil, fmt.Errorf("browser session not connected")
	}

	b.nextID++
	id := b.nextID
	if err := b.conn.WriteJSON(cdpRequest{ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = b.conn.SetReadDeadline(deadline)
	} else {
		_ = b.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}

	for {
		var resp cdpResponse
		if err := b.conn.ReadJSON(&resp); err != nil {
			return nil, fmt.Errorf("read %s response: %w", method, err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// Navigate loads a URL in the driven page and gives the document time to
// settle. DevTools reports load completion via events; a fixed settle delay
// keeps the protocol handling single-threaded.
func (b *BrowserSession) Navigate(ctx context.Context, pageURL string) error {
	if _, err := b.call(ctx, "Page.navigate", map[string]any{"url": pageURL}); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}
	return nil
}

// Evaluate runs a JS expression in the page and returns its string value.
// Promises are awaited.
func (b *BrowserSession) Evaluate(ctx context.Context, expression string) (string, error) {
	raw, err := b.call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"awaitPromise":  true,
		"returnByValue": true,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode evaluate result: %w", err)
	}
	if result.ExceptionDetails != nil {
		return "", fmt.Errorf("page script failed: %s", result.ExceptionDetails.Text)
	}
	s, _ := result.Result.Value.(string)
	return s, nil
}

// FetchSenatePage replays the EFD agreement and search flow inside the
// browser and returns the raw search JSON for one page.
func (b *BrowserSession) FetchSenatePage(ctx context.Context, baseURL string, start, length int) ([]byte, error) {
	if err := b.Navigate(ctx, baseURL+"/search/"); err != nil {
		return nil, err
	}

	// Accept the prohibition agreement if the form is present.
	if _, err := b.Evaluate(ctx, `(() => {
		const f = document.querySelector('form[action*="home"]');
		if (f) { f.querySelector('input[name="prohibition_agreement"]').checked = true; f.submit(); }
		return "";
	})()`); err != nil {
		return nil, err
	}

	script := fmt.Sprintf(`(async () => {
		const token = document.cookie.split("; ").find(c => c.startsWith("csrftoken="));
		const body = new URLSearchParams({
			start: "%d", length: "%d",
			report_type_id: %q, filer_type_id: %q,
			csrfmiddlewaretoken: token ? token.split("=")[1] : "",
		});
		const resp = await fetch("/search/report/data/", {
			method: "POST",
			headers: {"X-Requested-With": "XMLHttpRequest"},
			body: body,
		});
		return await resp.text();
	})()`, start, length, senateReportTypePTR, senateFilerSenator)

	text, err := b.Evaluate(ctx, script)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}
