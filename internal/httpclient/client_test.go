package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(name string, opts ...Option) *Client {
	base := []Option{WithRequestDelay(time.Millisecond), WithMaxRetries(3)}
	return New(name, append(base, opts...)...)
}

func TestGetRetriesOn503ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient("test_503").Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func Test404IsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient("test_404").Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retries on 404)", calls.Load())
	}
}

func Test403SurfacesUnretried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient("test_403").Get(context.Background(), srv.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected StatusError 403, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestMaxRetriesExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient("test_max").Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Errorf("expected wrapped StatusError 502, got %v", err)
	}
}

func TestDefaultHeadersApplied(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := testClient("test_headers", WithHeaders(map[string]string{"User-Agent": "disclosure-lab/1.0"}))
	if _, err := c.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotUA != "disclosure-lab/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestIsHTML(t *testing.T) {
	if !IsHTML([]byte("<!DOCTYPE html><html></html>")) {
		t.Error("expected DOCTYPE to be detected as HTML")
	}
	if !IsHTML([]byte("  <html lang=\"en\">")) {
		t.Error("expected html tag to be detected as HTML")
	}
	if IsHTML([]byte(`{"result": "ok"}`)) {
		t.Error("JSON misdetected as HTML")
	}
}

func TestBackoffSchedule(t *testing.T) {
	base := time.Second
	max := 10 * time.Second
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, max, max}
	for attempt, w := range want {
		if got := backoff(base, attempt, max); got != w {
			t.Errorf("backoff(attempt=%d) = %v, want %v", attempt, got, w)
		}
	}
}
