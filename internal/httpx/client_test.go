package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jigpipe/internal/faults"
	"jigpipe/internal/httpx"
	"jigpipe/internal/media"
)

func newClient(attempts int) *httpx.Client {
	return httpx.New(httpx.Config{
		Token:     "secret",
		Attempts:  attempts,
		BaseDelay: time.Millisecond,
	})
}

func TestDoSendsBearerAndConditionalHeaders(t *testing.T) {
	var gotAuth, gotIfMatch, gotIfNoneMatch string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIfMatch = r.Header.Get("If-Match")
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := newClient(1).Do(context.Background(), http.MethodPost, server.URL, httpx.RequestOptions{
		IfMatch:     "abc",
		IfNoneMatch: "*",
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.Status != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.Status)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotIfMatch != "abc" || gotIfNoneMatch != "*" {
		t.Fatalf("conditional headers not forwarded: %q %q", gotIfMatch, gotIfNoneMatch)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 4 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := newClient(5).Do(context.Background(), http.MethodPost, server.URL, httpx.RequestOptions{})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.Status != http.StatusNoContent {
		t.Fatalf("expected eventual 204, got %d", resp.Status)
	}
	if calls.Load() != 5 {
		t.Fatalf("expected 5 calls, got %d", calls.Load())
	}
}

func TestDoSurfacesTransportAfterBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newClient(3).Do(context.Background(), http.MethodPost, server.URL, httpx.RequestOptions{})
	if err == nil {
		t.Fatal("expected error after retry budget exhausted")
	}
	if !faults.IsRetryable(err) {
		t.Fatalf("exhausted retries must stay classified as transport, got %v", err)
	}
}

func TestDoDoesNotRetryMappedStatuses(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusPreconditionFailed)
	}))
	defer server.Close()

	resp, err := newClient(5).Do(context.Background(), http.MethodPost, server.URL, httpx.RequestOptions{})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.Status != http.StatusPreconditionFailed {
		t.Fatalf("unexpected status %d", resp.Status)
	}
	if calls.Load() != 1 {
		t.Fatalf("412 must not be retried, got %d calls", calls.Load())
	}
}

func TestClassifyTable(t *testing.T) {
	for status := 100; status < 600; status++ {
		res, ok := httpx.Classify(status)
		switch status {
		case http.StatusNoContent:
			if !ok || res != media.ResolutionSuccess {
				t.Fatalf("204 should map to Success, got %v %v", res, ok)
			}
		case http.StatusPreconditionFailed:
			if !ok || res != media.ResolutionAlreadyUpdated {
				t.Fatalf("412 should map to AlreadyUpdated, got %v %v", res, ok)
			}
		case http.StatusNotFound:
			if !ok || res != media.ResolutionNotFound {
				t.Fatalf("404 should map to NotFound, got %v %v", res, ok)
			}
		default:
			if ok {
				t.Fatalf("status %d must not map to a recordable resolution", status)
			}
		}
	}
}

func TestIsAuthDenied(t *testing.T) {
	if !httpx.IsAuthDenied(http.StatusUnauthorized) || !httpx.IsAuthDenied(http.StatusForbidden) {
		t.Fatal("401 and 403 are auth denials")
	}
	if httpx.IsAuthDenied(http.StatusNotFound) {
		t.Fatal("404 is not an auth denial")
	}
}
