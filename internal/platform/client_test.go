package platform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"jigpipe/internal/httpx"
	"jigpipe/internal/media"
	"jigpipe/internal/modules"
	"jigpipe/internal/platform"
)

func newClient(t *testing.T, handler http.Handler) *platform.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := httpx.New(httpx.Config{
		Token:    "secret",
		Attempts: 1,
	})
	return platform.New(base, server.URL, nil)
}

func TestCreateJIGReturnsID(t *testing.T) {
	want := uuid.New()
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/jig" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer header, got %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + want.String() + `"}`))
	}))

	got, err := client.CreateJIG(context.Background(), platform.CreateJIGRequest{
		DisplayName: "alef bet",
		CreatorID:   "user-1",
	})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}
	if got != want {
		t.Fatalf("id mismatch: want %s, got %s", want, got)
	}
}

func TestUpdateJIGReportsExistence(t *testing.T) {
	present := uuid.New()
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/jig/"+present.String() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	name := "renamed"
	exists, err := client.UpdateJIG(context.Background(), present, platform.JIGPatch{DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateJIG failed: %v", err)
	}
	if !exists {
		t.Fatal("expected existing jig to report true")
	}

	exists, err = client.UpdateJIG(context.Background(), uuid.New(), platform.JIGPatch{DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateJIG on absent jig failed: %v", err)
	}
	if exists {
		t.Fatal("absent jig must report false")
	}
}

func TestCreateModuleDraft(t *testing.T) {
	want := uuid.New()
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/module/draft" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + want.String() + `"}`))
	}))

	got, err := client.CreateModuleDraft(context.Background(), uuid.New(), modules.KindCover)
	if err != nil {
		t.Fatalf("CreateModuleDraft failed: %v", err)
	}
	if got != want {
		t.Fatalf("id mismatch: want %s, got %s", want, got)
	}
}

func TestRefreshMediaConditionalHeaders(t *testing.T) {
	var gotIfMatch, gotIfNoneMatch, gotPath string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIfMatch = r.Header.Get("If-Match")
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	id := "00000000-0000-0000-0000-000000000001"
	status, err := client.RefreshMedia(context.Background(), media.LibraryGlobal, id, "")
	if err != nil {
		t.Fatalf("RefreshMedia failed: %v", err)
	}
	if status != http.StatusNoContent {
		t.Fatalf("unexpected status %d", status)
	}
	if gotPath != "/v0/admin/media/refresh/Global/image/"+id {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotIfNoneMatch != "*" || gotIfMatch != "" {
		t.Fatalf("absent etag must send If-None-Match: *, got %q/%q", gotIfNoneMatch, gotIfMatch)
	}

	if _, err := client.RefreshMedia(context.Background(), media.LibraryUser, id, "abc123"); err != nil {
		t.Fatalf("RefreshMedia with etag failed: %v", err)
	}
	if gotIfMatch != "abc123" || gotIfNoneMatch != "" {
		t.Fatalf("present etag must send If-Match, got %q/%q", gotIfMatch, gotIfNoneMatch)
	}
}

func TestAuthDenialSurfacesClass(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.CreateJIG(context.Background(), platform.CreateJIGRequest{DisplayName: "x", CreatorID: "u"})
	if err == nil {
		t.Fatal("expected auth denial error")
	}
}
