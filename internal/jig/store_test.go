package jig_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"jigpipe/internal/jig"
	"jigpipe/internal/modules"
)

func openStore(t *testing.T) *jig.Store {
	t.Helper()
	store, err := jig.Open(filepath.Join(t.TempDir(), "jigs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func innerModules(n int) []modules.Module {
	out := make([]modules.Module, 0, n)
	for i := 0; i < n; i++ {
		m := modules.NewDesignPage(0)
		m.Kind = modules.KindPoster
		m.Body = modules.Body{Poster: &modules.DesignBody{}}
		out = append(out, m)
	}
	return out
}

func TestCreateMaterialisesCoverAndEnding(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.CreateJIG(ctx, jig.CreateParams{
		DisplayName: "t",
		CreatorID:   "user-1",
		Modules:     innerModules(2),
	})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}

	got, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected jig to exist")
	}
	if len(got.Modules) != 4 {
		t.Fatalf("expected cover + 2 + ending, got %d modules", len(got.Modules))
	}
	if got.Modules[0].Kind != modules.KindDesignPage {
		t.Fatalf("first module should be design-page cover, got %s", got.Modules[0].Kind)
	}
	if got.Modules[len(got.Modules)-1].Kind != modules.KindDesignPage {
		t.Fatalf("last module should be design-page ending, got %s", got.Modules[len(got.Modules)-1].Kind)
	}
	if got.Modules[0].ID != got.CoverID || got.Modules[3].ID != got.EndingID {
		t.Fatal("cover/ending designations must point at the boundary modules")
	}
}

func TestAuthorDefaultsToCreator(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id, err := store.CreateJIG(ctx, jig.CreateParams{DisplayName: "t", CreatorID: "user-9"})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}
	got, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}
	if got.AuthorID != "user-9" || got.CreatorID != "user-9" {
		t.Fatalf("author must default to creator, got %q/%q", got.AuthorID, got.CreatorID)
	}
}

func TestModuleOrderingPreserved(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	inner := innerModules(3)
	id, err := store.CreateJIG(ctx, jig.CreateParams{DisplayName: "t", CreatorID: "u", Modules: inner})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}
	got, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}
	for i, want := range inner {
		if got.Modules[i+1].ID != want.ID {
			t.Fatalf("module %d out of order: want %s, got %s", i, want.ID, got.Modules[i+1].ID)
		}
	}
	for i, m := range got.Modules {
		if m.Index != uint16(i) {
			t.Fatalf("indices must be dense from zero, module %d has %d", i, m.Index)
		}
	}
}

func TestUpdateIdenticalValueDoesNotBumpUpdatedAt(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.CreateJIG(ctx, jig.CreateParams{DisplayName: "t", CreatorID: "u"})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}
	before, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}

	time.Sleep(2 * time.Millisecond)
	name := "t"
	existed, err := store.UpdateJIG(ctx, id, jig.UpdateParams{DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateJIG failed: %v", err)
	}
	if !existed {
		t.Fatal("jig should exist")
	}
	after, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatal("identical value must not touch updated_at")
	}

	changed := "u"
	if _, err := store.UpdateJIG(ctx, id, jig.UpdateParams{DisplayName: &changed}); err != nil {
		t.Fatalf("UpdateJIG failed: %v", err)
	}
	bumped, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}
	if !bumped.UpdatedAt.After(before.UpdatedAt) {
		t.Fatal("differing value must bump updated_at")
	}
	if bumped.DisplayName != "u" {
		t.Fatalf("display name not updated: %q", bumped.DisplayName)
	}
}

func TestEqualPublishAtSkipped(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := store.CreateJIG(ctx, jig.CreateParams{DisplayName: "t", CreatorID: "u", PublishAt: &at})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}
	before, _ := store.GetJIG(ctx, id)

	time.Sleep(2 * time.Millisecond)
	same := at
	if _, err := store.UpdateJIG(ctx, id, jig.UpdateParams{PublishAt: &same, PublishSet: true}); err != nil {
		t.Fatalf("UpdateJIG failed: %v", err)
	}
	after, _ := store.GetJIG(ctx, id)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatal("equal publish_at must be skipped")
	}
}

func TestUpdateReplacesModuleList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.CreateJIG(ctx, jig.CreateParams{DisplayName: "t", CreatorID: "u", Modules: innerModules(2)})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}

	replacement := innerModules(1)
	existed, err := store.UpdateJIG(ctx, id, jig.UpdateParams{Modules: replacement, ModulesSet: true})
	if err != nil {
		t.Fatalf("UpdateJIG failed: %v", err)
	}
	if !existed {
		t.Fatal("jig should exist")
	}

	got, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}
	if len(got.Modules) != 3 {
		t.Fatalf("expected cover + 1 + ending, got %d", len(got.Modules))
	}
	if got.Modules[1].ID != replacement[0].ID {
		t.Fatal("replacement module missing")
	}
}

func TestUpdateMissingJIGReturnsFalse(t *testing.T) {
	store := openStore(t)
	name := "x"
	existed, err := store.UpdateJIG(context.Background(), uuid.New(), jig.UpdateParams{DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateJIG failed: %v", err)
	}
	if existed {
		t.Fatal("update of absent jig must report false")
	}
}

func TestDeleteCascadesModules(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.CreateJIG(ctx, jig.CreateParams{DisplayName: "t", CreatorID: "u", Modules: innerModules(2)})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}
	if err := store.DeleteJIG(ctx, id); err != nil {
		t.Fatalf("DeleteJIG failed: %v", err)
	}
	got, err := store.GetJIG(ctx, id)
	if err != nil {
		t.Fatalf("GetJIG failed: %v", err)
	}
	if got != nil {
		t.Fatal("deleted jig must be gone")
	}
}

func TestPublishFlipsDraftToLive(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.CreateJIG(ctx, jig.CreateParams{DisplayName: "t", CreatorID: "u"})
	if err != nil {
		t.Fatalf("CreateJIG failed: %v", err)
	}

	existed, err := store.Publish(ctx, id)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !existed {
		t.Fatal("publish should report existence")
	}
	got, _ := store.GetJIG(ctx, id)
	if !got.Live {
		t.Fatal("jig should be live after publish")
	}
	if got.PublishAt == nil {
		t.Fatal("publish must stamp publish_at")
	}

	// Publishing again is a no-op but still reports existence.
	again, err := store.Publish(ctx, id)
	if err != nil {
		t.Fatalf("second Publish failed: %v", err)
	}
	if !again {
		t.Fatal("second publish should still report existence")
	}
}
