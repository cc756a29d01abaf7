package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipstream/internal/catalog"
	"clipstream/internal/testsupport"
)

func TestCreateAssignsDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := &catalog.Item{
		TenantID:         "acme",
		OriginalFilename: "clip.mp4",
		StoredPath:       "/tmp/clip.mp4",
	}
	if err := store.Create(context.Background(), item); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected assigned id")
	}
	if item.Status != catalog.StatusUploaded {
		t.Fatalf("unexpected status: %s", item.Status)
	}
	if item.Sensitivity != catalog.SensitivityUnknown {
		t.Fatalf("unexpected sensitivity: %s", item.Sensitivity)
	}

	loaded, err := store.GetByID(context.Background(), item.ID, "acme")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.OriginalFilename != "clip.mp4" || loaded.StoredPath != "/tmp/clip.mp4" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.CreatedAt.IsZero() || loaded.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestCreateRejectsMissingTenantAndPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.Create(context.Background(), &catalog.Item{StoredPath: "/tmp/x"}); err == nil {
		t.Fatal("expected error for missing tenant")
	}
	if err := store.Create(context.Background(), &catalog.Item{TenantID: "acme"}); err == nil {
		t.Fatal("expected error for missing stored path")
	}
}

func TestGetByIDIsTenantScoped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "movie", "/tmp/movie.mp4")

	if _, err := store.GetByID(context.Background(), item.ID, "other-tenant"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-tenant lookup, got %v", err)
	}

	// The unscoped lookup still resolves the item for the pipeline.
	loaded, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.TenantID != testsupport.TenantName {
		t.Fatalf("unexpected tenant: %q", loaded.TenantID)
	}
}

func TestListNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.NewItem(t, store, "first", "/tmp/first.mp4")
	time.Sleep(5 * time.Millisecond)
	second := testsupport.NewItem(t, store, "second", "/tmp/second.mp4")

	items, err := store.List(context.Background(), testsupport.TenantName)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("unexpected order: %s, %s", items[0].Title, items[1].Title)
	}

	other, err := store.List(context.Background(), "other-tenant")
	if err != nil {
		t.Fatalf("List other tenant: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty list for other tenant, got %d", len(other))
	}
}

func TestUpdateFieldsAppliesPartialPatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "movie", "/tmp/movie.mp4")

	status := catalog.StatusProcessing
	progress := 30
	duration := 12.5
	runID := "run-1"
	err := store.UpdateFields(context.Background(), item.ID, catalog.FieldPatch{
		Status:   &status,
		Progress: &progress,
		Duration: &duration,
		RunID:    &runID,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	loaded, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Status != catalog.StatusProcessing || loaded.Progress != 30 {
		t.Fatalf("patch not applied: %+v", loaded)
	}
	if loaded.Duration != 12.5 || loaded.RunID != "run-1" {
		t.Fatalf("patch not applied: %+v", loaded)
	}
	if loaded.Title != "movie" {
		t.Fatalf("untouched field changed: %q", loaded.Title)
	}
}

func TestUpdateFieldsUnknownItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	progress := 10
	err := store.UpdateFields(context.Background(), "missing", catalog.FieldPatch{Progress: &progress})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRewritesMutableFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "movie", "/tmp/movie.mp4")

	item.Title = "renamed"
	item.Description = "director's cut"
	item.Status = catalog.StatusProcessed
	item.Sensitivity = catalog.SensitivitySafe
	item.Progress = 100
	item.Duration = 42.5
	item.RunID = "run-9"
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := store.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Title != "renamed" || loaded.Description != "director's cut" {
		t.Fatalf("title fields not persisted: %+v", loaded)
	}
	if loaded.Status != catalog.StatusProcessed || loaded.Progress != 100 {
		t.Fatalf("lifecycle fields not persisted: %+v", loaded)
	}
	if loaded.Sensitivity != catalog.SensitivitySafe || loaded.Duration != 42.5 || loaded.RunID != "run-9" {
		t.Fatalf("analysis fields not persisted: %+v", loaded)
	}
	if !loaded.UpdatedAt.After(loaded.CreatedAt) {
		t.Fatal("expected updated_at to advance")
	}
}

func TestUpdateUnknownItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.Update(context.Background(), &catalog.Item{ID: "missing", Status: catalog.StatusFailed})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveIsTenantScoped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, "movie", "/tmp/movie.mp4")

	removed, err := store.Remove(context.Background(), item.ID, "other-tenant")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed {
		t.Fatal("cross-tenant remove should not delete")
	}

	removed, err = store.Remove(context.Background(), item.ID, testsupport.TenantName)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("expected item to be removed")
	}
}

func TestHealthAggregatesStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.NewItem(t, store, "a", "/tmp/a.mp4")
	b := testsupport.NewItem(t, store, "b", "/tmp/b.mp4")
	failed := catalog.StatusFailed
	if err := store.UpdateFields(context.Background(), b.ID, catalog.FieldPatch{Status: &failed}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	health, err := store.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Uploaded != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	stuck := testsupport.NewItem(t, store, "stuck", "/tmp/stuck.mp4")
	processing := catalog.StatusProcessing
	if err := store.UpdateFields(context.Background(), stuck.ID, catalog.FieldPatch{Status: &processing}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	untouched := testsupport.NewItem(t, store, "fresh", "/tmp/fresh.mp4")

	count, err := store.ResetStuckProcessing(context.Background(), "interrupted by restart")
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reset, got %d", count)
	}

	loaded, err := store.Get(context.Background(), stuck.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Status != catalog.StatusFailed {
		t.Fatalf("expected failed, got %s", loaded.Status)
	}
	if loaded.ErrorMessage == "" {
		t.Fatal("expected error message on reset item")
	}

	fresh, err := store.Get(context.Background(), untouched.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fresh.Status != catalog.StatusUploaded {
		t.Fatalf("uploaded item should be untouched, got %s", fresh.Status)
	}
}

func TestCheckHealthReportsDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.DBPath == "" {
		t.Fatal("expected db path")
	}
}
