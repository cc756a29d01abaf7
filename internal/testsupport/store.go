package testsupport

import (
	"context"
	"testing"

	"clipstream/internal/catalog"
	"clipstream/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem creates an uploaded catalog item for tests using the provided
// store. The item is scoped to TenantName.
func NewItem(t testing.TB, store *catalog.Store, title, storedPath string) *catalog.Item {
	t.Helper()

	item := &catalog.Item{
		TenantID:         TenantName,
		UploaderID:       "uploader",
		Title:            title,
		OriginalFilename: title + ".mp4",
		StoredPath:       storedPath,
		MimeType:         "video/mp4",
		Size:             1024,
	}
	if err := store.Create(context.Background(), item); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}
