// Package catalog persists media items in SQLite. It is the single source
// of truth for item state: the progress bus only carries display copies,
// and clients reconcile against the catalog after reconnecting.
package catalog
