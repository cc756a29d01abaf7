package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Create inserts a new item. A missing ID is assigned; status and
// sensitivity default to uploaded/unknown when unset.
func (s *Store) Create(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if strings.TrimSpace(item.TenantID) == "" {
		return errors.New("item tenant is required")
	}
	if strings.TrimSpace(item.StoredPath) == "" {
		return errors.New("item stored path is required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = StatusUploaded
	}
	if item.Sensitivity == "" {
		item.Sensitivity = SensitivityUnknown
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO media_items (
            id, tenant_id, uploader_id, title, description, original_filename,
            stored_path, mime_type, size, duration, status, sensitivity,
            progress, error_message, run_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.TenantID,
		nullableString(item.UploaderID),
		nullableString(item.Title),
		nullableString(item.Description),
		item.OriginalFilename,
		item.StoredPath,
		nullableString(item.MimeType),
		item.Size,
		item.Duration,
		item.Status,
		item.Sensitivity,
		item.Progress,
		nullableString(item.ErrorMessage),
		nullableString(item.RunID),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID fetches an item scoped to a tenant. Cross-tenant lookups report
// ErrNotFound so existence never leaks across namespaces.
func (s *Store) GetByID(ctx context.Context, id, tenantID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM media_items WHERE id = ? AND tenant_id = ?`,
		id, tenantID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Get fetches an item without tenant scoping. Reserved for the pipeline,
// which is handed ids by trusted callers.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns a tenant's items, newest first.
func (s *Store) List(ctx context.Context, tenantID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM media_items WHERE tenant_id = ? ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update persists all mutable fields of an existing item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_items
         SET title = ?, description = ?, duration = ?, status = ?, sensitivity = ?,
             progress = ?, error_message = ?, run_id = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.Title),
		nullableString(item.Description),
		item.Duration,
		item.Status,
		item.Sensitivity,
		item.Progress,
		nullableString(item.ErrorMessage),
		nullableString(item.RunID),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FieldPatch describes a partial update. Nil fields are left untouched.
type FieldPatch struct {
	Status       *Status
	Sensitivity  *Sensitivity
	Progress     *int
	Duration     *float64
	ErrorMessage *string
	RunID        *string
}

// UpdateFields applies a partial update to an item. The pipeline uses this
// for checkpoints so concurrent readers never observe a half-written row.
func (s *Store) UpdateFields(ctx context.Context, id string, patch FieldPatch) error {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.Sensitivity != nil {
		sets = append(sets, "sensitivity = ?")
		args = append(args, *patch.Sensitivity)
	}
	if patch.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *patch.Progress)
	}
	if patch.Duration != nil {
		sets = append(sets, "duration = ?")
		args = append(args, *patch.Duration)
	}
	if patch.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, nullableString(*patch.ErrorMessage))
	}
	if patch.RunID != nil {
		sets = append(sets, "run_id = ?")
		args = append(args, nullableString(*patch.RunID))
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, id)

	query := `UPDATE media_items SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update item fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes an item scoped to a tenant.
func (s *Store) Remove(ctx context.Context, id, tenantID string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM media_items WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM media_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates item state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusUploaded:
			health.Uploaded += count
		case StatusProcessing:
			health.Processing += count
		case StatusProcessed:
			health.Processed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

const itemColumns = "id, tenant_id, uploader_id, title, description, original_filename, stored_path, mime_type, size, duration, status, sensitivity, progress, error_message, run_id, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           string
		tenantID     string
		uploaderID   sql.NullString
		title        sql.NullString
		description  sql.NullString
		origFilename string
		storedPath   string
		mimeType     sql.NullString
		size         int64
		duration     float64
		statusStr    string
		sensitivity  string
		progress     int
		errorMessage sql.NullString
		runID        sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&tenantID,
		&uploaderID,
		&title,
		&description,
		&origFilename,
		&storedPath,
		&mimeType,
		&size,
		&duration,
		&statusStr,
		&sensitivity,
		&progress,
		&errorMessage,
		&runID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:               id,
		TenantID:         tenantID,
		UploaderID:       uploaderID.String,
		Title:            title.String,
		Description:      description.String,
		OriginalFilename: origFilename,
		StoredPath:       storedPath,
		MimeType:         mimeType.String,
		Size:             size,
		Duration:         duration,
		Status:           Status(statusStr),
		Sensitivity:      Sensitivity(sensitivity),
		Progress:         progress,
		ErrorMessage:     errorMessage.String,
		RunID:            runID.String,
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
