package catalog

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a catalog item.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusProcessing,
	StatusProcessed,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Sensitivity classifies an item's content-screening outcome.
type Sensitivity string

const (
	SensitivityUnknown Sensitivity = "unknown"
	SensitivitySafe    Sensitivity = "safe"
	SensitivityFlagged Sensitivity = "flagged"
)

// Item represents a media item persisted in SQLite.
type Item struct {
	ID               string
	TenantID         string
	UploaderID       string
	Title            string
	Description      string
	OriginalFilename string
	StoredPath       string
	MimeType         string
	Size             int64
	Duration         float64
	Status           Status
	Sensitivity      Sensitivity
	Progress         int
	ErrorMessage     string
	RunID            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// IsProcessing returns true when the item has an in-flight pipeline run.
func (i Item) IsProcessing() bool {
	return i.Status == StatusProcessing
}

// ContentType returns the stored mime type, defaulting to video/mp4 when the
// upload did not carry one.
func (i Item) ContentType() string {
	if strings.TrimSpace(i.MimeType) == "" {
		return "video/mp4"
	}
	return i.MimeType
}

// HealthSummary describes aggregated item counts per lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Uploaded   int `json:"uploaded"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
