package bus

import "clipstream/internal/catalog"

// EventType names the wire event emitted to subscribers.
type EventType string

const (
	EventQueued    EventType = "video:queued"
	EventProgress  EventType = "video:progress"
	EventCompleted EventType = "video:completed"
	EventError     EventType = "video:error"
)

// Event is the JSON payload delivered to progress subscribers. Events are
// fire-and-forget display copies; the catalog remains authoritative.
type Event struct {
	Type        EventType `json:"type"`
	VideoID     string    `json:"videoId"`
	Status      string    `json:"status,omitempty"`
	Progress    *int      `json:"progress,omitempty"`
	Sensitivity string    `json:"sensitivity,omitempty"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Queued builds the informational event emitted when an item is created.
func Queued(videoID string) Event {
	return Event{Type: EventQueued, VideoID: videoID, Status: string(catalog.StatusUploaded)}
}

// Progress builds an intermediate tick event.
func Progress(videoID string, progress int, message string) Event {
	return Event{
		Type:     EventProgress,
		VideoID:  videoID,
		Status:   string(catalog.StatusProcessing),
		Progress: &progress,
		Message:  message,
	}
}

// Completed builds the terminal success event.
func Completed(videoID string, sensitivity catalog.Sensitivity) Event {
	full := 100
	return Event{
		Type:        EventCompleted,
		VideoID:     videoID,
		Status:      string(catalog.StatusProcessed),
		Progress:    &full,
		Sensitivity: string(sensitivity),
	}
}

// Failure builds the terminal error event.
func Failure(videoID, message string) Event {
	return Event{Type: EventError, VideoID: videoID, Error: message}
}

// ItemTopic is the per-item topic name.
func ItemTopic(id string) string {
	return "item:" + id
}

// TenantTopic is the tenant-scoped room that receives every item's events.
func TenantTopic(tenant string) string {
	return "tenant:" + tenant
}
