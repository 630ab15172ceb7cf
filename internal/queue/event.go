package queue

// Message payloads exchanged over the broker.

// Queue names.  Each event type has its own durable queue.
const (
	TableStatusQueue     = "floor.table_status_changed"
	LayoutActivatedQueue = "floor.layout_activated"
)

// TableStatusChangedEvent is published when a table's operational status
// changes.  Other sessions viewing the same floor apply it without
// reloading the layout.
type TableStatusChangedEvent struct {
	FloorID   string `json:"floor_id"`
	TableID   string `json:"table_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by,omitempty"`
	ChangedAt string `json:"changed_at"`
}

// LayoutActivatedEvent is published when a draft becomes the active
// layout of a floor.
type LayoutActivatedEvent struct {
	FloorID     string `json:"floor_id"`
	Version     int64  `json:"version"`
	TableCount  int    `json:"table_count"`
	ActivatedBy string `json:"activated_by,omitempty"`
	ActivatedAt string `json:"activated_at"`
}
