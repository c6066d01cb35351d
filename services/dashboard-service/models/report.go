package models

// Report is a single maintenance issue record tracked through a status
// lifecycle. Timestamps are epoch milliseconds; zero means the event
// has not occurred. CompletedAt and RejectedAt are mutually exclusive
// terminal markers.
type Report struct {
	ReportID    string `json:"reportId,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Campus      string `json:"campus,omitempty"`
	Department  string `json:"department,omitempty"`

	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`

	ReportedBy      string `json:"reportedBy,omitempty"`
	ReportedByName  string `json:"reportedByName,omitempty"`
	AssignedTo      string `json:"assignedTo,omitempty"`
	AssignedToName  string `json:"assignedToName,omitempty"`
	ScheduledByName string `json:"scheduledByName,omitempty"`
	CompletedByName string `json:"completedByName,omitempty"`
	RejectedByName  string `json:"rejectedByName,omitempty"`

	CreatedAt     int64  `json:"createdAt,omitempty"`
	ScheduledDate string `json:"scheduledDate,omitempty"`
	ScheduledTime string `json:"scheduledTime,omitempty"`
	CompletedAt   int64  `json:"completedAt,omitempty"`
	RejectedAt    int64  `json:"rejectedAt,omitempty"`

	RejectionReason        string `json:"rejectionReason,omitempty"`
	PartialCompletionNotes string `json:"partialCompletionNotes,omitempty"`

	PhotoBase64           string `json:"photoBase64,omitempty"`
	CompletionPhotoBase64 string `json:"completionPhotoBase64,omitempty"`
}

// ReportEvent is published to the message bus whenever an admin
// mutation is applied, for downstream consumers (audit trail,
// technician notifications).
type ReportEvent struct {
	ReportID  string `json:"report_id"`
	Title     string `json:"title"`
	Action    string `json:"action"` // status_changed, priority_changed, scheduled
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	Timestamp int64  `json:"timestamp"`
}
