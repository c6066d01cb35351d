package reports

import (
	"maintenance-dashboard/services/dashboard-service/models"
)

// Dialog view-models: pure projections from a report to the choices a
// dialog presents. The mutation itself is a separate call so the
// dialogs are testable without any rendering surface.

// StatusDialog describes the update-status dialog for one report.
type StatusDialog struct {
	ReportID      string   `json:"reportId"`
	CurrentStatus string   `json:"currentStatus"`
	Available     []string `json:"available"`
	// RequiresReason lists targets that demand extra input before the
	// mutation may run.
	RequiresReason   []string `json:"requiresReason"`
	RequiresSchedule []string `json:"requiresSchedule"`
	// Redirected lists targets this dialog refuses; completion runs
	// through the technician workflow.
	Redirected []string `json:"redirected"`
}

func NewStatusDialog(r models.Report) StatusDialog {
	current := r.Status
	if current == "" {
		current = StatusPending
	}
	d := StatusDialog{
		ReportID:      r.ReportID,
		CurrentStatus: current,
		Available:     AllowedTransitions(current),
	}
	for _, s := range d.Available {
		switch s {
		case StatusRejected:
			d.RequiresReason = append(d.RequiresReason, s)
		case StatusScheduled:
			d.RequiresSchedule = append(d.RequiresSchedule, s)
		case StatusCompleted, StatusPartiallyCompleted:
			d.Redirected = append(d.Redirected, s)
		}
	}
	return d
}

// PriorityDialog describes the update-priority dialog. Escalations to
// high or critical come with a usage rubric and require an explicit
// confirmation before the mutation is applied.
type PriorityDialog struct {
	ReportID        string   `json:"reportId"`
	CurrentPriority string   `json:"currentPriority"`
	Available       []string `json:"available"`
}

func NewPriorityDialog(r models.Report) PriorityDialog {
	current := normalize(r.Priority)
	if current == "" {
		current = PriorityMedium
	}
	d := PriorityDialog{ReportID: r.ReportID, CurrentPriority: current}
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if p != current {
			d.Available = append(d.Available, p)
		}
	}
	return d
}

// RequiresConfirmation reports whether setting the given priority needs
// a secondary confirmation.
func RequiresConfirmation(priority string) bool {
	p := normalize(priority)
	return p == PriorityHigh || p == PriorityCritical
}

// ConfirmationRubric returns the guidance shown in the secondary
// confirmation for high/critical escalation, or nil when none applies.
func ConfirmationRubric(priority string) []string {
	switch normalize(priority) {
	case PriorityCritical:
		return []string{
			"Immediate safety hazards",
			"Fire/electrical emergencies",
			"Severe water leaks/flooding",
			"Complete system failures",
		}
	case PriorityHigh:
		return []string{
			"Issues affecting operations",
			"Problems impacting multiple users",
			"Urgent but not emergency situations",
		}
	}
	return nil
}

// HistoryEntry is one row of a report's derived action timeline.
type HistoryEntry struct {
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// History projects the recorded lifecycle of a report into timeline
// entries, oldest first.
func History(r models.Report) []HistoryEntry {
	entries := []HistoryEntry{{
		Action:    "created",
		Actor:     reporterName(r),
		Timestamp: r.CreatedAt,
	}}

	if r.ScheduledDate != "" {
		entries = append(entries, HistoryEntry{
			Action: "scheduled",
			Detail: r.ScheduledDate + " " + r.ScheduledTime,
			Actor:  r.ScheduledByName,
		})
	}
	if r.AssignedTo != "" {
		name := r.AssignedToName
		if name == "" {
			name = r.AssignedTo
		}
		entries = append(entries, HistoryEntry{Action: "assigned", Detail: name})
	}
	if normalize(r.Status) == "inprogress" {
		entries = append(entries, HistoryEntry{Action: "work_started"})
	}
	if r.CompletedAt > 0 {
		action := "completed"
		if normalize(r.Status) == "partiallycompleted" {
			action = "partially_completed"
		}
		entries = append(entries, HistoryEntry{
			Action:    action,
			Detail:    r.PartialCompletionNotes,
			Actor:     r.CompletedByName,
			Timestamp: r.CompletedAt,
		})
	}
	if r.RejectedAt > 0 {
		entries = append(entries, HistoryEntry{
			Action:    "rejected",
			Detail:    r.RejectionReason,
			Actor:     r.RejectedByName,
			Timestamp: r.RejectedAt,
		})
	}
	return entries
}

func reporterName(r models.Report) string {
	if r.ReportedByName != "" {
		return r.ReportedByName
	}
	if r.ReportedBy != "" {
		return r.ReportedBy
	}
	return "Unknown"
}
