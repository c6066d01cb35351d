package reports

import (
	"testing"

	"maintenance-dashboard/services/dashboard-service/models"
)

func TestStatusDialogFromPending(t *testing.T) {
	d := NewStatusDialog(models.Report{ReportID: "r1", Status: "pending"})
	if len(d.Available) != 3 {
		t.Fatalf("available = %v, want 3 targets", d.Available)
	}
	if len(d.RequiresReason) != 1 || d.RequiresReason[0] != StatusRejected {
		t.Fatalf("requiresReason = %v, want [rejected]", d.RequiresReason)
	}
	if len(d.RequiresSchedule) != 1 || d.RequiresSchedule[0] != StatusScheduled {
		t.Fatalf("requiresSchedule = %v, want [scheduled]", d.RequiresSchedule)
	}
}

func TestStatusDialogRedirectsCompletion(t *testing.T) {
	d := NewStatusDialog(models.Report{ReportID: "r1", Status: "in progress"})
	if len(d.Redirected) != 2 {
		t.Fatalf("redirected = %v, want completion targets", d.Redirected)
	}
}

func TestStatusDialogEmptyStatusDefaultsToPending(t *testing.T) {
	d := NewStatusDialog(models.Report{ReportID: "r1"})
	if d.CurrentStatus != StatusPending {
		t.Fatalf("currentStatus = %q, want pending", d.CurrentStatus)
	}
}

func TestPriorityDialogExcludesCurrent(t *testing.T) {
	d := NewPriorityDialog(models.Report{ReportID: "r1", Priority: "High"})
	if len(d.Available) != 3 {
		t.Fatalf("available = %v, want 3 priorities", d.Available)
	}
	for _, p := range d.Available {
		if p == PriorityHigh {
			t.Fatalf("current priority offered: %v", d.Available)
		}
	}
}

func TestConfirmationRubric(t *testing.T) {
	if !RequiresConfirmation("Critical") || !RequiresConfirmation("high") {
		t.Fatalf("high and critical must require confirmation")
	}
	if RequiresConfirmation("medium") || RequiresConfirmation("low") {
		t.Fatalf("medium and low must not require confirmation")
	}
	if len(ConfirmationRubric("critical")) != 4 {
		t.Fatalf("critical rubric = %v", ConfirmationRubric("critical"))
	}
	if len(ConfirmationRubric("high")) != 3 {
		t.Fatalf("high rubric = %v", ConfirmationRubric("high"))
	}
	if ConfirmationRubric("low") != nil {
		t.Fatalf("low rubric should be nil")
	}
}

func TestHistoryTimeline(t *testing.T) {
	r := models.Report{
		ReportID:       "r1",
		ReportedByName: "Budi",
		CreatedAt:      1000,
		Status:         "Completed",
		ScheduledDate:  "2025-03-12",
		ScheduledTime:  "10:00",
		CompletedAt:    5000,
	}
	entries := History(r)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want created/scheduled/completed", len(entries))
	}
	if entries[0].Action != "created" || entries[0].Actor != "Budi" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Action != "scheduled" || entries[1].Detail != "2025-03-12 10:00" {
		t.Fatalf("second entry = %+v", entries[1])
	}
	if entries[2].Action != "completed" {
		t.Fatalf("third entry = %+v", entries[2])
	}
}
