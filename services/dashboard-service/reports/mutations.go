package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"maintenance-dashboard/services/dashboard-service/models"
)

var (
	ErrUnknownReport        = errors.New("report not found")
	ErrIllegalTransition    = errors.New("status transition not allowed")
	ErrReasonRequired       = errors.New("rejection reason is required")
	ErrScheduleRequired     = errors.New("schedule date and time are required")
	ErrCompletionWorkflow   = errors.New("completion must go through the completion workflow")
	ErrConfirmationRequired = errors.New("priority change requires confirmation")
)

// Actor identifies who performed a mutation.
type Actor struct {
	ID   string
	Name string
}

// OnEvent, when set, is called after every successful mutation with a
// describing event. Wiring publishes these to the audit queue.
func (c *Cache) OnEvent(fn func(models.ReportEvent)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

func (c *Cache) emit(ev models.ReportEvent) {
	c.mu.RLock()
	fn := c.onEvent
	c.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// UpdateStatus moves a report to a new status. Transitions into
// rejected require a non-blank reason; transitions into completed and
// partially completed carry the actor as the completing party. Terminal
// markers are cleared when a report re-enters the active lifecycle so a
// report never holds both a completion and a rejection stamp.
func (c *Cache) UpdateStatus(ctx context.Context, id, next, reason string, actor Actor) error {
	r, ok := c.Get(id)
	if !ok {
		return ErrUnknownReport
	}
	if normalize(r.Status) == normalize(next) {
		return nil
	}
	// Scheduling carries a mandatory date and time, so the scheduled
	// status is only reachable through SetSchedule.
	if normalize(next) == "scheduled" {
		return ErrScheduleRequired
	}
	if !CanTransition(r.Status, next) {
		if normalize(next) == "completed" || normalize(next) == "partiallycompleted" {
			if normalize(r.Status) != "inprogress" {
				return ErrCompletionWorkflow
			}
		}
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Status, next)
	}

	now := c.now()
	fields := map[string]interface{}{
		"status": next,
	}

	switch normalize(next) {
	case "rejected":
		if strings.TrimSpace(reason) == "" {
			return ErrReasonRequired
		}
		fields["rejectedAt"] = now
		fields["rejectionReason"] = strings.TrimSpace(reason)
		fields["rejectedByName"] = actor.Name
	case "completed", "partiallycompleted":
		fields["completedAt"] = now
		fields["completedByName"] = actor.Name
	default:
		// Re-entering the active lifecycle drops the terminal stamps.
		fields["completedAt"] = int64(0)
		fields["completedByName"] = ""
		fields["rejectedAt"] = int64(0)
		fields["rejectionReason"] = ""
		fields["rejectedByName"] = ""
	}

	if err := c.st.Update(ctx, reportsPath+"/"+id, fields); err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}

	old := r.Status
	c.apply(id, func(r *models.Report) {
		r.Status = next
		switch normalize(next) {
		case "rejected":
			r.RejectedAt = now
			r.RejectionReason = strings.TrimSpace(reason)
			r.RejectedByName = actor.Name
		case "completed", "partiallycompleted":
			r.CompletedAt = now
			r.CompletedByName = actor.Name
		default:
			r.CompletedAt = 0
			r.CompletedByName = ""
			r.RejectedAt = 0
			r.RejectionReason = ""
			r.RejectedByName = ""
		}
	})

	c.emit(models.ReportEvent{
		ReportID:  id,
		Title:     r.Title,
		Action:    "status_changed",
		OldValue:  old,
		NewValue:  next,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Timestamp: now,
	})
	return nil
}

// UpdatePriority changes a report's priority. Escalations to high or
// critical must arrive with confirmed=true; the dialog layer gathers
// the confirmation using ConfirmationRubric.
func (c *Cache) UpdatePriority(ctx context.Context, id, priority string, confirmed bool, actor Actor) error {
	r, ok := c.Get(id)
	if !ok {
		return ErrUnknownReport
	}
	if strings.EqualFold(r.Priority, priority) {
		return nil
	}
	if RequiresConfirmation(priority) && !confirmed {
		return ErrConfirmationRequired
	}

	now := c.now()
	fields := map[string]interface{}{"priority": priority}
	if err := c.st.Update(ctx, reportsPath+"/"+id, fields); err != nil {
		return fmt.Errorf("failed to update report priority: %w", err)
	}

	old := r.Priority
	c.apply(id, func(r *models.Report) { r.Priority = priority })

	c.emit(models.ReportEvent{
		ReportID:  id,
		Title:     r.Title,
		Action:    "priority_changed",
		OldValue:  old,
		NewValue:  priority,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Timestamp: now,
	})
	return nil
}

// SetSchedule assigns a maintenance date and time and moves the report
// to scheduled. Both fields are mandatory.
func (c *Cache) SetSchedule(ctx context.Context, id, date, timeOfDay string, actor Actor) error {
	r, ok := c.Get(id)
	if !ok {
		return ErrUnknownReport
	}
	if strings.TrimSpace(date) == "" || strings.TrimSpace(timeOfDay) == "" {
		return ErrScheduleRequired
	}
	if normalize(r.Status) != "scheduled" && !CanTransition(r.Status, StatusScheduled) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Status, StatusScheduled)
	}

	now := c.now()
	fields := map[string]interface{}{
		"status":          StatusScheduled,
		"scheduledDate":   date,
		"scheduledTime":   timeOfDay,
		"scheduledByName": actor.Name,
		"completedAt":     int64(0),
		"completedByName": "",
		"rejectedAt":      int64(0),
		"rejectionReason": "",
		"rejectedByName":  "",
	}
	if err := c.st.Update(ctx, reportsPath+"/"+id, fields); err != nil {
		return fmt.Errorf("failed to schedule report: %w", err)
	}

	old := r.ScheduledDate + " " + r.ScheduledTime
	c.apply(id, func(r *models.Report) {
		r.Status = StatusScheduled
		r.ScheduledDate = date
		r.ScheduledTime = timeOfDay
		r.ScheduledByName = actor.Name
		r.CompletedAt = 0
		r.CompletedByName = ""
		r.RejectedAt = 0
		r.RejectionReason = ""
		r.RejectedByName = ""
	})

	c.emit(models.ReportEvent{
		ReportID:  id,
		Title:     r.Title,
		Action:    "scheduled",
		OldValue:  strings.TrimSpace(old),
		NewValue:  date + " " + timeOfDay,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Timestamp: now,
	})
	return nil
}
