package chat

import (
	"testing"
	"time"

	"maintenance-dashboard/services/dashboard-service/models"
)

func TestDayLabel(t *testing.T) {
	now := time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC)

	if got := DayLabel(now.Add(-2*time.Hour).UnixMilli(), now); got != "Today" {
		t.Fatalf("same day label = %q, want Today", got)
	}
	if got := DayLabel(now.AddDate(0, 0, -1).UnixMilli(), now); got != "Yesterday" {
		t.Fatalf("previous day label = %q, want Yesterday", got)
	}
	if got := DayLabel(now.AddDate(0, 0, -5).UnixMilli(), now); got != "Mar 5, 2025" {
		t.Fatalf("older label = %q, want Mar 5, 2025", got)
	}
}

func TestGroupByDay(t *testing.T) {
	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{Message: "a", Timestamp: now.AddDate(0, 0, -2).UnixMilli()},
		{Message: "b", Timestamp: now.AddDate(0, 0, -1).UnixMilli()},
		{Message: "c", Timestamp: now.AddDate(0, 0, -1).Add(time.Hour).UnixMilli()},
		{Message: "d", Timestamp: now.UnixMilli()},
	}

	groups := GroupByDay(msgs, now)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if groups[0].Label != "Mar 8, 2025" || len(groups[0].Messages) != 1 {
		t.Fatalf("first group = %q with %d messages", groups[0].Label, len(groups[0].Messages))
	}
	if groups[1].Label != "Yesterday" || len(groups[1].Messages) != 2 {
		t.Fatalf("second group = %q with %d messages", groups[1].Label, len(groups[1].Messages))
	}
	if groups[2].Label != "Today" || groups[2].Messages[0].Message != "d" {
		t.Fatalf("third group = %q", groups[2].Label)
	}
}

func TestGroupByDayEmpty(t *testing.T) {
	if groups := GroupByDay(nil, time.Now()); len(groups) != 0 {
		t.Fatalf("empty input produced %d groups", len(groups))
	}
}

func TestReadStatus(t *testing.T) {
	own := models.Message{SenderID: "u1", ReadBy: map[string]int64{"u1": 100}}
	if got := ReadStatus(own, "u1"); got != "Sent" {
		t.Fatalf("unseen own message = %q, want Sent", got)
	}

	own.ReadBy["u2"] = 200
	if got := ReadStatus(own, "u1"); got != "Seen" {
		t.Fatalf("seen own message = %q, want Seen", got)
	}

	other := models.Message{SenderID: "u2"}
	if got := ReadStatus(other, "u1"); got != "" {
		t.Fatalf("foreign message status = %q, want empty", got)
	}
}
