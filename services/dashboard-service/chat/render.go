package chat

import (
	"time"

	"maintenance-dashboard/services/dashboard-service/models"
)

// DayGroup is a run of consecutive messages from the same calendar day,
// in arrival order, headed by a display label.
type DayGroup struct {
	Label    string           `json:"label"`
	Messages []models.Message `json:"messages"`
}

// DayLabel renders a message timestamp as the day separator shown above
// its group: Today, Yesterday, or the full date.
func DayLabel(ts int64, now time.Time) string {
	day := time.UnixMilli(ts).In(now.Location())
	y1, m1, d1 := day.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Today"
	}
	y2, m2, d2 = now.AddDate(0, 0, -1).Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Yesterday"
	}
	return day.Format("Jan 2, 2006")
}

// GroupByDay splits an ordered message list into per-day groups. The
// input order is preserved; a new group starts whenever the calendar
// day changes.
func GroupByDay(msgs []models.Message, now time.Time) []DayGroup {
	var groups []DayGroup
	for _, msg := range msgs {
		label := DayLabel(msg.Timestamp, now)
		if len(groups) == 0 || groups[len(groups)-1].Label != label {
			groups = append(groups, DayGroup{Label: label})
		}
		last := &groups[len(groups)-1]
		last.Messages = append(last.Messages, msg)
	}
	return groups
}

// ReadStatus reports the receipt state of one of selfUID's own
// messages: "Seen" once any other participant has read it, "Sent"
// otherwise. Messages from other senders carry no status.
func ReadStatus(msg models.Message, selfUID string) string {
	if msg.SenderID != selfUID {
		return ""
	}
	for uid := range msg.ReadBy {
		if uid != selfUID {
			return "Seen"
		}
	}
	return "Sent"
}
