package reports

import "strings"

// Workflow statuses.
const (
	StatusPending            = "pending"
	StatusScheduled          = "scheduled"
	StatusInProgress         = "in progress"
	StatusCompleted          = "completed"
	StatusPartiallyCompleted = "partially completed"
	StatusRejected           = "rejected"
)

// Priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// transitions is the status allow-list keyed by current status. Keys
// and values are normalized (lower-cased, whitespace stripped).
var transitions = map[string][]string{
	"pending":            {StatusScheduled, StatusInProgress, StatusRejected},
	"scheduled":          {StatusInProgress, StatusRejected},
	"inprogress":         {StatusCompleted, StatusPartiallyCompleted},
	"completed":          {StatusPending, StatusScheduled, StatusInProgress},
	"partiallycompleted": {StatusPending, StatusScheduled, StatusInProgress},
	"rejected":           {StatusPending},
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
}

// AllowedTransitions returns the statuses a report in the given status
// may move to. An unknown or empty status is treated as pending.
func AllowedTransitions(current string) []string {
	key := normalize(current)
	if key == "" {
		key = "pending"
	}
	allowed, ok := transitions[key]
	if !ok {
		return nil
	}
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether moving from current to next is legal.
func CanTransition(current, next string) bool {
	target := normalize(next)
	for _, s := range AllowedTransitions(current) {
		if normalize(s) == target {
			return true
		}
	}
	return false
}
