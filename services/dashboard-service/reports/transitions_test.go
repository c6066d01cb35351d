package reports

import "testing"

func TestTransitionGrid(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{"pending", "scheduled", true},
		{"pending", "in progress", true},
		{"pending", "rejected", true},
		{"pending", "completed", false},
		{"pending", "partially completed", false},

		{"scheduled", "in progress", true},
		{"scheduled", "rejected", true},
		{"scheduled", "pending", false},
		{"scheduled", "completed", false},

		{"in progress", "completed", true},
		{"in progress", "partially completed", true},
		{"in progress", "rejected", false},
		{"in progress", "pending", false},

		{"completed", "pending", true},
		{"completed", "scheduled", true},
		{"completed", "in progress", true},
		{"completed", "rejected", false},

		{"partially completed", "pending", true},
		{"partially completed", "scheduled", true},
		{"partially completed", "in progress", true},
		{"partially completed", "completed", false},

		{"rejected", "pending", true},
		{"rejected", "scheduled", false},
		{"rejected", "in progress", false},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTransitionNormalization(t *testing.T) {
	if !CanTransition("In Progress", "COMPLETED") {
		t.Fatalf("case and spacing variants should be accepted")
	}
	if !CanTransition("InProgress", "Partially Completed") {
		t.Fatalf("compact status forms should be accepted")
	}
}

func TestEmptyStatusTreatedAsPending(t *testing.T) {
	if !CanTransition("", "scheduled") {
		t.Fatalf("empty status should transition like pending")
	}
	allowed := AllowedTransitions("")
	if len(allowed) != 3 {
		t.Fatalf("AllowedTransitions(\"\") = %v, want 3 pending targets", allowed)
	}
}

func TestUnknownStatusHasNoTransitions(t *testing.T) {
	if CanTransition("archived", "pending") {
		t.Fatalf("unknown status should not transition")
	}
	if got := AllowedTransitions("archived"); got != nil {
		t.Fatalf("AllowedTransitions(archived) = %v, want nil", got)
	}
}
