package stats

import (
	"testing"
	"time"

	"maintenance-dashboard/services/dashboard-service/models"
)

func sampleReports() []models.Report {
	return []models.Report{
		{ReportID: "r1", Title: "Leaking pipe", Description: "Water on floor", Location: "Building A", Status: "Pending", Priority: "High", ReportedByName: "Budi"},
		{ReportID: "r2", Title: "Broken light", Description: "Flickering", Location: "Building A", Status: "In Progress", Priority: "Medium", ReportedByName: "Sari"},
		{ReportID: "r3", Title: "Cracked window", Description: "Glass damage", Location: "Building B", Status: "Completed", Priority: "Low", ReportedByName: "Budi"},
		{ReportID: "r4", Title: "AC failure", Description: "No cooling", Location: "Building C", Status: "Rejected", Priority: "Critical", ReportedByName: "Tono"},
		{ReportID: "r5", Title: "Door jammed", Description: "Cannot open", Location: "Building B", Status: "Partially Completed", ReportedByName: "Sari"},
	}
}

func TestFilterIdentity(t *testing.T) {
	reports := sampleReports()
	out := Filter(reports, FilterSpec{Status: All, Priority: All, Location: All})
	if len(out) != len(reports) {
		t.Fatalf("identity filter returned %d reports, want %d", len(out), len(reports))
	}
}

func TestFilterStatusIgnoresSpacingAndCase(t *testing.T) {
	out := Filter(sampleReports(), FilterSpec{Status: "inprogress", Priority: All, Location: All})
	if len(out) != 1 || out[0].ReportID != "r2" {
		t.Fatalf("status filter matched %v, want [r2]", ids(out))
	}
	out = Filter(sampleReports(), FilterSpec{Status: "PARTIALLY COMPLETED", Priority: All, Location: All})
	if len(out) != 1 || out[0].ReportID != "r5" {
		t.Fatalf("status filter matched %v, want [r5]", ids(out))
	}
}

func TestFilterSearchSpansFields(t *testing.T) {
	out := Filter(sampleReports(), FilterSpec{Status: All, Priority: All, Location: All, Search: "budi"})
	if len(out) != 2 {
		t.Fatalf("search matched %v, want two reports by Budi", ids(out))
	}
	out = Filter(sampleReports(), FilterSpec{Status: All, Priority: All, Location: All, Search: "glass"})
	if len(out) != 1 || out[0].ReportID != "r3" {
		t.Fatalf("search matched %v, want [r3]", ids(out))
	}
}

func TestFilterCombinesDimensions(t *testing.T) {
	out := Filter(sampleReports(), FilterSpec{Status: "pending", Priority: "high", Location: "Building A"})
	if len(out) != 1 || out[0].ReportID != "r1" {
		t.Fatalf("combined filter matched %v, want [r1]", ids(out))
	}
	out = Filter(sampleReports(), FilterSpec{Status: "pending", Priority: "low", Location: "Building A"})
	if len(out) != 0 {
		t.Fatalf("conflicting filter matched %v, want none", ids(out))
	}
}

func TestCountByStatus(t *testing.T) {
	c := CountByStatus(sampleReports())
	if c.Total != 5 {
		t.Fatalf("Total = %d, want 5", c.Total)
	}
	if c.Pending != 1 || c.InProgress != 1 || c.Completed != 1 || c.Rejected != 1 || c.PartiallyCompleted != 1 {
		t.Fatalf("unexpected buckets: %+v", c)
	}
	if c.Active != 3 {
		t.Fatalf("Active = %d, want 3 (pending + inProgress + partiallyCompleted)", c.Active)
	}
}

func TestCountByPriorityDefaultsToMedium(t *testing.T) {
	c := CountByPriority(sampleReports())
	if c.Critical != 1 || c.High != 1 || c.Low != 1 {
		t.Fatalf("unexpected priority buckets: %+v", c)
	}
	// r2 is medium, r5 has no priority and defaults to medium.
	if c.Medium != 2 {
		t.Fatalf("Medium = %d, want 2", c.Medium)
	}
}

func TestLast7Days(t *testing.T) {
	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	reports := []models.Report{
		{CreatedAt: now.UnixMilli()},
		{CreatedAt: now.AddDate(0, 0, -1).UnixMilli()},
		{CreatedAt: now.AddDate(0, 0, -6).UnixMilli()},
		{CreatedAt: now.AddDate(0, 0, -7).UnixMilli()}, // outside window
		{CreatedAt: 0},                                 // no timestamp
	}

	buckets := Last7Days(reports, now)
	if len(buckets) != 7 {
		t.Fatalf("got %d buckets, want 7", len(buckets))
	}
	if buckets[0].Label != "Mar 4" || buckets[6].Label != "Mar 10" {
		t.Fatalf("bucket labels %q..%q, want Mar 4..Mar 10", buckets[0].Label, buckets[6].Label)
	}
	var total int
	for _, b := range buckets {
		total += b.Count
	}
	if total != 3 {
		t.Fatalf("bucketed %d reports, want 3", total)
	}
	if buckets[6].Count != 1 || buckets[5].Count != 1 || buckets[0].Count != 1 {
		t.Fatalf("unexpected distribution: %+v", buckets)
	}
}

func TestCompletionTimes(t *testing.T) {
	day := int64(24 * time.Hour / time.Millisecond)
	reports := []models.Report{
		{Status: "Completed", CreatedAt: 0}, // missing stamps, skipped
		{Status: "Completed", CreatedAt: 1000, CompletedAt: 1000 + day/2},
		{Status: "Partially Completed", CreatedAt: 1000, CompletedAt: 1000 + 2*day},
		{Status: "Completed", CreatedAt: 1000, CompletedAt: 1000 + 5*day},
		{Status: "Completed", CreatedAt: 1000, CompletedAt: 1000 + 10*day},
		{Status: "Pending", CreatedAt: 1000, CompletedAt: 1000 + day}, // wrong status
	}

	s := CompletionTimes(reports)
	if !s.HasData {
		t.Fatalf("expected HasData")
	}
	if s.UnderOneDay != 1 || s.OneToThree != 1 || s.ThreeToSeven != 1 || s.OverSeven != 1 {
		t.Fatalf("unexpected distribution: %+v", s)
	}
	want := (0.5 + 2 + 5 + 10) / 4.0
	if s.AverageDays < want-0.01 || s.AverageDays > want+0.01 {
		t.Fatalf("AverageDays = %f, want %f", s.AverageDays, want)
	}
}

func TestCompletionTimesEmpty(t *testing.T) {
	s := CompletionTimes([]models.Report{{Status: "Pending"}})
	if s.HasData {
		t.Fatalf("expected no data")
	}
}

func TestTopLocations(t *testing.T) {
	top := TopLocations(sampleReports())
	if top[0].Label != "Building A" && top[0].Label != "Building B" {
		t.Fatalf("top location = %q", top[0].Label)
	}
	if top[0].Count != 2 || top[1].Count != 2 {
		t.Fatalf("top counts = %d, %d, want 2, 2", top[0].Count, top[1].Count)
	}
	// Equal counts break ties alphabetically.
	if top[0].Label != "Building A" {
		t.Fatalf("tie break: first = %q, want Building A", top[0].Label)
	}
}

func TestTopNTruncatesAtTen(t *testing.T) {
	var reports []models.Report
	for _, loc := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		reports = append(reports, models.Report{Location: loc})
	}
	top := TopLocations(reports)
	if len(top) != 10 {
		t.Fatalf("got %d entries, want 10", len(top))
	}
}

func TestUpcomingScheduled(t *testing.T) {
	reports := []models.Report{
		{ReportID: "a", Status: "Scheduled", ScheduledDate: "2025-03-12", ScheduledTime: "14:00"},
		{ReportID: "b", Status: "Scheduled", ScheduledDate: "2025-03-11", ScheduledTime: "09:00"},
		{ReportID: "c", Status: "Scheduled", ScheduledDate: "2025-03-11", ScheduledTime: "08:00"},
		{ReportID: "d", Status: "Scheduled"}, // no date, excluded
		{ReportID: "e", Status: "Pending", ScheduledDate: "2025-03-10"},
	}
	out := UpcomingScheduled(reports)
	if len(out) != 3 {
		t.Fatalf("got %d scheduled, want 3", len(out))
	}
	if out[0].ReportID != "c" || out[1].ReportID != "b" || out[2].ReportID != "a" {
		t.Fatalf("order = %v, want [c b a]", ids(out))
	}
}

func TestLocationsDistinctSorted(t *testing.T) {
	locs := Locations(sampleReports())
	want := []string{"Building A", "Building B", "Building C"}
	if len(locs) != len(want) {
		t.Fatalf("got %v, want %v", locs, want)
	}
	for i := range want {
		if locs[i] != want[i] {
			t.Fatalf("got %v, want %v", locs, want)
		}
	}
}

func ids(reports []models.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.ReportID
	}
	return out
}
