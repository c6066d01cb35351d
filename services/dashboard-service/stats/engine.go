// Package stats computes filtered subsets and aggregate statistics over
// the full report collection. Everything here is pure and synchronous;
// the rendering client turns the returned tables into charts.
package stats

import (
	"sort"
	"strings"
	"time"

	"maintenance-dashboard/services/dashboard-service/models"
)

// All is the sentinel meaning "do not filter on this dimension".
const All = "all"

type FilterSpec struct {
	Status   string
	Priority string
	Location string
	Search   string
}

func (f FilterSpec) IsEmpty() bool {
	return (f.Status == All || f.Status == "") &&
		(f.Priority == All || f.Priority == "") &&
		(f.Location == All || f.Location == "") &&
		f.Search == ""
}

// Describe returns a short human-readable summary of the active
// dimensions, used for export filenames.
func (f FilterSpec) Describe() []string {
	var parts []string
	if f.Status != All && f.Status != "" {
		parts = append(parts, "Status: "+f.Status)
	}
	if f.Priority != All && f.Priority != "" {
		parts = append(parts, "Priority: "+f.Priority)
	}
	if f.Location != All && f.Location != "" {
		parts = append(parts, "Location: "+f.Location)
	}
	if f.Search != "" {
		parts = append(parts, `Search: "`+f.Search+`"`)
	}
	return parts
}

func normalizeStatus(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// Filter returns the subset where every non-"all"/non-empty dimension
// matches. Status and priority compare case-insensitively, status with
// whitespace stripped; location compares exactly; search matches as a
// substring of the lowercased title+description+location+reporter
// fields.
func Filter(reports []models.Report, f FilterSpec) []models.Report {
	var out []models.Report
	for _, r := range reports {
		if f.Status != All && f.Status != "" {
			if normalizeStatus(r.Status) != normalizeStatus(f.Status) {
				continue
			}
		}
		if f.Priority != All && f.Priority != "" {
			if !strings.EqualFold(r.Priority, f.Priority) {
				continue
			}
		}
		if f.Location != All && f.Location != "" {
			if r.Location != f.Location {
				continue
			}
		}
		if f.Search != "" {
			searchIn := strings.ToLower(r.Title + " " + r.Description + " " + r.Location + " " + r.ReportedBy + " " + r.ReportedByName)
			if !strings.Contains(searchIn, strings.ToLower(f.Search)) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// StatusCounts buckets every report by workflow status. Active is the
// sum of the non-terminal buckets.
type StatusCounts struct {
	Pending            int `json:"pending"`
	Scheduled          int `json:"scheduled"`
	InProgress         int `json:"inProgress"`
	Completed          int `json:"completed"`
	PartiallyCompleted int `json:"partiallyCompleted"`
	Rejected           int `json:"rejected"`
	Total              int `json:"total"`
	Active             int `json:"active"`
}

func CountByStatus(reports []models.Report) StatusCounts {
	var c StatusCounts
	c.Total = len(reports)
	for _, r := range reports {
		switch normalizeStatus(r.Status) {
		case "pending":
			c.Pending++
		case "scheduled":
			c.Scheduled++
		case "inprogress":
			c.InProgress++
		case "completed":
			c.Completed++
		case "partiallycompleted":
			c.PartiallyCompleted++
		case "rejected":
			c.Rejected++
		}
	}
	c.Active = c.Pending + c.Scheduled + c.InProgress + c.PartiallyCompleted
	return c
}

// PriorityCounts is the fixed canonical bucket set. Reports with no
// priority default to medium.
type PriorityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

func CountByPriority(reports []models.Report) PriorityCounts {
	var c PriorityCounts
	for _, r := range reports {
		switch strings.ToLower(r.Priority) {
		case "critical":
			c.Critical++
		case "high":
			c.High++
		case "low":
			c.Low++
		default:
			c.Medium++
		}
	}
	return c
}

// FrequencyEntry is one row of a top-N ranking.
type FrequencyEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

func topN(counts map[string]int, n int) []FrequencyEntry {
	entries := make([]FrequencyEntry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, FrequencyEntry{Label: label, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func TopLocations(reports []models.Report) []FrequencyEntry {
	counts := map[string]int{}
	for _, r := range reports {
		loc := r.Location
		if loc == "" {
			loc = "Unknown"
		}
		counts[loc]++
	}
	return topN(counts, 10)
}

func TopDepartments(reports []models.Report) []FrequencyEntry {
	counts := map[string]int{}
	for _, r := range reports {
		dept := r.Department
		if dept == "" {
			dept = "Not Specified"
		}
		counts[dept]++
	}
	return topN(counts, 10)
}

func TopReporters(reports []models.Report) []FrequencyEntry {
	counts := map[string]int{}
	for _, r := range reports {
		name := r.ReportedByName
		if name == "" {
			name = r.ReportedBy
		}
		if name == "" {
			name = "Unknown"
		}
		counts[name]++
	}
	return topN(counts, 10)
}

// TimelineBucket is one calendar day of the rolling histogram.
type TimelineBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Last7Days buckets report creation times into the trailing seven
// calendar days (local time, oldest first, today last). Reports outside
// the window are ignored.
func Last7Days(reports []models.Report, now time.Time) []TimelineBucket {
	buckets := make([]TimelineBucket, 7)
	days := make([]time.Time, 7)
	for i := 0; i < 7; i++ {
		d := now.AddDate(0, 0, i-6)
		days[i] = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		buckets[i].Label = days[i].Format("Jan 2")
	}

	for _, r := range reports {
		if r.CreatedAt == 0 {
			continue
		}
		created := time.UnixMilli(r.CreatedAt).In(now.Location())
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, now.Location())
		for i := range days {
			if day.Equal(days[i]) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// CompletionStats summarizes how long completed work took. HasData is
// false when no report carries both createdAt and completedAt, in which
// case the averages are zero and the distribution empty.
type CompletionStats struct {
	HasData      bool    `json:"hasData"`
	AverageDays  float64 `json:"averageDays"`
	UnderOneDay  int     `json:"underOneDay"`
	OneToThree   int     `json:"oneToThreeDays"`
	ThreeToSeven int     `json:"threeToSevenDays"`
	OverSeven    int     `json:"overSevenDays"`
}

func CompletionTimes(reports []models.Report) CompletionStats {
	var s CompletionStats
	var totalDays float64
	var n int

	for _, r := range reports {
		status := normalizeStatus(r.Status)
		if status != "completed" && status != "partiallycompleted" {
			continue
		}
		if r.CreatedAt == 0 || r.CompletedAt == 0 {
			continue
		}
		days := float64(r.CompletedAt-r.CreatedAt) / float64(24*time.Hour.Milliseconds())
		totalDays += days
		n++
		switch {
		case days < 1:
			s.UnderOneDay++
		case days <= 3:
			s.OneToThree++
		case days <= 7:
			s.ThreeToSeven++
		default:
			s.OverSeven++
		}
	}

	if n == 0 {
		return s
	}
	s.HasData = true
	s.AverageDays = totalDays / float64(n)
	return s
}

// PhotoStats counts reports by attachment coverage.
type PhotoStats struct {
	WithPhoto           int `json:"withPhoto"`
	WithCompletionPhoto int `json:"withCompletionPhoto"`
	WithoutPhoto        int `json:"withoutPhoto"`
}

func CountPhotos(reports []models.Report) PhotoStats {
	var s PhotoStats
	for _, r := range reports {
		hasReportPhoto := r.PhotoBase64 != ""
		hasCompletionPhoto := r.CompletionPhotoBase64 != ""
		if hasReportPhoto {
			s.WithPhoto++
		}
		if hasCompletionPhoto {
			s.WithCompletionPhoto++
		}
		if !hasReportPhoto && !hasCompletionPhoto {
			s.WithoutPhoto++
		}
	}
	return s
}

// UpcomingScheduled returns scheduled reports carrying a schedule date,
// soonest first.
func UpcomingScheduled(reports []models.Report) []models.Report {
	var out []models.Report
	for _, r := range reports {
		if strings.EqualFold(r.Status, "scheduled") && r.ScheduledDate != "" {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScheduledDate != out[j].ScheduledDate {
			return out[i].ScheduledDate < out[j].ScheduledDate
		}
		return out[i].ScheduledTime < out[j].ScheduledTime
	})
	return out
}

// Locations returns the distinct non-empty locations, sorted, for the
// location filter dropdown.
func Locations(reports []models.Report) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range reports {
		if r.Location != "" && !seen[r.Location] {
			seen[r.Location] = true
			out = append(out, r.Location)
		}
	}
	sort.Strings(out)
	return out
}
