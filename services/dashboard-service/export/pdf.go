// Package export renders report collections as downloadable PDF
// documents.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"maintenance-dashboard/services/dashboard-service/models"
	"maintenance-dashboard/services/dashboard-service/stats"
)

const (
	pageMargin  = 15.0
	lineHeight  = 5.0
	photoHeight = 80.0
)

var filenameSafe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Filename derives the export filename stem from the active filters:
// All_Reports when none are active, otherwise a summary of each
// dimension.
func Filename(f stats.FilterSpec) string {
	parts := f.Describe()
	if len(parts) == 0 {
		return "All_Reports"
	}
	return "Filtered_Reports_" + filenameSafe.ReplaceAllString(strings.Join(parts, "_"), "_")
}

// SingleFilename derives the filename stem for a single-report export.
func SingleFilename(title string) string {
	return "Report_" + filenameSafe.ReplaceAllString(title, "_")
}

// Generate writes a PDF document listing the given reports, including
// embedded report and completion photos, to w.
func Generate(w io.Writer, reports []models.Report, now time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin
	y := pageMargin

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(pageMargin, y+6, "Maintenance Reports")
	y += 10

	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(pageMargin, y+3, "Generated: "+now.Format("1/2/2006, 3:04:05 PM"))
	pdf.Text(pageWidth-pageMargin-50, y+3, fmt.Sprintf("Total Reports: %d", len(reports)))
	y += 10

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pageMargin, y, pageWidth-pageMargin, y)
	y += 10

	for i, r := range reports {
		if y > pageHeight-60 {
			pdf.AddPage()
			y = pageMargin
		}

		title := r.Title
		if title == "" {
			title = "Untitled Report"
		}
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Text(pageMargin, y, fmt.Sprintf("%d. %s", i+1, title))
		y += 8

		pdf.SetFont("Helvetica", "B", 11)
		pdf.Text(pageMargin+5, y, "Status: "+strings.ToUpper(orDefault(r.Status, "Pending")))
		pdf.Text(pageMargin+80, y, "Priority: "+strings.ToUpper(orDefault(r.Priority, "Medium")))
		y += 7

		pdf.SetFont("Helvetica", "", 9)
		line := func(s string) {
			pdf.Text(pageMargin+5, y, s)
			y += lineHeight
		}
		wrapped := func(s string) {
			lines := pdf.SplitText(s, contentWidth-10)
			for _, l := range lines {
				pdf.Text(pageMargin+5, y, l)
				y += lineHeight
			}
			y += 3
		}

		line("Location: " + orDefault(r.Location, "Unknown"))
		line("Campus: " + orDefault(r.Campus, "Unknown"))
		if r.Department != "" {
			line("Department: " + r.Department)
		}
		wrapped("Description: " + orDefault(r.Description, "No description"))
		line("Created: " + formatStamp(r.CreatedAt))
		line("Reported by: " + orDefault(orDefault(r.ReportedByName, r.ReportedBy), "Unknown"))

		if r.ScheduledDate != "" {
			line(strings.TrimSpace("Scheduled: " + r.ScheduledDate + " " + r.ScheduledTime))
			if r.ScheduledByName != "" {
				line("Scheduled by: " + r.ScheduledByName)
			}
		}
		if r.AssignedTo != "" {
			line("Assigned to: " + orDefault(r.AssignedToName, r.AssignedTo))
		}
		if r.CompletedAt > 0 {
			line("Completed: " + formatStamp(r.CompletedAt))
			if r.CompletedByName != "" {
				line("Completed by: " + r.CompletedByName)
			}
			line("Duration: " + formatDuration(r.CompletedAt-r.CreatedAt))
		}
		if r.RejectedAt > 0 {
			line("Rejected: " + formatStamp(r.RejectedAt))
			if r.RejectedByName != "" {
				line("Rejected by: " + r.RejectedByName)
			}
			if r.RejectionReason != "" {
				wrapped("Reason: " + r.RejectionReason)
			}
		}
		if r.PartialCompletionNotes != "" {
			wrapped("Partial Completion Notes: " + r.PartialCompletionNotes)
		}

		y = embedPhoto(pdf, y, pageHeight, contentWidth, "Report Photo:", r.PhotoBase64, fmt.Sprintf("report-%d", i))
		y = embedPhoto(pdf, y, pageHeight, contentWidth, "Completion Photo:", r.CompletionPhotoBase64, fmt.Sprintf("completion-%d", i))

		y += 5
		pdf.SetDrawColor(220, 220, 220)
		pdf.Line(pageMargin, y, pageWidth-pageMargin, y)
		y += 10
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// embedPhoto decodes a base64 photo payload and places it on the page,
// starting a new page when the remaining space is too small. Broken
// payloads degrade to a placeholder line.
func embedPhoto(pdf *fpdf.Fpdf, y, pageHeight, contentWidth float64, label, encoded, name string) float64 {
	if encoded == "" {
		return y
	}
	if y > pageHeight-100 {
		pdf.AddPage()
		y = pageMargin
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.Text(pageMargin+5, y, label)
	y += 7
	pdf.SetFont("Helvetica", "", 9)

	raw, format, err := decodePhoto(encoded)
	if err != nil {
		pdf.Text(pageMargin+5, y, "("+strings.TrimSuffix(label, ":")+" could not be loaded)")
		return y + lineHeight
	}

	opts := fpdf.ImageOptions{ImageType: format, ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	if pdf.Err() {
		pdf.ClearError()
		pdf.Text(pageMargin+5, y, "("+strings.TrimSuffix(label, ":")+" could not be loaded)")
		return y + lineHeight
	}
	pdf.ImageOptions(name, pageMargin+5, y, contentWidth-10, photoHeight, false, opts, 0, "")
	return y + photoHeight + 7
}

// decodePhoto strips whitespace from a stored base64 payload, sniffs
// the format from the encoded prefix, and decodes it. Unrecognized
// prefixes fall back to JPEG.
func decodePhoto(encoded string) ([]byte, string, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, encoded)

	format := "JPG"
	if strings.HasPrefix(clean, "iVBORw0KGgo") {
		format = "PNG"
	}

	raw, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode photo: %w", err)
	}
	return raw, format, nil
}

func formatStamp(ms int64) string {
	return time.UnixMilli(ms).Format("Jan 2, 2006, 3:04 PM")
}

func formatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
