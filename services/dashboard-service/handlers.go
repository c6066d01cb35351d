package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"maintenance-dashboard/pkg/middleware"
	"maintenance-dashboard/pkg/response"
	"maintenance-dashboard/services/dashboard-service/export"
	"maintenance-dashboard/services/dashboard-service/models"
	"maintenance-dashboard/services/dashboard-service/reports"
	"maintenance-dashboard/services/dashboard-service/session"
	"maintenance-dashboard/services/dashboard-service/stats"
)

// requireAdmin re-checks the live user record behind the token and
// writes the rejection itself when the gate fails.
func requireAdmin(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	claims, ok := r.Context().Value(middleware.UserContextKey).(*middleware.UserClaims)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing session", "")
		return session.Identity{}, false
	}

	identity, err := resolver.Resolve(r.Context(), claims)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnverifiedEmail),
			errors.Is(err, session.ErrNoRecord),
			errors.Is(err, session.ErrNotAdmin),
			errors.Is(err, session.ErrNotApproved),
			errors.Is(err, session.ErrRoleInactive):
			response.Forbidden(w, err.Error())
		default:
			log.Printf("[ERROR] Failed to resolve session: %v", err)
			response.Error(w, http.StatusInternalServerError, "Failed to resolve session", "")
		}
		return session.Identity{}, false
	}
	return identity, true
}

func loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload", "")
		return
	}
	if input.Email == "" || input.Password == "" {
		response.Error(w, http.StatusBadRequest, "Email and Password are required", "")
		return
	}

	token, identity, err := resolver.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, session.ErrBadCredentials) {
			response.Error(w, http.StatusUnauthorized, "Invalid email or password", "")
			return
		}
		response.Forbidden(w, err.Error())
		return
	}

	response.Success(w, http.StatusOK, "Login successful", map[string]interface{}{
		"token": token,
		"user":  identity,
	})
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	identity, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	response.Success(w, http.StatusOK, "Session resolved", identity)
}

func filtersFromQuery(r *http.Request) stats.FilterSpec {
	q := r.URL.Query()
	f := stats.FilterSpec{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Location: q.Get("location"),
		Search:   strings.ToLower(strings.TrimSpace(q.Get("search"))),
	}
	if f.Status == "" {
		f.Status = stats.All
	}
	if f.Priority == "" {
		f.Priority = stats.All
	}
	if f.Location == "" {
		f.Location = stats.All
	}
	return f
}

func reportsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	if r.URL.Query().Get("refresh") == "true" {
		if err := cache.Load(r.Context()); err != nil {
			log.Printf("[ERROR] Failed to refresh reports: %v", err)
			response.Error(w, http.StatusInternalServerError, "Failed to refresh reports", "")
			return
		}
	}

	f := filtersFromQuery(r)
	filtered := stats.Filter(cache.All(), f)
	response.Success(w, http.StatusOK, "Reports retrieved", map[string]interface{}{
		"reports":   filtered,
		"total":     len(filtered),
		"locations": stats.Locations(cache.All()),
	})
}

func reportDetailHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		response.Error(w, http.StatusBadRequest, "Missing report ID", "")
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	report, found := cache.Get(id)
	if !found {
		response.Error(w, http.StatusNotFound, "Report not found", "")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		response.Success(w, http.StatusOK, "Report retrieved", report)
	case action == "history" && r.Method == http.MethodGet:
		response.Success(w, http.StatusOK, "History retrieved", reports.History(report))
	case action == "dialog/status" && r.Method == http.MethodGet:
		response.Success(w, http.StatusOK, "Status dialog", reports.NewStatusDialog(report))
	case action == "dialog/priority" && r.Method == http.MethodGet:
		response.Success(w, http.StatusOK, "Priority dialog", reports.NewPriorityDialog(report))
	case action == "status" && r.Method == http.MethodPut:
		updateStatus(w, r, id, identity)
	case action == "priority" && r.Method == http.MethodPut:
		updatePriority(w, r, id, identity)
	case action == "schedule" && r.Method == http.MethodPut:
		setSchedule(w, r, id, identity)
	case action == "export" && r.Method == http.MethodGet:
		exportSingle(w, report)
	default:
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	}
}

func updateStatus(w http.ResponseWriter, r *http.Request, id string, identity session.Identity) {
	var input struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload", "")
		return
	}

	actor := reports.Actor{ID: identity.UID, Name: identity.Name}
	err := cache.UpdateStatus(r.Context(), id, input.Status, input.Reason, actor)
	switch {
	case err == nil:
		updated, _ := cache.Get(id)
		response.Success(w, http.StatusOK, "Status updated", updated)
	case errors.Is(err, reports.ErrUnknownReport):
		response.Error(w, http.StatusNotFound, "Report not found", "")
	case errors.Is(err, reports.ErrReasonRequired):
		response.Error(w, http.StatusBadRequest, "Rejection reason is required", "")
	case errors.Is(err, reports.ErrScheduleRequired):
		response.Error(w, http.StatusConflict, "Scheduling requires a date and time; use the schedule endpoint", "")
	case errors.Is(err, reports.ErrCompletionWorkflow):
		response.Error(w, http.StatusConflict, "Completion must go through the completion workflow", "")
	case errors.Is(err, reports.ErrIllegalTransition):
		response.Error(w, http.StatusConflict, "Status transition not allowed", err.Error())
	default:
		log.Printf("[ERROR] Failed to update status for %s: %v", id, err)
		response.Error(w, http.StatusInternalServerError, "Failed to update status", "")
	}
}

func updatePriority(w http.ResponseWriter, r *http.Request, id string, identity session.Identity) {
	var input struct {
		Priority  string `json:"priority"`
		Confirmed bool   `json:"confirmed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload", "")
		return
	}

	actor := reports.Actor{ID: identity.UID, Name: identity.Name}
	err := cache.UpdatePriority(r.Context(), id, input.Priority, input.Confirmed, actor)
	switch {
	case err == nil:
		updated, _ := cache.Get(id)
		response.Success(w, http.StatusOK, "Priority updated", updated)
	case errors.Is(err, reports.ErrUnknownReport):
		response.Error(w, http.StatusNotFound, "Report not found", "")
	case errors.Is(err, reports.ErrConfirmationRequired):
		response.JSON(w, http.StatusConflict, map[string]interface{}{
			"status":  "error",
			"message": "Priority change requires confirmation",
			"rubric":  reports.ConfirmationRubric(input.Priority),
		})
	default:
		log.Printf("[ERROR] Failed to update priority for %s: %v", id, err)
		response.Error(w, http.StatusInternalServerError, "Failed to update priority", "")
	}
}

func setSchedule(w http.ResponseWriter, r *http.Request, id string, identity session.Identity) {
	var input struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload", "")
		return
	}

	actor := reports.Actor{ID: identity.UID, Name: identity.Name}
	err := cache.SetSchedule(r.Context(), id, input.Date, input.Time, actor)
	switch {
	case err == nil:
		updated, _ := cache.Get(id)
		response.Success(w, http.StatusOK, "Schedule set", updated)
	case errors.Is(err, reports.ErrUnknownReport):
		response.Error(w, http.StatusNotFound, "Report not found", "")
	case errors.Is(err, reports.ErrScheduleRequired):
		response.Error(w, http.StatusBadRequest, "Schedule date and time are required", "")
	case errors.Is(err, reports.ErrIllegalTransition):
		response.Error(w, http.StatusConflict, "Status transition not allowed", err.Error())
	default:
		log.Printf("[ERROR] Failed to schedule %s: %v", id, err)
		response.Error(w, http.StatusInternalServerError, "Failed to set schedule", "")
	}
}

func statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	all := cache.All()
	now := time.Now()
	response.Success(w, http.StatusOK, "Stats computed", map[string]interface{}{
		"status":     stats.CountByStatus(all),
		"priority":   stats.CountByPriority(all),
		"timeline":   stats.Last7Days(all, now),
		"locations":  stats.TopLocations(all),
		"department": stats.TopDepartments(all),
		"reporters":  stats.TopReporters(all),
		"completion": stats.CompletionTimes(all),
		"photos":     stats.CountPhotos(all),
		"upcoming":   stats.UpcomingScheduled(all),
	})
}

func exportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	f := filtersFromQuery(r)
	filtered := stats.Filter(cache.All(), f)
	if len(filtered) == 0 {
		response.Error(w, http.StatusNotFound, "No reports to export with current filters", "")
		return
	}

	writePDF(w, export.Filename(f), filtered)
}

func exportSingle(w http.ResponseWriter, report models.Report) {
	writePDF(w, export.SingleFilename(report.Title), []models.Report{report})
}

func writePDF(w http.ResponseWriter, stem string, list []models.Report) {
	filename := fmt.Sprintf("%s_%d.pdf", stem, time.Now().UnixMilli())
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Generate(w, list, time.Now()); err != nil {
		log.Printf("[ERROR] Failed to generate PDF: %v", err)
	}
}
