package reporting

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

// DashboardHandler serves workspace dashboard metrics. It runs read-only
// aggregate queries through database/sql so the reporting path stays
// independent of the transactional pgx pool.
type DashboardHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// DashboardResponse contains the core workspace metrics.
type DashboardResponse struct {
	WorkspaceID         string `json:"workspace_id"`
	PeriodStart         string `json:"period_start"`
	PeriodEnd           string `json:"period_end"`
	Bookings            int64  `json:"bookings"`
	CancelledBookings   int64  `json:"cancelled_bookings"`
	NewContacts         int64  `json:"new_contacts"`
	UnreadConversations int64  `json:"unread_conversations"`
	FormSubmissions     int64  `json:"form_submissions"`
	LowStockItems       int64  `json:"low_stock_items"`
	FailedAutomations   int64  `json:"failed_automations"`
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(db *sql.DB, logger *logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardHandler{db: db, logger: logger}
}

// GetDashboard returns the dashboard metrics.
// GET /reports/dashboard
// Query params:
//   - start: RFC3339 timestamp (optional, requires end)
//   - end: RFC3339 timestamp (optional, requires start)
//
// Without a window the last 30 days are reported.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}
	if h.db == nil {
		http.Error(w, "reporting disabled", http.StatusServiceUnavailable)
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := DashboardResponse{
		WorkspaceID: workspaceID,
		PeriodStart: start.Format(time.RFC3339),
		PeriodEnd:   end.Format(time.RFC3339),
	}

	counts := []struct {
		dest  *int64
		name  string
		query string
	}{
		{&resp.Bookings, "bookings",
			`SELECT COUNT(*) FROM bookings WHERE workspace_id = $1 AND status <> 'cancelled' AND created_at >= $2 AND created_at < $3`},
		{&resp.CancelledBookings, "cancelled bookings",
			`SELECT COUNT(*) FROM bookings WHERE workspace_id = $1 AND status = 'cancelled' AND created_at >= $2 AND created_at < $3`},
		{&resp.NewContacts, "contacts",
			`SELECT COUNT(*) FROM contacts WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3`},
		{&resp.FormSubmissions, "form submissions",
			`SELECT COUNT(*) FROM form_submissions WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3`},
		{&resp.FailedAutomations, "failed automations",
			`SELECT COUNT(*) FROM automation_logs WHERE workspace_id = $1 AND status = 'failed' AND created_at >= $2 AND created_at < $3`},
	}
	for _, c := range counts {
		n, err := h.countWindowed(r.Context(), c.query, workspaceID, start, end)
		if err != nil {
			h.logger.Error("failed to count "+c.name, "workspace_id", workspaceID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		*c.dest = n
	}

	// Point-in-time gauges ignore the window.
	resp.UnreadConversations, err = h.count(r.Context(),
		`SELECT COUNT(*) FROM conversations WHERE workspace_id = $1 AND unread_count > 0`, workspaceID)
	if err != nil {
		h.logger.Error("failed to count unread conversations", "workspace_id", workspaceID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp.LowStockItems, err = h.count(r.Context(),
		`SELECT COUNT(*) FROM inventory_items WHERE workspace_id = $1 AND low_stock_threshold > 0 AND quantity <= low_stock_threshold`, workspaceID)
	if err != nil {
		h.logger.Error("failed to count low stock items", "workspace_id", workspaceID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *DashboardHandler) countWindowed(ctx context.Context, query, workspaceID string, start, end time.Time) (int64, error) {
	var count int64
	if err := h.db.QueryRowContext(ctx, query, workspaceID, start, end).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (h *DashboardHandler) count(ctx context.Context, query, workspaceID string) (int64, error) {
	var count int64
	if err := h.db.QueryRowContext(ctx, query, workspaceID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")

	if startRaw == "" && endRaw == "" {
		end := time.Now().UTC()
		return end.AddDate(0, 0, -30), end, nil
	}
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end must be provided together")
	}

	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end must be after start")
	}
	return start.UTC(), end.UTC(), nil
}
