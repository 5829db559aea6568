package web

import (
	"fmt"
	"net/http"
	"strconv"

	"repair-desk/internal/app"
	"repair-desk/internal/core"
)

// ── Intake ───────────────────────────────────────────────────────────────────

// createIntake handles POST /api/services.
func (h *Handler) createIntake(w http.ResponseWriter, r *http.Request) {
	var in core.IntakeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	// Backdating is reserved for seeding.
	in.ReceivedAt = nil

	intake, err := h.svc.CreateIntake(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("device received",
		"inward_number", intake.Inward.InwardNumber,
		"service_id", intake.Item.ID,
		"operator", operator(r.Context()))
	writeCreated(w, intake)
}

// interpretIntake handles POST /api/services/interpret. Nothing is persisted.
func (h *Handler) interpretIntake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Note == "" {
		writeError(w, r, "note is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.InterpretIntake(r.Context(), req.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) nextInwardNumber(w http.ResponseWriter, r *http.Request) {
	next, err := h.svc.NextInwardNumber(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"inward_number": next})
}

// ── Service items ────────────────────────────────────────────────────────────

// listServices handles GET /api/services?search=&device_type=&status=&date_from=&date_to=&page=.
func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.ListServices(r.Context(), app.ServiceListRequest{
		Search:     q.Get("search"),
		DeviceType: q.Get("device_type"),
		Status:     q.Get("status"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
		Page:       queryPage(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, page)
}

// getService handles GET /api/services/{id} and returns the full service report.
func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	report, err := h.svc.GetServiceReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) updateServiceDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in core.DeviceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.svc.UpdateServiceDetails(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteService(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("service deleted", "service_id", id, "operator", operator(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// ── Workflow ─────────────────────────────────────────────────────────────────

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) updateCost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		ActualCost core.AmountText `json:"actual_cost"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateActualCost(r.Context(), id, string(req.ActualCost))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PaymentStatus string `json:"payment_status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdatePaymentStatus(r.Context(), id, req.PaymentStatus)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, item)
}

// ── Ledger and expenses ──────────────────────────────────────────────────────

func (h *Handler) serviceLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	report, err := h.svc.GetServiceReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	type response struct {
		Entries []core.LedgerEntry `json:"entries"`
		Total   string             `json:"total"`
	}
	writeJSON(w, response{Entries: report.Ledger, Total: report.LedgerTotal.StringFixed(2)})
}

// addLedgerEntry handles POST /api/services/{id}/ledger. Entries without an
// author are attributed to the logged-in user.
func (h *Handler) addLedgerEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in core.ManualEntryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.CreatedBy == "" {
		in.CreatedBy = operator(r.Context())
	}
	entry, err := h.svc.AddLedgerEntry(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, entry)
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in core.ExpenseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	expense, err := h.svc.AddExpense(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, expense)
}

// exportServiceReport handles GET /api/services/{id}/report.xlsx.
func (h *Handler) exportServiceReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := h.svc.ExportServiceReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	_, _ = w.Write(out.Data)
}
