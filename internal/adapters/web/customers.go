package web

import "net/http"

// dashboard handles GET /api/dashboard.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, d)
}

// listLedger handles GET /api/ledger?page=, newest entries first.
func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListLedger(r.Context(), queryPage(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, page)
}

// listCustomers handles GET /api/customers?search=&page=.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListCustomers(r.Context(), r.URL.Query().Get("search"), queryPage(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, page)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.svc.GetCustomer(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, detail)
}

// deleteCustomer handles DELETE /api/customers/{id}. Every service item of the
// customer goes with it.
func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCustomer(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("customer deleted", "customer_id", id, "operator", operator(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
