package web

import (
	"net/http"

	"stockmaster/internal/app"

	"github.com/go-chi/chi/v5"
)

// actionParam extracts the {action} URL parameter.
func actionParam(r *http.Request) string {
	return chi.URLParam(r, "action")
}

// ── Receipts ─────────────────────────────────────────────────────────────────

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	var req app.CreateReceiptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actorID(r)

	receipt, err := h.svc.CreateReceipt(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, receipt)
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	receipt, err := h.svc.GetReceipt(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, receipt)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.svc.ListReceipts(r.Context(), stateFilter(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, receipts)
}

func (h *Handler) receiptAction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	receipt, err := h.svc.ReceiptAction(r.Context(), id, actionParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, receipt)
}

// ── Deliveries ───────────────────────────────────────────────────────────────

func (h *Handler) createDelivery(w http.ResponseWriter, r *http.Request) {
	var req app.CreateDeliveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actorID(r)

	delivery, err := h.svc.CreateDelivery(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, delivery)
}

func (h *Handler) getDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	delivery, err := h.svc.GetDelivery(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, delivery)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.svc.ListDeliveries(r.Context(), stateFilter(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, deliveries)
}

func (h *Handler) deliveryAction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	delivery, err := h.svc.DeliveryAction(r.Context(), id, actionParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, delivery)
}

// ── Transfers ────────────────────────────────────────────────────────────────

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req app.CreateTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actorID(r)

	transfer, err := h.svc.CreateTransfer(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, transfer)
}

func (h *Handler) getTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	transfer, err := h.svc.GetTransfer(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, transfer)
}

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.svc.ListTransfers(r.Context(), stateFilter(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, transfers)
}

func (h *Handler) transferAction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	transfer, err := h.svc.TransferAction(r.Context(), id, actionParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, transfer)
}

// ── Adjustments ──────────────────────────────────────────────────────────────

func (h *Handler) createAdjustment(w http.ResponseWriter, r *http.Request) {
	var req app.CreateAdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actorID(r)

	adjustment, err := h.svc.CreateAdjustment(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, adjustment)
}

func (h *Handler) getAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	adjustment, err := h.svc.GetAdjustment(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, adjustment)
}

func (h *Handler) listAdjustments(w http.ResponseWriter, r *http.Request) {
	adjustments, err := h.svc.ListAdjustments(r.Context(), stateFilter(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, adjustments)
}

func (h *Handler) adjustmentAction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	adjustment, err := h.svc.AdjustmentAction(r.Context(), id, actionParam(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, adjustment)
}
