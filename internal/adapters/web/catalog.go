package web

import (
	"net/http"

	"stockmaster/internal/app"
	"stockmaster/internal/core"
)

// ── Products ─────────────────────────────────────────────────────────────────

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var input core.ProductInput
	if !decodeJSON(w, r, &input) {
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var input core.ProductInput
	if !decodeJSON(w, r, &input) {
		return
	}
	product, err := h.svc.UpdateProduct(r.Context(), id, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	lowStockOnly := r.URL.Query().Get("low_stock") == "true"
	products, err := h.svc.ListProducts(r.Context(), lowStockOnly)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, products)
}

// ── Warehouses & locations ───────────────────────────────────────────────────

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req app.CreateWarehouseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	warehouse, err := h.svc.CreateWarehouse(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, warehouse)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.svc.ListWarehouses(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, warehouses)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req app.CreateLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	location, err := h.svc.CreateLocation(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, location)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.svc.ListLocations(r.Context(), queryInt(r, "warehouse_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, locations)
}

func (h *Handler) deactivateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateLocation(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Partners ─────────────────────────────────────────────────────────────────

func (h *Handler) createPartner(w http.ResponseWriter, r *http.Request) {
	var req app.CreatePartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	partner, err := h.svc.CreatePartner(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, partner)
}

func (h *Handler) listPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.svc.ListPartners(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, partners)
}
