package web

import (
	"net/http"
	"strconv"

	"stockmaster/internal/core"
)

// queryInt parses an optional integer query parameter, returning 0 when
// absent or malformed.
func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "productID")
	if !ok {
		return
	}
	locationID, ok := idParam(w, r, "locationID")
	if !ok {
		return
	}
	result, err := h.svc.GetStockByLocation(r.Context(), productID, locationID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.svc.ListStockLevels(r.Context(), queryInt(r, "location_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, levels)
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	filter := core.LedgerFilter{
		ProductID:     queryInt(r, "product_id"),
		LocationID:    queryInt(r, "location_id"),
		OperationType: core.OperationType(r.URL.Query().Get("operation_type")),
		Limit:         queryInt(r, "limit"),
	}
	entries, err := h.svc.ListLedger(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, entries)
}
