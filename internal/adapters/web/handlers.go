package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stockmaster/internal/app"
	"stockmaster/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, log *logrus.Logger) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public) ─────────────────────────────────────────────────────────
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (401 JSON if unauthenticated) ────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Documents: create/list/get plus one POST action endpoint per type.
		// Every state change goes through the typed action set.
		r.Get("/api/receipts", h.listReceipts)
		r.Post("/api/receipts", h.createReceipt)
		r.Get("/api/receipts/{id}", h.getReceipt)
		r.Post("/api/receipts/{id}/{action}", h.receiptAction)

		r.Get("/api/deliveries", h.listDeliveries)
		r.Post("/api/deliveries", h.createDelivery)
		r.Get("/api/deliveries/{id}", h.getDelivery)
		r.Post("/api/deliveries/{id}/{action}", h.deliveryAction)

		r.Get("/api/transfers", h.listTransfers)
		r.Post("/api/transfers", h.createTransfer)
		r.Get("/api/transfers/{id}", h.getTransfer)
		r.Post("/api/transfers/{id}/{action}", h.transferAction)

		r.Get("/api/adjustments", h.listAdjustments)
		r.Post("/api/adjustments", h.createAdjustment)
		r.Get("/api/adjustments/{id}", h.getAdjustment)
		r.Post("/api/adjustments/{id}/{action}", h.adjustmentAction)

		// Stock & ledger
		r.Get("/api/stock", h.listStock)
		r.Get("/api/stock/{productID}/{locationID}", h.getStock)
		r.Get("/api/ledger", h.listLedger)

		// Catalog
		r.Get("/api/products", h.listProducts)
		r.Post("/api/products", h.createProduct)
		r.Get("/api/products/{id}", h.getProduct)
		r.Put("/api/products/{id}", h.updateProduct)
		r.Get("/api/warehouses", h.listWarehouses)
		r.Post("/api/warehouses", h.createWarehouse)
		r.Get("/api/locations", h.listLocations)
		r.Post("/api/locations", h.createLocation)
		r.Post("/api/locations/{id}/deactivate", h.deactivateLocation)
		r.Get("/api/partners", h.listPartners)
		r.Post("/api/partners", h.createPartner)

		// Dashboard
		r.Get("/api/dashboard", h.dashboard)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDashboard(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, d)
}

// idParam extracts the numeric {id} URL parameter.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name+" parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// stateFilter parses the optional ?state= query parameter.
func stateFilter(r *http.Request) *core.DocumentState {
	if v := r.URL.Query().Get("state"); v != "" {
		s := core.DocumentState(v)
		return &s
	}
	return nil
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
