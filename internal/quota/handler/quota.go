package handler

import (
	"encoding/json"
	"net/http"

	"suroloyo/internal/quota/service"
	"suroloyo/pkg/auth"
	apperrors "suroloyo/pkg/errors"
	httputil "suroloyo/pkg/http"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type QuotaHandler struct {
	ledger service.Ledger
	log    *logger.Logger
}

func NewQuotaHandler(ledger service.Ledger, log *logger.Logger) *QuotaHandler {
	return &QuotaHandler{
		ledger: ledger,
		log:    log,
	}
}

func (h *QuotaHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		httputil.WriteError(w, apperrors.InvalidInput("'date' query parameter is required"))
		return
	}

	avail, err := h.ledger.Availability(r.Context(), date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, avail)
}

func (h *QuotaHandler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	from := query.Get("from")
	to := query.Get("to")
	if from == "" || to == "" {
		httputil.WriteError(w, apperrors.InvalidInput("Both 'from' and 'to' query parameters are required"))
		return
	}

	calendar, err := h.ledger.Calendar(r.Context(), from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, calendar)
}

func (h *QuotaHandler) SetCapacity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	var update model.QuotaUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}

	day, err := h.ledger.SetCapacity(r.Context(), identity, &update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, day)
}

func (h *QuotaHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/quota/availability", h.Availability)
	router.GET("/api/v1/quota/calendar", h.Calendar)
	router.PUT("/api/v1/quota/days", h.SetCapacity)
}

// AvailabilityHandler exposes only the public read endpoints. The bookings
// service mounts this alongside its own routes; capacity edits stay on the
// quota service.
type AvailabilityHandler struct {
	quota *QuotaHandler
}

func NewAvailabilityHandler(ledger service.Ledger, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{quota: NewQuotaHandler(ledger, log)}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/quota/availability", h.quota.Availability)
	router.GET("/api/v1/quota/calendar", h.quota.Calendar)
}
