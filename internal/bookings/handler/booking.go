package handler

import (
	"encoding/json"
	"net/http"

	admissionservice "suroloyo/internal/admission/service"
	"suroloyo/internal/bookings/service"
	"suroloyo/pkg/auth"
	apperrors "suroloyo/pkg/errors"
	httputil "suroloyo/pkg/http"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	admission admissionservice.AdmissionService
	bookings  service.BookingService
	log       *logger.Logger
}

func NewBookingHandler(admission admissionservice.AdmissionService, bookings service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		admission: admission,
		bookings:  bookings,
		log:       log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	var req model.AdmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.admission.Admit(r.Context(), identity, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, booking)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	booking, err := h.bookings.GetByID(r.Context(), identity, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) ListOwn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bookings, total, err := h.bookings.ListByUser(r.Context(), identity, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, total, limit, offset)
}

// ListByDateRange is the admin reporting endpoint: bookings whose hike date
// falls within [from, to].
func (h *BookingHandler) ListByDateRange(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	query := r.URL.Query()
	from := query.Get("from")
	to := query.Get("to")
	if from == "" || to == "" {
		httputil.WriteError(w, apperrors.InvalidInput("Both 'from' and 'to' query parameters are required"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bookings, total, err := h.bookings.ListByDateRange(r.Context(), identity, from, to, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, total, limit, offset)
}

func (h *BookingHandler) AttachPaymentProof(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	var proof model.PaymentProof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.bookings.AttachPaymentProof(r.Context(), identity, ps.ByName("id"), &proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

type verifyRequest struct {
	Approve bool `json:"approve"`
}

func (h *BookingHandler) Verify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.bookings.Verify(r.Context(), identity, ps.ByName("id"), req.Approve)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Missing identity"))
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), identity, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.ListOwn)
	router.GET("/api/v1/bookings/range", h.ListByDateRange)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/payment-proof", h.AttachPaymentProof)
	router.POST("/api/v1/bookings/id/:id/verify", h.Verify)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
}
