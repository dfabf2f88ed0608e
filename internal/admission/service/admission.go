package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"suroloyo/internal/admission/validator"
	bookingserrors "suroloyo/internal/bookings/errors"
	"suroloyo/internal/bookings/repository"
	"suroloyo/internal/events"
	quotaservice "suroloyo/internal/quota/service"
	"suroloyo/pkg/auth"
	"suroloyo/pkg/config"
	apperrors "suroloyo/pkg/errors"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"
	"suroloyo/pkg/sanitizer"
)

const (
	bookingCodePrefix    = "SRL"
	bookingCodeSuffixLen = 4
	// maxCodeCollisions bounds regeneration attempts when a freshly minted
	// reservation code already exists.
	maxCodeCollisions = 3
)

var codeSpace = big.NewInt(36 * 36 * 36 * 36)

// AdmissionService is the single entry point for creating a booking. It owns
// the ordering: validate first, reserve capacity second, persist last, and
// compensate the ledger if persistence fails.
type AdmissionService interface {
	Admit(ctx context.Context, identity auth.Identity, req *model.AdmissionRequest) (*model.Booking, error)
}

type admissionService struct {
	repo      repository.BookingRepository
	ledger    quotaservice.Ledger
	validator *validator.PartyValidator
	publisher events.Publisher
	cfg       *config.Config
	log       *logger.Logger
}

func NewAdmissionService(repo repository.BookingRepository, ledger quotaservice.Ledger, partyValidator *validator.PartyValidator, publisher events.Publisher, cfg *config.Config, log *logger.Logger) AdmissionService {
	return &admissionService{
		repo:      repo,
		ledger:    ledger,
		validator: partyValidator,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Admit validates the roster, reserves seats on the requested date, and
// persists the booking in pending_payment. A reservation that loses the
// capacity race is retried once from the top; a persistence failure hands the
// reserved seats straight back.
func (s *admissionService) Admit(ctx context.Context, identity auth.Identity, req *model.AdmissionRequest) (*model.Booking, error) {
	if identity.UserID == "" {
		return nil, apperrors.Unauthorized("Missing caller identity")
	}

	s.sanitizeRequest(req)

	if err := s.validator.Validate(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			details := make(map[string]any, len(validationErrs))
			for _, verr := range validationErrs {
				details[verr.Field] = verr.Message
			}
			return nil, apperrors.Validation("Admission request failed validation", details)
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	if err := s.checkBookingWindow(req.Date); err != nil {
		return nil, err
	}

	booking, err := s.attempt(ctx, identity, req)
	if err != nil && apperrors.HasCode(err, apperrors.CodeConcurrentModify) {
		// One immediate retry: the ledger re-checks capacity from scratch,
		// so a transient version race resolves or turns into a real
		// capacity answer.
		booking, err = s.attempt(ctx, identity, req)
		if err != nil && apperrors.HasCode(err, apperrors.CodeConcurrentModify) {
			availability, availErr := s.ledger.Availability(ctx, req.Date)
			if availErr != nil {
				return nil, err
			}
			return nil, apperrors.CapacityExceeded(req.Date, len(req.Members), availability.Remaining)
		}
	}
	if err != nil {
		return nil, err
	}

	s.publisher.BookingAdmitted(ctx, booking)

	s.log.Info("booking admitted",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"booking_date", booking.BookingDate,
		"party_size", booking.PartySize,
	)

	return booking, nil
}

// attempt runs one reserve-then-persist pass. On a persist failure the
// reserved seats are released; a failed release is the only condition the
// service treats as a ledger inconsistency.
func (s *admissionService) attempt(ctx context.Context, identity auth.Identity, req *model.AdmissionRequest) (*model.Booking, error) {
	partySize := len(req.Members)

	if err := s.ledger.Reserve(ctx, req.Date, partySize); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		UserID:        identity.UserID,
		BookingDate:   req.Date,
		PartySize:     partySize,
		Members:       req.Members,
		Status:        model.StatusPendingPayment,
		TotalPriceIDR: int64(partySize) * s.cfg.TicketPriceIDR,
	}

	if err := s.persistWithFreshCode(ctx, booking); err != nil {
		s.compensate(ctx, req.Date, partySize, booking.ID)
		return nil, err
	}

	return booking, nil
}

func (s *admissionService) persistWithFreshCode(ctx context.Context, booking *model.Booking) error {
	for i := 0; i < maxCodeCollisions; i++ {
		code, err := generateBookingCode(time.Now().UTC().Year())
		if err != nil {
			return apperrors.Internal("Failed to generate reservation code", err)
		}

		booking.ID = code
		err = s.repo.Create(ctx, booking)
		if err == nil {
			return nil
		}
		if errors.Is(err, bookingserrors.ErrDuplicateID) {
			continue
		}
		return apperrors.Internal("Failed to persist booking", err)
	}

	return apperrors.Internal("Failed to generate a unique reservation code", nil)
}

// compensate returns seats taken by a booking that never persisted. If the
// release itself fails, the ledger is over-reserved relative to the booking
// records. That is logged loudly with everything an operator needs to
// reconcile by hand.
func (s *admissionService) compensate(ctx context.Context, date string, count int, attemptedID string) {
	if err := s.ledger.Release(ctx, date, count); err != nil {
		details := map[string]any{
			"date":         date,
			"seats":        count,
			"attempted_id": attemptedID,
		}
		inconsistency := apperrors.LedgerInconsistency("Failed to release seats after persistence failure", err, details)
		s.log.Error("quota ledger inconsistency: seats reserved without a backing booking",
			"date", date,
			"seats", count,
			"attempted_id", attemptedID,
			"error", inconsistency,
		)
	}
}

func (s *admissionService) sanitizeRequest(req *model.AdmissionRequest) {
	req.Date = sanitizer.TrimAndNormalize(req.Date)
	for i := range req.Members {
		m := &req.Members[i]
		m.FullName = sanitizer.NormalizeName(m.FullName)
		m.NationalID = sanitizer.NormalizeNIK(m.NationalID)
		m.Phone = sanitizer.NormalizePhone(m.Phone)
		m.Address = sanitizer.NormalizeAddress(m.Address)
		m.Gender = strings.ToUpper(sanitizer.TrimAndNormalize(m.Gender))
		m.DateOfBirth = sanitizer.TrimAndNormalize(m.DateOfBirth)
		if m.EmergencyContact != nil {
			m.EmergencyContact.Name = sanitizer.NormalizeName(m.EmergencyContact.Name)
			m.EmergencyContact.Phone = sanitizer.NormalizePhone(m.EmergencyContact.Phone)
			m.EmergencyContact.Relation = sanitizer.TrimAndNormalize(m.EmergencyContact.Relation)
		}
	}
}

// checkBookingWindow accepts dates from today through today+window, inclusive.
func (s *admissionService) checkBookingWindow(date string) error {
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return apperrors.InvalidInput("Invalid date format, must be YYYY-MM-DD")
	}

	today, _ := time.Parse(model.DateLayout, time.Now().UTC().Format(model.DateLayout))
	if day.Before(today) {
		return apperrors.InvalidInput("Booking date cannot be in the past")
	}

	horizon := today.AddDate(0, 0, s.cfg.BookingWindowDays)
	if day.After(horizon) {
		return apperrors.InvalidInput(fmt.Sprintf("Booking date must be within %d days from today", s.cfg.BookingWindowDays))
	}

	return nil
}

// generateBookingCode mints SRL-<year>-<4 uppercase base36 characters>.
func generateBookingCode(year int) (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}

	suffix := strings.ToUpper(n.Text(36))
	for len(suffix) < bookingCodeSuffixLen {
		suffix = "0" + suffix
	}

	return fmt.Sprintf("%s-%d-%s", bookingCodePrefix, year, suffix), nil
}
