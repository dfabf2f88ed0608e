package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "suroloyo/internal/bookings/errors"
	"suroloyo/internal/bookings/repository"
	"suroloyo/internal/events"
	quotaservice "suroloyo/internal/quota/service"
	"suroloyo/pkg/auth"
	"suroloyo/pkg/config"
	apperrors "suroloyo/pkg/errors"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// expirySweepBatchSize bounds how many overdue bookings one sweep pass
// cancels. Leftovers are picked up on the next tick.
const expirySweepBatchSize = 100

type BookingService interface {
	GetByID(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, identity auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error)
	ListByDateRange(ctx context.Context, identity auth.Identity, from, to string, limit int, offset int64) ([]*model.Booking, int64, error)
	AttachPaymentProof(ctx context.Context, identity auth.Identity, id string, proof *model.PaymentProof) (*model.Booking, error)
	Verify(ctx context.Context, identity auth.Identity, id string, approve bool) (*model.Booking, error)
	Cancel(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error)
	SweepExpired(ctx context.Context) (int, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	ledger    quotaservice.Ledger
	publisher events.Publisher
	validate  *validator.Validate
	cfg       *config.Config
	log       *logger.Logger
}

func NewBookingService(repo repository.BookingRepository, ledger quotaservice.Ledger, publisher events.Publisher, cfg *config.Config, log *logger.Logger) BookingService {
	return &bookingService{
		repo:      repo,
		ledger:    ledger,
		publisher: publisher,
		validate:  validator.New(),
		cfg:       cfg,
		log:       log,
	}
}

// GetByID returns the booking if the caller owns it or is an admin.
func (s *bookingService) GetByID(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error) {
	booking, err := s.findVisible(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) findVisible(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to load booking", err)
	}

	if booking.UserID != identity.UserID && !identity.IsAdmin() {
		// Report not-found rather than forbidden so booking codes cannot
		// be probed for existence.
		return nil, apperrors.NotFoundWithID("Booking", id)
	}

	return booking, nil
}

func (s *bookingService) ListByUser(ctx context.Context, identity auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.repo.FindByUser(ctx, identity.UserID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list bookings", err)
	}

	total, err := s.repo.CountByUser(ctx, identity.UserID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	return bookings, total, nil
}

// ListByDateRange is the admin reporting read: every booking whose hike date
// falls inside [from, to].
func (s *bookingService) ListByDateRange(ctx context.Context, identity auth.Identity, from, to string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if err := auth.RequireAdmin(identity); err != nil {
		return nil, 0, err
	}

	fromDay, err := time.Parse(model.DateLayout, from)
	if err != nil {
		return nil, 0, apperrors.InvalidInput("Invalid from date, must be YYYY-MM-DD")
	}
	toDay, err := time.Parse(model.DateLayout, to)
	if err != nil {
		return nil, 0, apperrors.InvalidInput("Invalid to date, must be YYYY-MM-DD")
	}
	if toDay.Before(fromDay) {
		return nil, 0, apperrors.InvalidInput("Date range end must not precede its start")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.repo.FindByDateRange(ctx, from, to, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list bookings", err)
	}

	total, err := s.repo.CountByDateRange(ctx, from, to)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	return bookings, total, nil
}

// AttachPaymentProof records the uploaded transfer proof and advances the
// booking to awaiting_verification. The status guard on the update keeps a
// double submit from re-applying.
func (s *bookingService) AttachPaymentProof(ctx context.Context, identity auth.Identity, id string, proof *model.PaymentProof) (*model.Booking, error) {
	if err := s.validate.Struct(proof); err != nil {
		return nil, apperrors.InvalidInput("Invalid payment proof payload")
	}

	booking, err := s.findVisible(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if booking.Status != model.StatusPendingPayment {
		return nil, apperrors.InvalidStateTransition(booking.Status, model.StatusAwaitingVerification)
	}

	set := bson.M{
		"payment_proof_url": proof.ProofURL,
		"payment_method":    proof.Method,
	}
	err = s.repo.UpdateStatus(ctx, id, model.StatusPendingPayment, model.StatusAwaitingVerification, set)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusMismatch) {
			return nil, apperrors.InvalidStateTransition(booking.Status, model.StatusAwaitingVerification)
		}
		return nil, apperrors.Internal("Failed to attach payment proof", err)
	}

	updated := *booking
	updated.Status = model.StatusAwaitingVerification
	updated.PaymentProofURL = proof.ProofURL
	updated.PaymentMethod = proof.Method
	s.publisher.BookingStatusChanged(ctx, &updated, model.StatusPendingPayment)

	return &updated, nil
}

// Verify resolves an awaiting_verification booking. Approval confirms it;
// rejection cancels the payment and hands the seats back to the ledger in the
// same transaction as the status flip.
func (s *bookingService) Verify(ctx context.Context, identity auth.Identity, id string, approve bool) (*model.Booking, error) {
	if err := auth.RequireAdmin(identity); err != nil {
		return nil, err
	}

	booking, err := s.findVisible(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	target := model.StatusConfirmed
	if !approve {
		target = model.StatusRejected
	}

	if !model.CanTransition(booking.Status, target) {
		return nil, apperrors.InvalidStateTransition(booking.Status, target)
	}

	if err := s.transition(ctx, booking, model.StatusAwaitingVerification, target); err != nil {
		return nil, err
	}

	previous := booking.Status
	booking.Status = target
	s.publisher.BookingStatusChanged(ctx, booking, previous)

	return booking, nil
}

// Cancel voids a booking that has not been confirmed yet and releases its
// seats. Owners cancel their own bookings; admins may cancel any.
func (s *bookingService) Cancel(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error) {
	booking, err := s.findVisible(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(booking.Status, model.StatusCancelled) {
		return nil, apperrors.InvalidStateTransition(booking.Status, model.StatusCancelled)
	}

	if err := s.transition(ctx, booking, booking.Status, model.StatusCancelled); err != nil {
		return nil, err
	}

	previous := booking.Status
	booking.Status = model.StatusCancelled
	s.publisher.BookingStatusChanged(ctx, booking, previous)

	return booking, nil
}

// transition flips the booking from->to. When the target status releases
// capacity, the status write and the ledger release run in one Mongo
// transaction so a crash between them cannot strand seats.
func (s *bookingService) transition(ctx context.Context, booking *model.Booking, from, to string) error {
	if !model.ReleasesCapacity(to) {
		return s.applyTransition(ctx, booking, from, to)
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.applyTransition(sessCtx, booking, from, to); err != nil {
			return err
		}
		if err := s.ledger.Release(sessCtx, booking.BookingDate, booking.PartySize); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Internal("Failed to update booking status", err)
	}

	return nil
}

func (s *bookingService) applyTransition(ctx context.Context, booking *model.Booking, from, to string) error {
	err := s.repo.UpdateStatus(ctx, booking.ID, from, to, nil)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusMismatch) {
			return apperrors.InvalidStateTransition(from, to)
		}
		return apperrors.Internal("Failed to update booking status", err)
	}
	return nil
}

// SweepExpired cancels pending_payment bookings whose payment deadline has
// lapsed, releasing their seats. It returns how many bookings it cancelled.
// A booking that races into another status between the scan and the cancel
// is skipped, not failed.
func (s *bookingService) SweepExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.PaymentDeadline)

	expired, err := s.repo.FindExpiredPending(ctx, cutoff, expirySweepBatchSize)
	if err != nil {
		return 0, apperrors.Internal("Failed to scan for expired bookings", err)
	}

	cancelled := 0
	for _, booking := range expired {
		err := s.transition(ctx, booking, model.StatusPendingPayment, model.StatusCancelled)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeInvalidStateTransition) {
				continue
			}
			s.log.Error("failed to expire booking",
				"booking_id", booking.ID,
				"booking_date", booking.BookingDate,
				"error", err)
			continue
		}

		previous := booking.Status
		booking.Status = model.StatusCancelled
		s.publisher.BookingStatusChanged(ctx, booking, previous)
		cancelled++
	}

	if cancelled > 0 {
		s.log.Info("expired unpaid bookings", "count", cancelled, "cutoff", cutoff)
	}

	return cancelled, nil
}

// RunExpirySweeper runs SweepExpired on a ticker until the context ends.
func RunExpirySweeper(ctx context.Context, svc BookingService, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("expiry sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := svc.SweepExpired(ctx); err != nil {
				log.Error("expiry sweep failed", "error", err)
			}
		}
	}
}
