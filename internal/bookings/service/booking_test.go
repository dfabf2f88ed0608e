package service

import (
	"context"
	"io"
	"testing"
	"time"

	bookingserrors "suroloyo/internal/bookings/errors"
	"suroloyo/internal/events"
	"suroloyo/pkg/auth"
	"suroloyo/pkg/config"
	apperrors "suroloyo/pkg/errors"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"

	mongotx "suroloyo/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mockBookingRepository struct {
	findByIDFunc           func(ctx context.Context, id string) (*model.Booking, error)
	findByUserFunc         func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	countByUserFunc        func(ctx context.Context, userID string) (int64, error)
	findByDateRangeFunc    func(ctx context.Context, from, to string, limit int, offset int64) ([]*model.Booking, error)
	countByDateRangeFunc   func(ctx context.Context, from, to string) (int64, error)
	findExpiredPendingFunc func(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error)
	updateStatusFunc       func(ctx context.Context, id, fromStatus, toStatus string, set bson.M) error
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockBookingRepository) FindByDateRange(ctx context.Context, from, to string, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByDateRangeFunc != nil {
		return m.findByDateRangeFunc(ctx, from, to, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountByDateRange(ctx context.Context, from, to string) (int64, error) {
	if m.countByDateRangeFunc != nil {
		return m.countByDateRangeFunc(ctx, from, to)
	}
	return 0, nil
}

func (m *mockBookingRepository) FindExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	if m.findExpiredPendingFunc != nil {
		return m.findExpiredPendingFunc(ctx, createdBefore, limit)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id, fromStatus, toStatus string, set bson.M) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, fromStatus, toStatus, set)
	}
	return nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	// Execute the function with a fake session context
	sessCtx := mongo.NewSessionContext(ctx, nil)
	return fn(sessCtx)
}

type mockLedger struct {
	reserveFunc func(ctx context.Context, date string, count int) error
	releaseFunc func(ctx context.Context, date string, count int) error
	released    []int
}

func (m *mockLedger) Reserve(ctx context.Context, date string, count int) error {
	if m.reserveFunc != nil {
		return m.reserveFunc(ctx, date, count)
	}
	return nil
}

func (m *mockLedger) Release(ctx context.Context, date string, count int) error {
	m.released = append(m.released, count)
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, date, count)
	}
	return nil
}

func (m *mockLedger) SetCapacity(ctx context.Context, identity auth.Identity, update *model.QuotaUpdate) (*model.QuotaDay, error) {
	return nil, nil
}

func (m *mockLedger) Availability(ctx context.Context, date string) (*model.Availability, error) {
	return nil, nil
}

func (m *mockLedger) Calendar(ctx context.Context, from, to string) ([]*model.Availability, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		PaymentDeadline: 2 * time.Hour,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

func newTestService(repo *mockBookingRepository, ledger *mockLedger) BookingService {
	return NewBookingService(repo, ledger, events.Nop{}, testConfig(), testLogger())
}

func pendingBooking(id, userID string) *model.Booking {
	return &model.Booking{
		ID:          id,
		UserID:      userID,
		BookingDate: "2026-09-15",
		PartySize:   3,
		Status:      model.StatusPendingPayment,
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
	}
}

func TestGetByID_OwnerAndAdminVisibility(t *testing.T) {
	booking := pendingBooking("SRL-2026-A1B2", "user-1")
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copied := *booking
			return &copied, nil
		},
	}
	svc := newTestService(repo, &mockLedger{})

	tests := []struct {
		name     string
		identity auth.Identity
		wantCode string
	}{
		{name: "owner sees own booking", identity: auth.Identity{UserID: "user-1", Role: auth.RoleUser}},
		{name: "admin sees any booking", identity: auth.Identity{UserID: "admin-9", Role: auth.RoleAdmin}},
		{name: "stranger gets not found", identity: auth.Identity{UserID: "user-2", Role: auth.RoleUser}, wantCode: apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetByID(context.Background(), tt.identity, booking.ID)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected code %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != booking.ID {
				t.Errorf("expected booking %s, got %s", booking.ID, got.ID)
			}
		})
	}
}

func TestAttachPaymentProof_AdvancesToAwaitingVerification(t *testing.T) {
	booking := pendingBooking("SRL-2026-C3D4", "user-1")

	var gotFrom, gotTo string
	var gotSet bson.M
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copied := *booking
			return &copied, nil
		},
		updateStatusFunc: func(ctx context.Context, id, fromStatus, toStatus string, set bson.M) error {
			gotFrom, gotTo, gotSet = fromStatus, toStatus, set
			return nil
		},
	}
	svc := newTestService(repo, &mockLedger{})

	proof := &model.PaymentProof{ProofURL: "https://storage.example.com/proofs/abc.jpg", Method: "bank_transfer"}
	updated, err := svc.AttachPaymentProof(context.Background(), auth.Identity{UserID: "user-1", Role: auth.RoleUser}, booking.ID, proof)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotFrom != model.StatusPendingPayment || gotTo != model.StatusAwaitingVerification {
		t.Errorf("expected transition pending_payment -> awaiting_verification, got %s -> %s", gotFrom, gotTo)
	}
	if gotSet["payment_proof_url"] != proof.ProofURL {
		t.Errorf("expected proof URL recorded, got %v", gotSet["payment_proof_url"])
	}
	if updated.Status != model.StatusAwaitingVerification {
		t.Errorf("expected status %s, got %s", model.StatusAwaitingVerification, updated.Status)
	}
}

func TestAttachPaymentProof_RejectsWrongStatus(t *testing.T) {
	booking := pendingBooking("SRL-2026-E5F6", "user-1")
	booking.Status = model.StatusConfirmed

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copied := *booking
			return &copied, nil
		},
	}
	svc := newTestService(repo, &mockLedger{})

	proof := &model.PaymentProof{ProofURL: "https://storage.example.com/proofs/abc.jpg", Method: "bank_transfer"}
	_, err := svc.AttachPaymentProof(context.Background(), auth.Identity{UserID: "user-1", Role: auth.RoleUser}, booking.ID, proof)
	if !apperrors.HasCode(err, apperrors.CodeInvalidStateTransition) {
		t.Fatalf("expected INVALID_STATE_TRANSITION, got %v", err)
	}
}

func TestVerify_ApproveConfirmsWithoutRelease(t *testing.T) {
	booking := pendingBooking("SRL-2026-G7H8", "user-1")
	booking.Status = model.StatusAwaitingVerification

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copied := *booking
			return &copied, nil
		},
	}
	ledger := &mockLedger{}
	svc := newTestService(repo, ledger)

	updated, err := svc.Verify(context.Background(), auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}, booking.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.StatusConfirmed {
		t.Errorf("expected status %s, got %s", model.StatusConfirmed, updated.Status)
	}
	if len(ledger.released) != 0 {
		t.Errorf("confirmation must not release capacity, released %v", ledger.released)
	}
}

func TestVerify_RejectReleasesPartySeats(t *testing.T) {
	booking := pendingBooking("SRL-2026-J9K0", "user-1")
	booking.Status = model.StatusAwaitingVerification
	booking.PartySize = 4

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copied := *booking
			return &copied, nil
		},
	}
	ledger := &mockLedger{}
	svc := newTestService(repo, ledger)

	updated, err := svc.Verify(context.Background(), auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}, booking.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.StatusRejected {
		t.Errorf("expected status %s, got %s", model.StatusRejected, updated.Status)
	}
	if len(ledger.released) != 1 || ledger.released[0] != 4 {
		t.Errorf("expected one release of 4 seats, got %v", ledger.released)
	}
}

func TestVerify_RequiresAdmin(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, &mockLedger{})

	_, err := svc.Verify(context.Background(), auth.Identity{UserID: "user-1", Role: auth.RoleUser}, "SRL-2026-AAAA", true)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCancel_ReleasesAndRejectsTerminalStates(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		wantCode    string
		wantRelease bool
	}{
		{name: "pending payment cancels", status: model.StatusPendingPayment, wantRelease: true},
		{name: "awaiting verification cancels", status: model.StatusAwaitingVerification, wantRelease: true},
		{name: "confirmed cannot cancel", status: model.StatusConfirmed, wantCode: apperrors.CodeInvalidStateTransition},
		{name: "cancelled is terminal", status: model.StatusCancelled, wantCode: apperrors.CodeInvalidStateTransition},
		{name: "rejected is terminal", status: model.StatusRejected, wantCode: apperrors.CodeInvalidStateTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := pendingBooking("SRL-2026-L1M2", "user-1")
			booking.Status = tt.status

			repo := &mockBookingRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
					copied := *booking
					return &copied, nil
				},
			}
			ledger := &mockLedger{}
			svc := newTestService(repo, ledger)

			updated, err := svc.Cancel(context.Background(), auth.Identity{UserID: "user-1", Role: auth.RoleUser}, booking.ID)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected code %s, got %v", tt.wantCode, err)
				}
				if len(ledger.released) != 0 {
					t.Errorf("failed cancel must not release, released %v", ledger.released)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated.Status != model.StatusCancelled {
				t.Errorf("expected status %s, got %s", model.StatusCancelled, updated.Status)
			}
			if tt.wantRelease && (len(ledger.released) != 1 || ledger.released[0] != booking.PartySize) {
				t.Errorf("expected one release of %d seats, got %v", booking.PartySize, ledger.released)
			}
		})
	}
}

func TestCancel_StatusRaceDoesNotDoubleRelease(t *testing.T) {
	booking := pendingBooking("SRL-2026-N3P4", "user-1")

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copied := *booking
			return &copied, nil
		},
		updateStatusFunc: func(ctx context.Context, id, fromStatus, toStatus string, set bson.M) error {
			// Another writer got there first.
			return bookingserrors.ErrStatusMismatch
		},
	}
	ledger := &mockLedger{}
	svc := newTestService(repo, ledger)

	_, err := svc.Cancel(context.Background(), auth.Identity{UserID: "user-1", Role: auth.RoleUser}, booking.ID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidStateTransition) {
		t.Fatalf("expected INVALID_STATE_TRANSITION, got %v", err)
	}
	if len(ledger.released) != 0 {
		t.Errorf("lost status race must not release, released %v", ledger.released)
	}
}

func TestSweepExpired_CancelsOverdueAndSkipsRaced(t *testing.T) {
	overdue := []*model.Booking{
		pendingBooking("SRL-2026-Q5R6", "user-1"),
		pendingBooking("SRL-2026-S7T8", "user-2"),
		pendingBooking("SRL-2026-V9W0", "user-3"),
	}

	repo := &mockBookingRepository{
		findExpiredPendingFunc: func(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
			return overdue, nil
		},
		updateStatusFunc: func(ctx context.Context, id, fromStatus, toStatus string, set bson.M) error {
			if id == "SRL-2026-S7T8" {
				// Paid right before the sweep reached it.
				return bookingserrors.ErrStatusMismatch
			}
			return nil
		},
	}
	ledger := &mockLedger{}
	svc := newTestService(repo, ledger)

	cancelled, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled != 2 {
		t.Errorf("expected 2 cancellations, got %d", cancelled)
	}
	if len(ledger.released) != 2 {
		t.Errorf("expected 2 releases, got %v", ledger.released)
	}
}

func TestListByDateRange_AdminOnlyAndValidatesRange(t *testing.T) {
	repo := &mockBookingRepository{
		findByDateRangeFunc: func(ctx context.Context, from, to string, limit int, offset int64) ([]*model.Booking, error) {
			return []*model.Booking{pendingBooking("SRL-2026-X1Y2", "user-1")}, nil
		},
		countByDateRangeFunc: func(ctx context.Context, from, to string) (int64, error) {
			return 1, nil
		},
	}
	svc := newTestService(repo, &mockLedger{})

	_, _, err := svc.ListByDateRange(context.Background(), auth.Identity{UserID: "user-1", Role: auth.RoleUser}, "2026-09-01", "2026-09-30", 10, 0)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for non-admin, got %v", err)
	}

	admin := auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}

	_, _, err = svc.ListByDateRange(context.Background(), admin, "2026-09-30", "2026-09-01", 10, 0)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for inverted range, got %v", err)
	}

	bookings, total, err := svc.ListByDateRange(context.Background(), admin, "2026-09-01", "2026-09-30", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 || total != 1 {
		t.Errorf("expected 1 booking and total 1, got %d and %d", len(bookings), total)
	}
}
