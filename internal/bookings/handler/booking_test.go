package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"suroloyo/pkg/auth"
	apperrors "suroloyo/pkg/errors"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockAdmissionService struct {
	admitFunc func(ctx context.Context, identity auth.Identity, req *model.AdmissionRequest) (*model.Booking, error)
}

func (m *mockAdmissionService) Admit(ctx context.Context, identity auth.Identity, req *model.AdmissionRequest) (*model.Booking, error) {
	if m.admitFunc != nil {
		return m.admitFunc(ctx, identity, req)
	}
	return &model.Booking{ID: "SRL-2026-TEST", Status: model.StatusPendingPayment}, nil
}

type mockBookingService struct {
	getByIDFunc func(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error)
	cancelFunc  func(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error)
}

func (m *mockBookingService) GetByID(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, identity, id)
	}
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) ListByUser(ctx context.Context, identity auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error) {
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) ListByDateRange(ctx context.Context, identity auth.Identity, from, to string, limit int, offset int64) ([]*model.Booking, int64, error) {
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) AttachPaymentProof(ctx context.Context, identity auth.Identity, id string, proof *model.PaymentProof) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) Verify(ctx context.Context, identity auth.Identity, id string, approve bool) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, identity, id)
	}
	return &model.Booking{ID: id, Status: model.StatusCancelled}, nil
}

func (m *mockBookingService) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func testHandler(admission *mockAdmissionService, bookings *mockBookingService) *BookingHandler {
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	return NewBookingHandler(admission, bookings, log)
}

func withIdentity(r *http.Request, id auth.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

func TestCreate(t *testing.T) {
	h := testHandler(&mockAdmissionService{}, &mockBookingService{})
	identity := auth.Identity{UserID: "user-1", Role: auth.RoleUser}
	body := `{"date":"2026-09-15","members":[{"full_name":"Budi","national_id":"3404120101900001","is_leader":true}]}`

	tests := []struct {
		name       string
		body       string
		anonymous  bool
		wantStatus int
	}{
		{name: "created", body: body, wantStatus: http.StatusCreated},
		{name: "missing identity", body: body, anonymous: true, wantStatus: http.StatusUnauthorized},
		{name: "malformed body", body: "{not json", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(tt.body))
			if !tt.anonymous {
				req = withIdentity(req, identity)
			}
			w := httptest.NewRecorder()

			h.Create(w, req, httprouter.Params{})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestCreate_CapacityExceededMapsTo409(t *testing.T) {
	admission := &mockAdmissionService{
		admitFunc: func(ctx context.Context, identity auth.Identity, req *model.AdmissionRequest) (*model.Booking, error) {
			return nil, apperrors.CapacityExceeded(req.Date, len(req.Members), 1)
		},
	}
	h := testHandler(admission, &mockBookingService{})

	body := `{"date":"2026-09-15","members":[{"full_name":"Budi","national_id":"3404120101900001","is_leader":true}]}`
	req := withIdentity(
		httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)),
		auth.Identity{UserID: "user-1", Role: auth.RoleUser},
	)
	w := httptest.NewRecorder()

	h.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Code != apperrors.CodeCapacityExceeded {
		t.Errorf("expected code %s, got %s", apperrors.CodeCapacityExceeded, resp.Code)
	}
}

func TestGetByID_PassesPathParam(t *testing.T) {
	var gotID string
	bookings := &mockBookingService{
		getByIDFunc: func(ctx context.Context, identity auth.Identity, id string) (*model.Booking, error) {
			gotID = id
			return &model.Booking{ID: id, UserID: identity.UserID}, nil
		},
	}
	h := testHandler(&mockAdmissionService{}, bookings)

	req := withIdentity(
		httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/SRL-2026-AB12", nil),
		auth.Identity{UserID: "user-1", Role: auth.RoleUser},
	)
	w := httptest.NewRecorder()

	h.GetByID(w, req, httprouter.Params{{Key: "id", Value: "SRL-2026-AB12"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != "SRL-2026-AB12" {
		t.Errorf("expected path id forwarded, got %q", gotID)
	}
}

func TestCancel(t *testing.T) {
	h := testHandler(&mockAdmissionService{}, &mockBookingService{})

	req := withIdentity(
		httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/SRL-2026-AB12/cancel", nil),
		auth.Identity{UserID: "user-1", Role: auth.RoleUser},
	)
	w := httptest.NewRecorder()

	h.Cancel(w, req, httprouter.Params{{Key: "id", Value: "SRL-2026-AB12"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data model.Booking `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Data.Status != model.StatusCancelled {
		t.Errorf("expected cancelled booking, got %s", resp.Data.Status)
	}
}
