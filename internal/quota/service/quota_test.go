package service

import (
	"context"
	"sync"
	"testing"

	"suroloyo/internal/events"
	quotaerrors "suroloyo/internal/quota/errors"
	"suroloyo/pkg/auth"
	"suroloyo/pkg/config"
	apperrors "suroloyo/pkg/errors"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		DefaultDailyCapacity: 150,
	}
}

// memoryQuotaRepository emulates the Mongo repository's conditional-write
// semantics: every write either matches the expected version or fails with
// ErrVersionConflict. The mutex stands in for single-document atomicity.
type memoryQuotaRepository struct {
	mu   sync.Mutex
	days map[string]*model.QuotaDay
}

func newMemoryQuotaRepository() *memoryQuotaRepository {
	return &memoryQuotaRepository{days: make(map[string]*model.QuotaDay)}
}

func (r *memoryQuotaRepository) snapshot(date string) *model.QuotaDay {
	if d, ok := r.days[date]; ok {
		copied := *d
		return &copied
	}
	return nil
}

func (r *memoryQuotaRepository) Get(_ context.Context, date string) (*model.QuotaDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.snapshot(date); d != nil {
		return d, nil
	}
	return nil, quotaerrors.ErrNotFound
}

func (r *memoryQuotaRepository) EnsureDay(_ context.Context, date string, defaultCapacity int) (*model.QuotaDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.snapshot(date); d != nil {
		return d, nil
	}
	r.days[date] = &model.QuotaDay{
		Date:          date,
		TotalCapacity: defaultCapacity,
		IsOpen:        true,
	}
	return r.snapshot(date), nil
}

func (r *memoryQuotaRepository) IncrementReserved(_ context.Context, date string, expectedVersion int64, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[date]
	if !ok || d.Version != expectedVersion {
		return quotaerrors.ErrVersionConflict
	}
	d.Reserved += count
	d.Version++
	return nil
}

func (r *memoryQuotaRepository) DecrementReservedFloored(_ context.Context, date string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[date]
	if !ok {
		return quotaerrors.ErrNotFound
	}
	d.Reserved = max(0, d.Reserved-count)
	d.Version++
	return nil
}

func (r *memoryQuotaRepository) SetCapacity(_ context.Context, date string, expectedVersion int64, totalCapacity int, isOpen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[date]
	if !ok || d.Version != expectedVersion || d.Reserved > totalCapacity {
		return quotaerrors.ErrVersionConflict
	}
	d.TotalCapacity = totalCapacity
	d.IsOpen = isOpen
	d.Version++
	return nil
}

func (r *memoryQuotaRepository) FindRange(_ context.Context, from, to string) ([]*model.QuotaDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.QuotaDay
	for date := range r.days {
		if date >= from && date <= to {
			out = append(out, r.snapshot(date))
		}
	}
	return out, nil
}

func (r *memoryQuotaRepository) seed(day *model.QuotaDay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *day
	r.days[day.Date] = &copied
}

func TestReserve_CapacityBoundary(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-10", TotalCapacity: 150, Reserved: 148, IsOpen: true})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	err := ledger.Reserve(context.Background(), "2025-08-10", 3)
	if !apperrors.HasCode(err, apperrors.CodeCapacityExceeded) {
		t.Fatalf("expected CAPACITY_EXCEEDED for 3 seats, got %v", err)
	}

	day, _ := repo.Get(context.Background(), "2025-08-10")
	if day.Reserved != 148 {
		t.Fatalf("failed reserve must not mutate state, reserved = %d", day.Reserved)
	}

	if err := ledger.Reserve(context.Background(), "2025-08-10", 2); err != nil {
		t.Fatalf("expected 2-seat reserve to succeed, got %v", err)
	}

	day, _ = repo.Get(context.Background(), "2025-08-10")
	if day.Reserved != 150 {
		t.Fatalf("expected reserved 150, got %d", day.Reserved)
	}
}

func TestReserve_DateClosed(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-10", TotalCapacity: 150, Reserved: 0, IsOpen: false})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	for _, count := range []int{1, 5, 150} {
		err := ledger.Reserve(context.Background(), "2025-08-10", count)
		if !apperrors.HasCode(err, apperrors.CodeDateClosed) {
			t.Errorf("count %d: expected DATE_CLOSED, got %v", count, err)
		}
	}
}

func TestReserve_LazyCreation(t *testing.T) {
	repo := newMemoryQuotaRepository()
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	if err := ledger.Reserve(context.Background(), "2025-08-10", 4); err != nil {
		t.Fatalf("reserve against a fresh day should succeed: %v", err)
	}

	day, err := repo.Get(context.Background(), "2025-08-10")
	if err != nil {
		t.Fatalf("expected day to be created: %v", err)
	}
	if day.TotalCapacity != 150 || day.Reserved != 4 || !day.IsOpen {
		t.Fatalf("unexpected lazily created day: %+v", day)
	}
}

func TestReserve_InvalidInput(t *testing.T) {
	ledger := NewLedger(newMemoryQuotaRepository(), events.Nop{}, testConfig())

	if err := ledger.Reserve(context.Background(), "2025-08-10", 0); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for zero count, got %v", err)
	}
	if err := ledger.Reserve(context.Background(), "10-08-2025", 1); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for malformed date, got %v", err)
	}
}

func TestReserveRelease_RoundTrip(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-10", TotalCapacity: 150, Reserved: 40, IsOpen: true})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	if err := ledger.Reserve(context.Background(), "2025-08-10", 6); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := ledger.Release(context.Background(), "2025-08-10", 6); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	day, _ := repo.Get(context.Background(), "2025-08-10")
	if day.Reserved != 40 {
		t.Fatalf("round trip must restore prior reserved count, got %d", day.Reserved)
	}
}

func TestRelease_FlooredAtZero(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-10", TotalCapacity: 150, Reserved: 3, IsOpen: true})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	if err := ledger.Release(context.Background(), "2025-08-10", 10); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	day, _ := repo.Get(context.Background(), "2025-08-10")
	if day.Reserved != 0 {
		t.Fatalf("expected reserved floored at 0, got %d", day.Reserved)
	}

	// Releasing against a date with no record is a logged no-op.
	if err := ledger.Release(context.Background(), "2030-01-01", 5); err != nil {
		t.Fatalf("release against missing day should be a no-op, got %v", err)
	}
}

func TestConcurrentReserve_NeverOvercommits(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-10", TotalCapacity: 50, Reserved: 0, IsOpen: true})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	const workers = 64
	const partySize = 5

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A lost race is retried by re-reading current state, the way
			// the admission controller drives the ledger.
			for attempt := 0; attempt < workers; attempt++ {
				err := ledger.Reserve(context.Background(), "2025-08-10", partySize)
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				if apperrors.HasCode(err, apperrors.CodeConcurrentModify) {
					continue
				}
				return
			}
		}()
	}
	wg.Wait()

	day, _ := repo.Get(context.Background(), "2025-08-10")
	if day.Reserved > day.TotalCapacity {
		t.Fatalf("ledger overcommitted: reserved %d > total %d", day.Reserved, day.TotalCapacity)
	}
	if day.Reserved != successes*partySize {
		t.Fatalf("reserved %d does not match %d successful reservations of %d", day.Reserved, successes, partySize)
	}
	if successes != 10 {
		t.Fatalf("expected exactly 10 parties of %d to fit in 50 seats, got %d", partySize, successes)
	}
}

func TestSetCapacity_BelowReserved(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-10", TotalCapacity: 150, Reserved: 148, IsOpen: true})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	open := true
	_, err := ledger.SetCapacity(context.Background(),
		auth.Identity{UserID: "a-1", Role: auth.RoleAdmin},
		&model.QuotaUpdate{Date: "2025-08-10", TotalCapacity: 100, IsOpen: &open},
	)
	if !apperrors.HasCode(err, apperrors.CodeInvalidCapacity) {
		t.Fatalf("expected INVALID_CAPACITY, got %v", err)
	}

	day, _ := repo.Get(context.Background(), "2025-08-10")
	if day.TotalCapacity != 150 || day.Reserved != 148 {
		t.Fatalf("rejected edit must leave state unchanged: %+v", day)
	}
}

func TestSetCapacity_RequiresAdmin(t *testing.T) {
	ledger := NewLedger(newMemoryQuotaRepository(), events.Nop{}, testConfig())

	open := true
	_, err := ledger.SetCapacity(context.Background(),
		auth.Identity{UserID: "u-1", Role: auth.RoleUser},
		&model.QuotaUpdate{Date: "2025-08-10", TotalCapacity: 100, IsOpen: &open},
	)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for non-admin, got %v", err)
	}
}

func TestSetCapacity_UpdatesDay(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-10", TotalCapacity: 150, Reserved: 20, IsOpen: true})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	closed := false
	day, err := ledger.SetCapacity(context.Background(),
		auth.Identity{UserID: "a-1", Role: auth.RoleSuperAdmin},
		&model.QuotaUpdate{Date: "2025-08-10", TotalCapacity: 200, IsOpen: &closed},
	)
	if err != nil {
		t.Fatalf("SetCapacity failed: %v", err)
	}
	if day.TotalCapacity != 200 || day.IsOpen || day.Reserved != 20 {
		t.Fatalf("unexpected updated day: %+v", day)
	}
}

func TestAvailability_DefaultsForMissingDay(t *testing.T) {
	ledger := NewLedger(newMemoryQuotaRepository(), events.Nop{}, testConfig())

	avail, err := ledger.Availability(context.Background(), "2025-08-10")
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if avail.Remaining != 150 || !avail.IsOpen {
		t.Fatalf("expected default availability, got %+v", avail)
	}
}

func TestCalendar_FillsMissingDays(t *testing.T) {
	repo := newMemoryQuotaRepository()
	repo.seed(&model.QuotaDay{Date: "2025-08-11", TotalCapacity: 100, Reserved: 30, IsOpen: false})
	ledger := NewLedger(repo, events.Nop{}, testConfig())

	calendar, err := ledger.Calendar(context.Background(), "2025-08-10", "2025-08-12")
	if err != nil {
		t.Fatalf("Calendar failed: %v", err)
	}
	if len(calendar) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(calendar))
	}
	if calendar[0].Date != "2025-08-10" || calendar[0].Remaining != 150 || !calendar[0].IsOpen {
		t.Errorf("unexpected filler entry: %+v", calendar[0])
	}
	if calendar[1].Date != "2025-08-11" || calendar[1].Remaining != 70 || calendar[1].IsOpen {
		t.Errorf("unexpected recorded entry: %+v", calendar[1])
	}

	if _, err := ledger.Calendar(context.Background(), "2025-08-12", "2025-08-10"); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for inverted range, got %v", err)
	}
}
