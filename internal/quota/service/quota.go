package service

import (
	"context"
	"errors"
	"time"

	"suroloyo/internal/events"
	quotaerrors "suroloyo/internal/quota/errors"
	"suroloyo/internal/quota/repository"
	"suroloyo/pkg/auth"
	"suroloyo/pkg/config"
	apperrors "suroloyo/pkg/errors"
	"suroloyo/pkg/model"

	"github.com/go-playground/validator/v10"
)

// Ledger is the single source of truth for per-day capacity. Reserve and
// Release are the only paths that mutate the reserved count; SetCapacity is
// the only admin edit path. No caller reads-then-writes capacity directly.
type Ledger interface {
	// Reserve atomically admits count seats on the date. It fails without
	// mutating state on a closed date, insufficient capacity, or a lost
	// concurrency race. It never retries internally.
	Reserve(ctx context.Context, date string, count int) error

	// Release hands count seats back, floored at zero.
	Release(ctx context.Context, date string, count int) error

	SetCapacity(ctx context.Context, identity auth.Identity, update *model.QuotaUpdate) (*model.QuotaDay, error)
	Availability(ctx context.Context, date string) (*model.Availability, error)
	Calendar(ctx context.Context, from, to string) ([]*model.Availability, error)
}

type quotaLedger struct {
	repo      repository.QuotaRepository
	publisher events.Publisher
	validate  *validator.Validate
	cfg       *config.Config
}

func NewLedger(repo repository.QuotaRepository, publisher events.Publisher, cfg *config.Config) Ledger {
	return &quotaLedger{
		repo:      repo,
		publisher: publisher,
		validate:  validator.New(),
		cfg:       cfg,
	}
}

func (l *quotaLedger) Reserve(ctx context.Context, date string, count int) error {
	if count <= 0 {
		return apperrors.InvalidInput("Reservation count must be positive")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return apperrors.InvalidInput("Invalid date format, must be YYYY-MM-DD")
	}

	day, err := l.repo.EnsureDay(ctx, date, l.cfg.DefaultDailyCapacity)
	if err != nil {
		return apperrors.Internal("Failed to load quota day", err)
	}

	if !day.IsOpen {
		return apperrors.DateClosed(date)
	}
	if day.Reserved+count > day.TotalCapacity {
		return apperrors.CapacityExceeded(date, count, day.Remaining())
	}

	// The version precondition guarantees the open/capacity checks above
	// still hold at write time: if any writer got in between, the update
	// matches nothing and the race is surfaced to the caller.
	err = l.repo.IncrementReserved(ctx, date, day.Version, count)
	if err != nil {
		if errors.Is(err, quotaerrors.ErrVersionConflict) {
			return apperrors.ConcurrentModify(date)
		}
		return apperrors.Internal("Failed to reserve capacity", err)
	}

	l.cfg.Log.Info("Capacity reserved",
		"date", date,
		"count", count,
		"reserved", day.Reserved+count,
		"total_capacity", day.TotalCapacity,
	)
	return nil
}

func (l *quotaLedger) Release(ctx context.Context, date string, count int) error {
	if count <= 0 {
		return apperrors.InvalidInput("Release count must be positive")
	}

	err := l.repo.DecrementReservedFloored(ctx, date, count)
	if err != nil {
		if errors.Is(err, quotaerrors.ErrNotFound) {
			// Nothing was ever reserved for this date; releasing is a no-op.
			l.cfg.Log.Warn("Release against a date with no quota record", "date", date, "count", count)
			return nil
		}
		return apperrors.Internal("Failed to release capacity", err)
	}

	l.cfg.Log.Info("Capacity released", "date", date, "count", count)
	return nil
}

func (l *quotaLedger) SetCapacity(ctx context.Context, identity auth.Identity, update *model.QuotaUpdate) (*model.QuotaDay, error) {
	if err := auth.RequireAdmin(identity); err != nil {
		return nil, err
	}

	if err := l.validate.Struct(update); err != nil {
		return nil, apperrors.Validation("Invalid quota update", map[string]any{"error": err.Error()})
	}

	day, err := l.repo.EnsureDay(ctx, update.Date, l.cfg.DefaultDailyCapacity)
	if err != nil {
		return nil, apperrors.Internal("Failed to load quota day", err)
	}

	if update.TotalCapacity < day.Reserved {
		return nil, apperrors.InvalidCapacity(update.Date, update.TotalCapacity, day.Reserved)
	}

	err = l.repo.SetCapacity(ctx, update.Date, day.Version, update.TotalCapacity, *update.IsOpen)
	if err != nil {
		if errors.Is(err, quotaerrors.ErrVersionConflict) {
			// The conditional write also carries the reserved <= total
			// guard, so a zero match is disambiguated with a re-read.
			current, readErr := l.repo.Get(ctx, update.Date)
			if readErr == nil && current.Reserved > update.TotalCapacity {
				return nil, apperrors.InvalidCapacity(update.Date, update.TotalCapacity, current.Reserved)
			}
			return nil, apperrors.ConcurrentModify(update.Date)
		}
		return nil, apperrors.Internal("Failed to update quota day", err)
	}

	updated, err := l.repo.Get(ctx, update.Date)
	if err != nil {
		return nil, apperrors.Internal("Failed to reload quota day", err)
	}

	l.publisher.QuotaUpdated(ctx, updated)
	l.cfg.Log.Info("Quota day updated",
		"date", updated.Date,
		"total_capacity", updated.TotalCapacity,
		"is_open", updated.IsOpen,
		"updated_by", identity.UserID,
	)
	return updated, nil
}

func (l *quotaLedger) Availability(ctx context.Context, date string) (*model.Availability, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperrors.InvalidInput("Invalid date format, must be YYYY-MM-DD")
	}

	day, err := l.repo.Get(ctx, date)
	if err != nil {
		if errors.Is(err, quotaerrors.ErrNotFound) {
			// Days without an explicit record run at the default capacity.
			return &model.Availability{
				Date:          date,
				TotalCapacity: l.cfg.DefaultDailyCapacity,
				Remaining:     l.cfg.DefaultDailyCapacity,
				IsOpen:        true,
			}, nil
		}
		return nil, apperrors.Internal("Failed to read availability", err)
	}

	return &model.Availability{
		Date:          day.Date,
		TotalCapacity: day.TotalCapacity,
		Remaining:     day.Remaining(),
		IsOpen:        day.IsOpen,
	}, nil
}

// Calendar returns one availability entry per day in [from, to], filling in
// default-capacity entries for days with no quota record so the booking
// calendar never shows gaps.
func (l *quotaLedger) Calendar(ctx context.Context, from, to string) ([]*model.Availability, error) {
	start, err := time.Parse(model.DateLayout, from)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid 'from' date format, must be YYYY-MM-DD")
	}
	end, err := time.Parse(model.DateLayout, to)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid 'to' date format, must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, apperrors.InvalidInput("'to' date must not be before 'from' date")
	}
	if end.Sub(start) > 62*24*time.Hour {
		return nil, apperrors.InvalidInput("Calendar range cannot exceed two months")
	}

	days, err := l.repo.FindRange(ctx, from, to)
	if err != nil {
		return nil, apperrors.Internal("Failed to read quota calendar", err)
	}

	byDate := make(map[string]*model.QuotaDay, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}

	var calendar []*model.Availability
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		date := cursor.Format(model.DateLayout)
		if day, ok := byDate[date]; ok {
			calendar = append(calendar, &model.Availability{
				Date:          day.Date,
				TotalCapacity: day.TotalCapacity,
				Remaining:     day.Remaining(),
				IsOpen:        day.IsOpen,
			})
			continue
		}
		calendar = append(calendar, &model.Availability{
			Date:          date,
			TotalCapacity: l.cfg.DefaultDailyCapacity,
			Remaining:     l.cfg.DefaultDailyCapacity,
			IsOpen:        true,
		})
	}

	return calendar, nil
}
