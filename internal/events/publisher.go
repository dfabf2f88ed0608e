package events

import (
	"context"
	"suroloyo/pkg/kafka"
	"suroloyo/pkg/logger"
	"suroloyo/pkg/model"
	"time"
)

// Event types consumed by the notification and reporting services.
const (
	TypeBookingAdmitted      = "booking.admitted"
	TypeBookingStatusChanged = "booking.status_changed"
	TypeQuotaUpdated         = "quota.updated"
)

// Publisher emits booking lifecycle events. Publishing is best-effort: the
// booking flow never fails because the event bus is down; callers log and move on.
type Publisher interface {
	BookingAdmitted(ctx context.Context, booking *model.Booking)
	BookingStatusChanged(ctx context.Context, booking *model.Booking, previousStatus string)
	QuotaUpdated(ctx context.Context, day *model.QuotaDay)
}

type BookingEvent struct {
	BookingID      string    `json:"booking_id"`
	UserID         string    `json:"user_id"`
	BookingDate    string    `json:"booking_date"`
	PartySize      int       `json:"party_size"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type QuotaEvent struct {
	Date          string    `json:"date"`
	TotalCapacity int       `json:"total_capacity"`
	Reserved      int       `json:"reserved"`
	IsOpen        bool      `json:"is_open"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingAdmitted(ctx context.Context, booking *model.Booking) {
	p.publishBooking(ctx, TypeBookingAdmitted, booking, "")
}

func (p *kafkaPublisher) BookingStatusChanged(ctx context.Context, booking *model.Booking, previousStatus string) {
	p.publishBooking(ctx, TypeBookingStatusChanged, booking, previousStatus)
}

func (p *kafkaPublisher) publishBooking(ctx context.Context, eventType string, booking *model.Booking, previousStatus string) {
	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithEventType(eventType).
		WithSource(p.source).
		WithValue(BookingEvent{
			BookingID:      booking.ID,
			UserID:         booking.UserID,
			BookingDate:    booking.BookingDate,
			PartySize:      booking.PartySize,
			Status:         booking.Status,
			PreviousStatus: previousStatus,
			OccurredAt:     time.Now().UTC(),
		}).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Warn("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func (p *kafkaPublisher) QuotaUpdated(ctx context.Context, day *model.QuotaDay) {
	msg := kafka.NewMessage().
		WithKey(day.Date).
		WithEventType(TypeQuotaUpdated).
		WithSource(p.source).
		WithValue(QuotaEvent{
			Date:          day.Date,
			TotalCapacity: day.TotalCapacity,
			Reserved:      day.Reserved,
			IsOpen:        day.IsOpen,
			OccurredAt:    time.Now().UTC(),
		}).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Warn("Failed to publish quota event",
			"date", day.Date,
			"error", err,
		)
	}
}

// Nop is used by services that run without a broker (tests, cmd/migrate).
type Nop struct{}

func (Nop) BookingAdmitted(context.Context, *model.Booking)               {}
func (Nop) BookingStatusChanged(context.Context, *model.Booking, string)  {}
func (Nop) QuotaUpdated(context.Context, *model.QuotaDay)                 {}
