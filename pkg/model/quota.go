package model

import "time"

// DateLayout is the calendar-day key format used across quota and booking records.
const DateLayout = "2006-01-02"

// QuotaDay is the single source of truth for one calendar day's hiking capacity.
// Reserved never exceeds TotalCapacity; all mutations go through the quota
// ledger's atomic operations, guarded by the Version counter.
type QuotaDay struct {
	Date          string    `json:"date" bson:"_id" validate:"required,datetime=2006-01-02"`
	TotalCapacity int       `json:"total_capacity" bson:"total_capacity" validate:"required,min=1"`
	Reserved      int       `json:"reserved" bson:"reserved" validate:"min=0"`
	IsOpen        bool      `json:"is_open" bson:"is_open"`
	Version       int64     `json:"version" bson:"version"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// Remaining reports how many seats the day can still admit.
func (q *QuotaDay) Remaining() int {
	return max(0, q.TotalCapacity-q.Reserved)
}

// Availability is the read-only view served to the booking calendar.
type Availability struct {
	Date          string `json:"date"`
	TotalCapacity int    `json:"total_capacity"`
	Remaining     int    `json:"remaining"`
	IsOpen        bool   `json:"is_open"`
}

// QuotaUpdate is the admin capacity-edit request for a single day.
type QuotaUpdate struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	TotalCapacity int    `json:"total_capacity" validate:"required,min=1"`
	IsOpen        *bool  `json:"is_open" validate:"required"`
}
