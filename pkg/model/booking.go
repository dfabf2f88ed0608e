package model

import "time"

const (
	StatusPendingPayment       = "pending_payment"
	StatusAwaitingVerification = "awaiting_verification"
	StatusConfirmed            = "confirmed"
	StatusRejected             = "rejected"
	StatusCancelled            = "cancelled"
)

// statusTransitions encodes the booking state machine. Terminal states
// (confirmed, rejected, cancelled) have no outgoing edges.
var statusTransitions = map[string][]string{
	StatusPendingPayment:       {StatusAwaitingVerification, StatusCancelled},
	StatusAwaitingVerification: {StatusConfirmed, StatusRejected, StatusCancelled},
}

// CanTransition reports whether the booking state machine permits from -> to.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReleasesCapacity reports whether entering the status must hand the party's
// seats back to the quota ledger.
func ReleasesCapacity(status string) bool {
	return status == StatusRejected || status == StatusCancelled
}

type EmergencyContact struct {
	Name     string `json:"name" bson:"name" validate:"omitempty,min=2,max=100"`
	Phone    string `json:"phone" bson:"phone" validate:"omitempty,e164"`
	Relation string `json:"relation" bson:"relation" validate:"omitempty,max=50"`
}

// Participant is one member of a booking's roster. Exactly one participant
// per booking carries IsLeader.
type Participant struct {
	FullName         string            `json:"full_name" bson:"full_name" validate:"required,min=2,max=100"`
	NationalID       string            `json:"national_id" bson:"national_id" validate:"required,nik"`
	Phone            string            `json:"phone" bson:"phone" validate:"omitempty,e164"`
	Address          string            `json:"address" bson:"address" validate:"omitempty,max=200"`
	Gender           string            `json:"gender,omitempty" bson:"gender,omitempty" validate:"omitempty,oneof=L P"`
	DateOfBirth      string            `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IsLeader         bool              `json:"is_leader" bson:"is_leader"`
	EmergencyContact *EmergencyContact `json:"emergency_contact,omitempty" bson:"emergency_contact,omitempty"`
}

// Booking is a durable reservation record. Its ID is the human-readable
// reservation code (SRL-<year>-<suffix>) and doubles as the Mongo primary key,
// which is what makes Create idempotent on the code.
type Booking struct {
	ID              string        `json:"id" bson:"_id"`
	UserID          string        `json:"user_id" bson:"user_id"`
	BookingDate     string        `json:"booking_date" bson:"booking_date"`
	PartySize       int           `json:"party_size" bson:"party_size"`
	Members         []Participant `json:"members" bson:"members"`
	Status          string        `json:"status" bson:"status"`
	TotalPriceIDR   int64         `json:"total_price_idr" bson:"total_price_idr"`
	PaymentMethod   string        `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	PaymentProofURL string        `json:"payment_proof_url,omitempty" bson:"payment_proof_url,omitempty"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
}

// Leader returns the roster's group leader, or nil if the roster has none.
func (b *Booking) Leader() *Participant {
	for i := range b.Members {
		if b.Members[i].IsLeader {
			return &b.Members[i]
		}
	}
	return nil
}

// AdmissionRequest is the inbound payload for a reservation attempt.
type AdmissionRequest struct {
	Date    string        `json:"date" validate:"required,datetime=2006-01-02"`
	Members []Participant `json:"members" validate:"required,min=1,dive"`
}

// PaymentProof attaches an uploaded proof-of-transfer reference to a booking.
// The binary lives in external object storage; only the URL is recorded here.
type PaymentProof struct {
	ProofURL string `json:"proof_url" validate:"required,url"`
	Method   string `json:"method" validate:"required,min=2,max=50"`
}
