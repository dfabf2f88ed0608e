package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "suroloyo"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Booking window: dates from today through today+N days are admissible.
	DefaultBookingWindowDays = 30

	// Physical trail capacity used when a day has no explicit quota record.
	DefaultDefaultDailyCapacity = 150

	DefaultMaxPartySize   = 10
	DefaultTicketPriceIDR = 25000

	DefaultRequireCompleteLeader = true

	// Unpaid bookings are cancelled and their seats released after this deadline.
	DefaultPaymentDeadline     = 2 * time.Hour
	DefaultExpirySweepInterval = 1 * time.Minute

	DefaultKafkaBrokers       = "localhost:9092"
	DefaultKafkaBookingsTopic = "suroloyo.bookings"
	DefaultKafkaDLQTopic      = "suroloyo.bookings.dlq"

	DefaultPaginationLimit = 100
)
