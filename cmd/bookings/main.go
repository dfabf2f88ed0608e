package main

import (
	"context"

	admissionservice "suroloyo/internal/admission/service"
	"suroloyo/internal/admission/validator"
	"suroloyo/internal/bookings/handler"
	"suroloyo/internal/bookings/repository"
	"suroloyo/internal/bookings/service"
	"suroloyo/internal/events"
	quotahandler "suroloyo/internal/quota/handler"
	quotarepository "suroloyo/internal/quota/repository"
	quotaservice "suroloyo/internal/quota/service"
	"suroloyo/pkg/app"
	"suroloyo/pkg/config"
	"suroloyo/pkg/contracts"
	"suroloyo/pkg/kafka"
	kafkaconfig "suroloyo/pkg/kafka/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	publisher, producer := initPublisher(cfg)
	if producer != nil {
		defer producer.Close()
	}

	admissionSvc, bookingSvc, ledger := initServices(cfg, publisher)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go service.RunExpirySweeper(sweepCtx, bookingSvc, cfg.ExpirySweepInterval, cfg.Log)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, contracts.Compose(
		handler.NewBookingHandler(admissionSvc, bookingSvc, cfg.Log),
		quotahandler.NewAvailabilityHandler(ledger, cfg.Log),
	))
	serverApp.Run()
}

func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	producer, err := kafka.NewProducer(kafkaconfig.Default(cfg.KafkaBrokers), cfg.KafkaBookingsTopic, cfg.KafkaDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}

	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log), producer
}

func initServices(cfg *config.Config, publisher events.Publisher) (admissionservice.AdmissionService, service.BookingService, quotaservice.Ledger) {
	quotaRepo := quotarepository.NewMongoQuotaRepository(cfg)
	ledger := quotaservice.NewLedger(quotaRepo, publisher, cfg)

	bookingRepo := repository.NewMongoBookingRepository(cfg)
	bookingSvc := service.NewBookingService(bookingRepo, ledger, publisher, cfg, cfg.Log)

	partyValidator := validator.NewPartyValidator(cfg, cfg.Log)
	admissionSvc := admissionservice.NewAdmissionService(bookingRepo, ledger, partyValidator, publisher, cfg, cfg.Log)

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)
	return admissionSvc, bookingSvc, ledger
}
