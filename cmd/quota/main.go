package main

import (
	"suroloyo/internal/events"
	"suroloyo/internal/quota/handler"
	"suroloyo/internal/quota/repository"
	"suroloyo/internal/quota/service"
	"suroloyo/pkg/app"
	"suroloyo/pkg/config"
	"suroloyo/pkg/kafka"
	kafkaconfig "suroloyo/pkg/kafka/config"
)

const ServiceName = "quota"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Quota service")

	producer, err := kafka.NewProducer(kafkaconfig.Default(cfg.KafkaBrokers), cfg.KafkaBookingsTopic, cfg.KafkaDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}
	defer producer.Close()

	publisher := events.NewKafkaPublisher(producer, ServiceName, cfg.Log)

	quotaRepo := repository.NewMongoQuotaRepository(cfg)
	ledger := service.NewLedger(quotaRepo, publisher, cfg)
	cfg.Log.Info("Quota ledger initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handler.NewQuotaHandler(ledger, cfg.Log))
	serverApp.Run()
}
