package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jogardn/storefront/internal/app"
	"github.com/jogardn/storefront/internal/config"
	"github.com/jogardn/storefront/internal/events"
	"github.com/jogardn/storefront/internal/logging"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// notifier consumes the notification topic written by `storefront serve`
// when NOTIFY_MODE=kafka and sends the operator emails.
func main() {
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	delivery, err := app.NewDelivery(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up mail delivery")
	}

	consumer, err := events.NewNotificationConsumer(
		cfg.Notify.KafkaBrokers,
		cfg.Notify.KafkaGroup,
		cfg.Notify.KafkaTopic,
		delivery.Deliverer,
		logger,
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create notification consumer")
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"topic": cfg.Notify.KafkaTopic,
		"group": cfg.Notify.KafkaGroup,
	}).Info("Notifier started")

	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Error("Notification consumer stopped")
	}

	logger.Info("Shutting down notifier...")
}
