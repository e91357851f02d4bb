// Package events carries operator notifications through Kafka so a separate
// notifier process can send the emails.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/jogardn/storefront/internal/notify"
	"github.com/sirupsen/logrus"
)

const (
	NotificationTopic = "storefront.notifications"
)

// NewSaramaConfig returns the client settings shared by the producer and the
// notifier consumer group.
func NewSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_6_0_0
	return config
}

func SplitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NotificationProducer is a notify.Dispatcher that publishes instead of
// sending. A failed publish goes straight to the fallback log.
type NotificationProducer struct {
	producer sarama.SyncProducer
	fallback notify.Handler
	topic    string
	logger   *logrus.Logger
}

func NewNotificationProducer(brokers, topic string, fallback notify.Handler, logger *logrus.Logger) (*NotificationProducer, error) {
	producer, err := sarama.NewSyncProducer(SplitBrokers(brokers), NewSaramaConfig())
	if err != nil {
		return nil, err
	}
	return NewNotificationProducerWith(producer, topic, fallback, logger), nil
}

func NewNotificationProducerWith(producer sarama.SyncProducer, topic string, fallback notify.Handler, logger *logrus.Logger) *NotificationProducer {
	if topic == "" {
		topic = NotificationTopic
	}
	return &NotificationProducer{
		producer: producer,
		fallback: fallback,
		topic:    topic,
		logger:   logger,
	}
}

func (p *NotificationProducer) Dispatch(ctx context.Context, n notify.Notification) error {
	if n.RequestedAt.IsZero() {
		n.RequestedAt = time.Now().UTC()
	}

	data, err := json.Marshal(n)
	if err != nil {
		p.fallback.Fallback(n)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(n.ID.String()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(n.Kind)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithField("notification_id", n.ID).Error("Failed to publish notification, writing fallback log")
		p.fallback.Fallback(n)
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":           p.topic,
		"partition":       partition,
		"offset":          offset,
		"notification_id": n.ID,
		"kind":            n.Kind,
	}).Info("Notification published to Kafka")

	return nil
}

func (p *NotificationProducer) Close() error {
	return p.producer.Close()
}
