package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/jogardn/storefront/internal/notify"
	"github.com/sirupsen/logrus"
)

type NotificationConsumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       notify.Handler
	logger        *logrus.Logger
	topics        []string
}

type consumerGroupHandler struct {
	handler notify.Handler
	logger  *logrus.Logger
}

func NewNotificationConsumer(brokers, groupID, topic string, handler notify.Handler, logger *logrus.Logger) (*NotificationConsumer, error) {
	consumerGroup, err := sarama.NewConsumerGroup(SplitBrokers(brokers), groupID, NewSaramaConfig())
	if err != nil {
		return nil, err
	}
	if topic == "" {
		topic = NotificationTopic
	}

	return &NotificationConsumer{
		consumerGroup: consumerGroup,
		handler:       handler,
		logger:        logger,
		topics:        []string{topic},
	}, nil
}

// Start consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *NotificationConsumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		logger:  c.logger,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.WithError(err).Error("Error consuming from Kafka")
			return err
		}
		if ctx.Err() != nil {
			c.logger.Info("Kafka consumer context cancelled")
			return nil
		}
	}
}

func (c *NotificationConsumer) Close() error {
	return c.consumerGroup.Close()
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			h.logger.WithFields(logrus.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
				"key":       string(message.Key),
			}).Debug("Received Kafka message")

			// One send attempt per message. Failures were already written to
			// the fallback log, so the offset is committed either way.
			if err := h.handleMessage(session.Context(), message); err != nil {
				h.logger.WithError(err).Warn("Notification not delivered by mail")
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var n notify.Notification
	if err := json.Unmarshal(message.Value, &n); err != nil {
		h.logger.WithError(err).WithField("offset", message.Offset).Error("Skipping undecodable notification")
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"kind":            n.Kind,
	}).Info("Processing notification")

	// Session cancellation during a rebalance must not abort a send halfway.
	return h.handler.Deliver(context.WithoutCancel(ctx), n)
}
