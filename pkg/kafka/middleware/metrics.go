package kafka_middleware

import (
	"context"
	"time"

	"roomly/pkg/kafka"
	"roomly/pkg/metrics"
)

const (
	directionPublish = "publish"
	directionConsume = "consume"
)

func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(m, directionPublish, msg.Topic, start, err)
		return err
	}
}

func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(m, directionConsume, msg.Topic, start, err)
		return err
	}
}

func observe(m *metrics.Metrics, direction, topic string, start time.Time, err error) {
	m.KafkaMessages.WithLabelValues(direction, topic, metrics.ResultLabel(err)).Inc()
	m.KafkaDuration.WithLabelValues(direction, topic).Observe(time.Since(start).Seconds())
}
