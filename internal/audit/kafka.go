package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"netgate/internal/config"
	"netgate/internal/constants"
	"netgate/internal/gateway"
	"netgate/internal/logger"
	"netgate/pkg/metrics"
	"netgate/pkg/tracing"
)

// KafkaSink publishes every decision to the audit topic so downstream
// consumers can build their own view of gate activity.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
	log    logger.Logger
}

func NewKafkaSink(cfg config.KafkaConfig, log logger.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaSink{writer: w, topic: cfg.Topic, log: log}
}

func (s *KafkaSink) Record(ctx context.Context, decision gateway.Decision) error {
	body, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	headers := []kafka.Header{}
	headers = tracing.InjectTraceContext(ctx, headers)

	start := time.Now()
	err = s.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   s.topic,
			Key:     []byte(decision.ID),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	metrics.ObserveKafkaWriteDuration("gateway", s.topic, time.Since(start))

	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten("gateway", s.topic)
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
