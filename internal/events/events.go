// internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Type string

const (
	OrderSubmitted Type = "order.submitted"
	OrderApproved  Type = "order.approved"
	OrderRejected  Type = "order.rejected"
)

// OrderEvent describes a committed order lifecycle change.
type OrderEvent struct {
	Type        Type           `json:"type"`
	Marketplace common.Address `json:"marketplace_address"`
	OrderIndex  uint64         `json:"order_index"`
	OrderHash   common.Hash    `json:"order_hash"`
	OrderTaker  common.Address `json:"order_taker_address"`
	Nonce       string         `json:"nonce"`
	Status      uint8          `json:"status"`
	Actor       common.Address `json:"actor"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Key partitions events by marketplace so each marketplace's order
// sequence stays ordered.
func (e OrderEvent) Key() []byte {
	return []byte(strings.ToLower(e.Marketplace.Hex()))
}

type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// MultiPublisher fans out to every publisher and joins their errors.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(ps ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: ps}
}

func (m *MultiPublisher) Publish(ctx context.Context, e OrderEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(_ context.Context, e OrderEvent) error {
	l.logger.WithFields(logrus.Fields{
		"event":       e.Type,
		"marketplace": e.Marketplace.Hex(),
		"order_index": e.OrderIndex,
		"order_hash":  e.OrderHash.Hex(),
		"actor":       e.Actor.Hex(),
		"status":      e.Status,
	}).Info("Order event")
	return nil
}

func (l *LogPublisher) Close() error { return nil }

// KafkaPublisher writes events as JSON to a Kafka topic, keyed by
// marketplace address.
type KafkaPublisher struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	var addrs []string
	for _, b := range brokers {
		b = strings.TrimSpace(b)
		if b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

// NewKafkaPublisherWith is only for tests to inject a fake writer.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e OrderEvent) error {
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   e.Key(),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}); err != nil {
		return fmt.Errorf("events.KafkaPublisher.Publish: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
