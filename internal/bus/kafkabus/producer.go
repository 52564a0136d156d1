// Package kafkabus implements the bus gateway on Kafka.
package kafkabus

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/errs"
)

const (
	headerMessageID   = "x-message-id"
	headerContentType = "content-type"
	headerTTLMillis   = "x-ttl-ms"
)

// Producer publishes to any topic through a single shared writer.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, msg bus.Message) error {
	km := kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: headerMessageID, Value: []byte(msg.ID)},
			{Key: headerContentType, Value: []byte(msg.ContentType)},
			{Key: headerTTLMillis, Value: []byte(strconv.FormatInt(msg.TTL.Milliseconds(), 10))},
		},
	}
	if err := p.w.WriteMessages(ctx, km); err != nil {
		return errs.Transport("publish "+msg.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }
