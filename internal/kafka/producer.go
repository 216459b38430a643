package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration // default 50ms
	WriteTimeout time.Duration // default 10s
	RequiredAcks int           // default -1 (all)
}

// MessageWriter is the slice of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer is a thin wrapper around segmentio/kafka-go Writer.
type Producer struct {
	w MessageWriter
}

func NewProducerFromConfig(c Config) *Producer {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 50 * time.Millisecond
	}
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 10 * time.Second
	}
	acks := kafka.RequireAll
	if c.RequiredAcks > 0 {
		acks = kafka.RequiredAcks(c.RequiredAcks)
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{}, // same key -> same partition
		BatchTimeout:           bt,
		WriteTimeout:           wt,
		RequiredAcks:           acks,
		AllowAutoTopicCreation: true,
	}
	return &Producer{w: w}
}

// NewProducer wraps an existing writer.
func NewProducer(w MessageWriter) *Producer {
	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *Producer) Close() error { return p.w.Close() }
