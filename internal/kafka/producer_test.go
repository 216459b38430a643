package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writerMock struct {
	msgs   []kafka.Message
	closed bool
}

func (w *writerMock) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *writerMock) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	t.Parallel()

	w := &writerMock{}
	p := NewProducer(w)

	require.NoError(t, p.Publish(context.Background(), []byte("p1"), []byte(`{"id":"x"}`)))
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "p1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"id":"x"}`, string(w.msgs[0].Value))
	assert.True(t, w.closed)
}

func TestNewProducerFromConfig_Defaults(t *testing.T) {
	t.Parallel()

	p := NewProducerFromConfig(Config{Brokers: []string{"127.0.0.1:9092"}, Topic: "reminders.outcomes"})
	w, ok := p.w.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "reminders.outcomes", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Positive(t, w.BatchTimeout)
}
