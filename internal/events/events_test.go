package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleEvent() OrderEvent {
	return OrderEvent{
		Type:        OrderSubmitted,
		Marketplace: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		OrderIndex:  3,
		OrderTaker:  common.HexToAddress("0xe6ed92d26573c67af5eca7fb2a49a807fb8f88db"),
		Nonce:       "7",
		Status:      1,
		OccurredAt:  time.Unix(1530184331, 0).UTC(),
	}
}

func TestKafkaPublisherWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWith(w)

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "0x1111111111111111111111111111111111111111", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, string(OrderSubmitted), string(msg.Headers[0].Value))

	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, sampleEvent(), decoded)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisherWith(&fakeWriter{err: boom})
	assert.ErrorIs(t, p.Publish(context.Background(), sampleEvent()), boom)
}

func TestMultiPublisherFansOut(t *testing.T) {
	logger, hook := test.NewNullLogger()
	good := &fakeWriter{}
	boom := errors.New("broker down")

	m := NewMultiPublisher(NewLogPublisher(logger), NewKafkaPublisherWith(good), NewKafkaPublisherWith(&fakeWriter{err: boom}))
	err := m.Publish(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, boom)
	assert.Len(t, good.msgs, 1)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, OrderSubmitted, hook.LastEntry().Data["event"])
	assert.NoError(t, m.Close())
}
