package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"foodconnect/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisherKeysByRestaurant(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisher(w)

	ev := OrderEvent{
		Type:         TypeOrderStatusChanged,
		OrderID:      "o1",
		RestaurantID: "r1",
		FromStatus:   models.StatusPending,
		ToStatus:     models.StatusAccepted,
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.PublishOrderEvent(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "r1", string(w.msgs[0].Key))

	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	p := NewKafkaPublisher(&recordingWriter{err: errors.New("broker unavailable")})
	err := p.PublishOrderEvent(context.Background(), OrderEvent{OrderID: "o1"})
	assert.EqualError(t, err, "broker unavailable")
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishOrderEvent(context.Background(), OrderEvent{}))
}
