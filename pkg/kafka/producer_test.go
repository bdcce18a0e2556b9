package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type mockWriter struct {
	mock.Mock
	written []kafka.Message
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, len(msgs))
	if args.Error(0) == nil {
		m.written = append(m.written, msgs...)
	}
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headerMap(hs []kafka.Header) map[string]string {
	out := make(map[string]string, len(hs))
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestNewEvent(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	e, err := NewEvent("catalog.product.created", "p-1", "product", "catalog-service", payload{Name: "Mouse"})
	require.NoError(t, err)

	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, 1, e.Version)
	assert.WithinDuration(t, time.Now().UTC(), e.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, e.UnmarshalData(&got))
	assert.Equal(t, "Mouse", got.Name)
}

func TestNewEvent_UnserializablePayload(t *testing.T) {
	_, err := NewEvent("x", "1", "x", "svc", make(chan int))
	require.Error(t, err)
}

func TestUnmarshalEvent(t *testing.T) {
	e, err := NewEvent("catalog.user.registered", "u-1", "user", "catalog-service", map[string]string{"email": "a@b.test"})
	require.NoError(t, err)
	e.WithCorrelationID("corr-1")

	raw, err := e.Marshal()
	require.NoError(t, err)

	back, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, back.EventID)
	assert.Equal(t, "corr-1", back.CorrelationID)
	assert.JSONEq(t, string(e.Data), string(back.Data))

	_, err = UnmarshalEvent([]byte("{"))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "catalog.product.created", Topic("product", "created"))
}

func TestProducer_Publish(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	ctx, span := tp.Tracer("test").Start(context.Background(), "create product")
	defer span.End()

	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, 1).Return(nil)
	p := newProducer(w, []string{"localhost:9092"}, discardLogger())

	e, err := NewEvent("catalog.product.created", "p-1", "product", "catalog-service", map[string]any{"id": "p-1"})
	require.NoError(t, err)
	e.WithCorrelationID("corr-9")

	require.NoError(t, p.Publish(ctx, Topic("product", "created"), e))
	w.AssertExpectations(t)

	require.Len(t, w.written, 1)
	msg := w.written[0]
	assert.Equal(t, "catalog.product.created", msg.Topic)
	assert.Equal(t, "p-1", string(msg.Key))

	headers := headerMap(msg.Headers)
	assert.Equal(t, "catalog.product.created", headers["event_type"])
	assert.Equal(t, "corr-9", headers["correlation_id"])
	assert.Contains(t, headers["traceparent"], span.SpanContext().TraceID().String())

	var env Event
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, e.EventID, env.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, 1).Return(errors.New("leader not available"))
	p := newProducer(w, nil, discardLogger())

	e, err := NewEvent("catalog.category.created", "c-1", "category", "catalog-service", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "catalog.category.created", e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to catalog.category.created")
}

func TestProducer_Close(t *testing.T) {
	w := &mockWriter{}
	w.On("Close").Return(nil)
	require.NoError(t, newProducer(w, nil, discardLogger()).Close())
	w.AssertExpectations(t)
}

func TestPingBrokers(t *testing.T) {
	require.Error(t, PingBrokers(context.Background(), nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = PingBrokers(ctx, []string{addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all brokers unreachable")
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "existing", Value: []byte("v1")}}
	c := NewHeaderCarrier(&headers)

	assert.Equal(t, "v1", c.Get("existing"))
	assert.Equal(t, "", c.Get("missing"))

	c.Set("existing", "v2")
	c.Set("new", "v3")
	assert.Equal(t, "v2", c.Get("existing"))
	assert.ElementsMatch(t, []string{"existing", "new"}, c.Keys())
	assert.Len(t, headers, 2)
}
