package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/medeiros-dev/notification-gateway/internal/domain/port/broker"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until ctx is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	errs      []error
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return f.err
}

func consumeAll(t *testing.T, kb *KafkaBroker, want int) []broker.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []broker.Message
	err := kb.Consume(ctx, func(ctx context.Context, msg broker.Message) error {
		got = append(got, msg)
		if len(got) == want {
			cancel()
		}
		return msg.Ack(ctx)
	})
	require.NoError(t, err)
	return got
}

func TestConsume_DecodesRecordsAndAcks(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "records", Offset: 1, Value: []byte(`{"id":"n1","eventId":"e1","eventTitle":"Hackathon","eventDate":"2024-06-01","sent":false}`)},
		{Topic: "records", Offset: 2, Value: []byte(`{"id":"n2","sent":true}`)},
	}}
	writer := &fakeWriter{}
	kb := newKafkaBroker(reader, writer, Config{Topic: "records", GroupID: "g", DLQTopic: "records-dlq"})

	got := consumeAll(t, kb, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "n1", got[0].Data().ID)
	assert.Equal(t, "Hackathon", got[0].Data().EventTitle)
	assert.True(t, got[1].Data().Sent)
	assert.Len(t, reader.committed, 2)
	assert.Empty(t, writer.written)
}

func TestConsume_PoisonPillGoesToDLQ(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "records", Offset: 7, Key: []byte("k"), Value: []byte(`not json`)},
		{Topic: "records", Offset: 8, Value: []byte(`{"eventTitle":"no id"}`)},
	}}
	writer := &fakeWriter{}
	kb := newKafkaBroker(reader, writer, Config{Topic: "records", GroupID: "g", DLQTopic: "records-dlq"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	called := false
	require.NoError(t, kb.Consume(ctx, func(ctx context.Context, msg broker.Message) error {
		called = true
		return nil
	}))

	assert.False(t, called)
	require.Len(t, writer.written, 2)
	assert.Equal(t, "records-dlq", writer.written[0].Topic)
	assert.Equal(t, []byte("not json"), writer.written[0].Value)
	reason := otelHeaderCarrier{headers: &writer.written[0].Headers}.Get(dlqReasonHeader)
	assert.Contains(t, reason, "unmarshalling error")
	assert.Equal(t, "records", otelHeaderCarrier{headers: &writer.written[0].Headers}.Get(dlqSourceHeader))
	assert.Len(t, reader.committed, 2)
}

func TestMoveToDLQ_WithoutTopicDiscards(t *testing.T) {
	reader := &fakeReader{}
	writer := &fakeWriter{}
	kb := newKafkaBroker(reader, writer, Config{Topic: "records"})
	msg := &KafkaMessage{broker: kb, kafkaMsg: kafka.Message{Offset: 3}}

	require.NoError(t, msg.MoveToDLQ(context.Background(), errors.New("panic")))
	assert.Empty(t, writer.written)
	assert.Len(t, reader.committed, 1)
}

func TestMoveToDLQ_WriteFailureDoesNotAck(t *testing.T) {
	reader := &fakeReader{}
	writer := &fakeWriter{err: errors.New("broker down")}
	kb := newKafkaBroker(reader, writer, Config{Topic: "records", DLQTopic: "dlq"})
	msg := &KafkaMessage{broker: kb, kafkaMsg: kafka.Message{Offset: 3}}

	err := msg.MoveToDLQ(context.Background(), errors.New("panic"))
	assert.ErrorContains(t, err, "broker down")
	assert.Empty(t, reader.committed)
}

func TestConsume_FetchErrorBacksOffAndContinues(t *testing.T) {
	reader := &fakeReader{
		errs:  []error{errors.New("leader not available")},
		queue: []kafka.Message{{Value: []byte(`{"id":"n1"}`)}},
	}
	kb := newKafkaBroker(reader, &fakeWriter{}, Config{Topic: "records", BackoffDelay: time.Millisecond})

	got := consumeAll(t, kb, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].Data().ID)
}

func TestNewKafkaBroker_Validation(t *testing.T) {
	_, err := NewKafkaBroker(Config{})
	assert.Error(t, err)
	_, err = NewKafkaBroker(Config{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
	_, err = NewKafkaBroker(Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	reader := &fakeReader{}
	writer := &fakeWriter{}
	kb := newKafkaBroker(reader, writer, Config{})
	require.NoError(t, kb.Close())
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)
}

func TestSetHeader(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}, {Key: dlqReasonHeader, Value: []byte("old")}}
	out := setHeader(headers, dlqReasonHeader, "new")
	assert.Len(t, out, 2)
	assert.Equal(t, "new", otelHeaderCarrier{headers: &out}.Get(dlqReasonHeader))
	assert.Equal(t, "old", string(headers[1].Value), "input must not be mutated")
}
