package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/broker"
	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/pkg/backoff"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

const (
	sourceLabel           = "changestream"
	checkpointSaveTimeout = 5 * time.Second
)

// changeEvent is the subset of a change stream insert event we read.
type changeEvent struct {
	OperationType string                    `bson:"operationType"`
	FullDocument  domain.NotificationRecord `bson:"fullDocument"`
}

// checkpointer persists the resume token so a restarted watcher picks up the
// inserts it missed while down.
type checkpointer interface {
	Load(ctx context.Context) (bson.Raw, error)
	Save(ctx context.Context, token bson.Raw) error
}

// Watcher turns inserts on the notification collection into record-created
// activations. It implements broker.MessageBroker so the trigger consumer can
// run on either transport.
//
// Events are acked out of order by the worker pool. The resume token only moves
// over the contiguous prefix of acked events, in stream order.
type Watcher struct {
	collection   *mongo.Collection
	backoffDelay time.Duration
	checkpoint   checkpointer

	mu           sync.Mutex
	resumeToken  bson.Raw
	nextSeq      uint64
	ackedThrough uint64
	acked        map[uint64]bson.Raw

	saveMu    sync.Mutex
	savedUpTo uint64
}

var _ broker.MessageBroker = (*Watcher)(nil)

func (s *Store) NewWatcher(backoffDelay time.Duration) *Watcher {
	w := &Watcher{collection: s.notifications, backoffDelay: backoffDelay}
	if s.checkpoints != nil {
		w.checkpoint = collectionCheckpoint{collection: s.checkpoints, id: s.notifications.Name()}
	}
	return w
}

func insertPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
}

// Consume watches until ctx is cancelled, reopening the stream after errors from
// the last resume token that every earlier event has been acked through.
func (w *Watcher) Consume(ctx context.Context, consumeFunc func(ctx context.Context, msg broker.Message) error) error {
	logger.L().Info("Starting change stream watcher", zap.String("collection", w.collection.Name()))
	w.loadCheckpoint(ctx)

	attempt := 0
	for {
		err := w.watchOnce(ctx, consumeFunc, func() { attempt = 0 })
		if ctx.Err() != nil {
			logger.L().Info("Context cancelled, stopping change stream watcher")
			return nil
		}
		attempt++
		logger.L().Error("Change stream interrupted, reopening",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if backoff.Wait(ctx, attempt+1, w.backoffDelay) != nil {
			return nil
		}
	}
}

func (w *Watcher) loadCheckpoint(ctx context.Context) {
	if w.checkpoint == nil || w.token() != nil {
		return
	}
	token, err := w.checkpoint.Load(ctx)
	if err != nil {
		logger.L().Warn("Could not load change stream checkpoint, starting from now", zap.Error(err))
		return
	}
	if token != nil {
		logger.L().Info("Resuming change stream from checkpoint")
		w.setToken(token)
	}
}

func (w *Watcher) watchOnce(ctx context.Context, consumeFunc func(ctx context.Context, msg broker.Message) error, onEvent func()) error {
	opts := options.ChangeStream()
	if token := w.token(); token != nil {
		opts.SetResumeAfter(token)
	}

	stream, err := w.collection.Watch(ctx, insertPipeline(), opts)
	if err != nil {
		return fmt.Errorf("opening change stream: %w", err)
	}
	defer stream.Close(context.Background())

	// Everything after the resume token is replayed, so acks from the previous
	// stream no longer count.
	w.restartSequence()

	for stream.Next(ctx) {
		onEvent()
		metrics.TriggerMessagesReceived.WithLabelValues(sourceLabel).Inc()

		seq := w.track()
		token := stream.ResumeToken()
		msg, err := decodeChange(stream.Current)
		if err != nil {
			metrics.TriggerMessagesDLQ.WithLabelValues(sourceLabel).Inc()
			logger.L().Error("Skipping undecodable change event", zap.Error(err))
			w.ack(ctx, seq, token)
			continue
		}
		msg.ack = func(ackCtx context.Context) { w.ack(ackCtx, seq, token) }

		if err := consumeFunc(ctx, msg); err != nil {
			logger.L().Error("Error returned by consumeFunc",
				zap.String("notificationID", msg.record.ID),
				zap.Error(err),
			)
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return errors.New("change stream closed")
}

func decodeChange(raw bson.Raw) (*changeMessage, error) {
	var ev changeEvent
	if err := bson.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decoding change event: %w", err)
	}
	if ev.FullDocument.ID == "" {
		return nil, errors.New("change event has no fullDocument id")
	}
	return &changeMessage{record: ev.FullDocument}, nil
}

// track assigns the next stream sequence number.
func (w *Watcher) track() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	seq := w.nextSeq
	w.nextSeq++
	return seq
}

func (w *Watcher) restartSequence() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ackedThrough = w.nextSeq
	w.acked = nil
}

// ack records that event seq is done and advances the resume token over the
// contiguous run of acked events.
func (w *Watcher) ack(ctx context.Context, seq uint64, token bson.Raw) {
	w.mu.Lock()
	if seq < w.ackedThrough {
		w.mu.Unlock()
		return
	}
	if w.acked == nil {
		w.acked = make(map[uint64]bson.Raw)
	}
	w.acked[seq] = token

	var advanced bson.Raw
	for {
		t, ok := w.acked[w.ackedThrough]
		if !ok {
			break
		}
		delete(w.acked, w.ackedThrough)
		w.ackedThrough++
		if t != nil {
			advanced = t
		}
	}
	if advanced != nil {
		w.resumeToken = advanced
	}
	upTo := w.ackedThrough
	w.mu.Unlock()

	if advanced != nil {
		w.save(ctx, advanced, upTo)
	}
}

// save persists token unless a later one has already been written.
func (w *Watcher) save(ctx context.Context, token bson.Raw, upTo uint64) {
	if w.checkpoint == nil {
		return
	}
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	if upTo <= w.savedUpTo {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkpointSaveTimeout)
	defer cancel()
	if err := w.checkpoint.Save(saveCtx, token); err != nil {
		logger.L().Warn("Failed to persist change stream checkpoint", zap.Error(err), logger.TraceField(ctx))
		return
	}
	w.savedUpTo = upTo
}

func (w *Watcher) token() bson.Raw {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resumeToken
}

func (w *Watcher) setToken(token bson.Raw) {
	if token == nil {
		return
	}
	w.mu.Lock()
	w.resumeToken = token
	w.mu.Unlock()
}

func (w *Watcher) Close() error {
	return nil
}

// collectionCheckpoint keeps one resume token document per watched collection.
type collectionCheckpoint struct {
	collection *mongo.Collection
	id         string
}

func (c collectionCheckpoint) Load(ctx context.Context) (bson.Raw, error) {
	var doc struct {
		Token bson.Raw `bson:"token"`
	}
	err := c.collection.FindOne(ctx, bson.M{"_id": c.id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint %s: %w", c.id, err)
	}
	return doc.Token, nil
}

func (c collectionCheckpoint) Save(ctx context.Context, token bson.Raw) error {
	_, err := c.collection.UpdateOne(ctx,
		bson.M{"_id": c.id},
		bson.M{
			"$set":         bson.M{"token": token},
			"$currentDate": bson.M{"updatedAt": true},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", c.id, err)
	}
	return nil
}

// changeMessage is one insert event. Acking releases its place in the resume
// order; there is no dead letter destination, so MoveToDLQ only logs.
type changeMessage struct {
	record domain.NotificationRecord
	ack    func(ctx context.Context)
	once   sync.Once
}

func (m *changeMessage) Data() domain.NotificationRecord {
	return m.record
}

func (m *changeMessage) Ack(ctx context.Context) error {
	m.once.Do(func() {
		if m.ack != nil {
			m.ack(ctx)
		}
	})
	return nil
}

func (m *changeMessage) MoveToDLQ(ctx context.Context, processingError error) error {
	metrics.TriggerMessagesDLQ.WithLabelValues(sourceLabel).Inc()
	logger.L().Error("Dropping change event that could not be handled",
		zap.String("notificationID", m.record.ID),
		logger.TraceField(ctx),
		zap.Error(processingError),
	)
	return m.Ack(ctx)
}

func (m *changeMessage) Headers() []kafka.Header {
	return nil
}
