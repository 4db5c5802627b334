package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

type Config struct {
	URI                     string
	Database                string
	NotificationsCollection string
	TokensCollection        string
	// CheckpointsCollection holds change stream resume tokens. Empty disables persistence.
	CheckpointsCollection string
}

// Store keeps notification records and device tokens in two MongoDB collections.
type Store struct {
	client        *mongo.Client
	notifications *mongo.Collection
	tokens        *mongo.Collection
	checkpoints   *mongo.Collection
}

var _ store.Store = (*Store)(nil)

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("MONGO_URI must be set")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	logger.L().Info("Connected to MongoDB",
		zap.String("database", cfg.Database),
		zap.String("notifications", cfg.NotificationsCollection),
		zap.String("tokens", cfg.TokensCollection),
	)

	db := client.Database(cfg.Database)
	s := newStore(client, db.Collection(cfg.NotificationsCollection), db.Collection(cfg.TokensCollection))
	if cfg.CheckpointsCollection != "" {
		s.checkpoints = db.Collection(cfg.CheckpointsCollection)
	}
	return s, nil
}

func newStore(client *mongo.Client, notifications, tokens *mongo.Collection) *Store {
	return &Store{client: client, notifications: notifications, tokens: tokens}
}

// idFilter matches a record whether its _id was stored as a string or an ObjectID.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func (s *Store) Get(ctx context.Context, id string) (domain.NotificationRecord, error) {
	var record domain.NotificationRecord
	err := s.notifications.FindOne(ctx, idFilter(id)).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.NotificationRecord{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("loading notification %s: %w", id, err)
	}
	return record, nil
}

// MarkSent stamps sentAt with the server clock via $currentDate.
func (s *Store) MarkSent(ctx context.Context, id string, successCount, failureCount int) error {
	update := bson.M{
		"$set": bson.M{
			"sent":         true,
			"successCount": successCount,
			"failureCount": failureCount,
		},
		"$currentDate": bson.M{"sentAt": true},
	}
	return s.update(ctx, id, update)
}

func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	update := bson.M{
		"$set": bson.M{
			"sent":  false,
			"error": message,
		},
	}
	return s.update(ctx, id, update)
}

func (s *Store) update(ctx context.Context, id string, update bson.M) error {
	res, err := s.notifications.UpdateOne(ctx, idFilter(id), update)
	if err != nil {
		return fmt.Errorf("updating notification %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

// ListTokens reads the whole token collection; entries without a token are
// returned as-is and filtered by the caller.
func (s *Store) ListTokens(ctx context.Context) ([]domain.DeviceToken, error) {
	cursor, err := s.tokens.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"token": 1}))
	if err != nil {
		return nil, fmt.Errorf("listing device tokens: %w", err)
	}
	defer cursor.Close(ctx)

	var tokens []domain.DeviceToken
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, fmt.Errorf("decoding device tokens: %w", err)
	}
	return tokens, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	logger.L().Info("Closing MongoDB connection")
	return s.client.Disconnect(ctx)
}
