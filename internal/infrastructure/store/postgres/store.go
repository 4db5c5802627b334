package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/store"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

type Config struct {
	DSN                string
	NotificationsTable string
	TokensTable        string
	DisableAutoPing    bool
	DryRun             bool
}

// Store keeps notification records and device tokens in two PostgreSQL tables.
// The tables are owned by the writer side; no migrations are run here.
type Store struct {
	db                 *gorm.DB
	notificationsTable string
	tokensTable        string
}

var _ store.Store = (*Store)(nil)

func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("POSTGRES_DSN must be set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormLogger.New(
			zap.NewStdLog(logger.L()),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		DisableAutomaticPing: cfg.DisableAutoPing,
		DryRun:               cfg.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	logger.L().Info("Connected to PostgreSQL",
		zap.String("notifications", cfg.NotificationsTable),
		zap.String("tokens", cfg.TokensTable),
	)
	return &Store{db: db, notificationsTable: cfg.NotificationsTable, tokensTable: cfg.TokensTable}, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.NotificationRecord, error) {
	var record domain.NotificationRecord
	err := s.db.WithContext(ctx).Table(s.notificationsTable).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotificationRecord{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("loading notification %s: %w", id, err)
	}
	return record, nil
}

func (s *Store) markSentQuery(tx *gorm.DB, id string, successCount, failureCount int) *gorm.DB {
	return tx.Table(s.notificationsTable).Where("id = ?", id).Updates(map[string]any{
		"sent":          true,
		"sent_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		"success_count": successCount,
		"failure_count": failureCount,
	})
}

func (s *Store) markFailedQuery(tx *gorm.DB, id, message string) *gorm.DB {
	return tx.Table(s.notificationsTable).Where("id = ?", id).Updates(map[string]any{
		"sent":  false,
		"error": message,
	})
}

// MarkSent stamps sent_at with the database clock.
func (s *Store) MarkSent(ctx context.Context, id string, successCount, failureCount int) error {
	return checkUpdate(id, s.markSentQuery(s.db.WithContext(ctx), id, successCount, failureCount))
}

func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	return checkUpdate(id, s.markFailedQuery(s.db.WithContext(ctx), id, message))
}

func checkUpdate(id string, res *gorm.DB) error {
	if res.Error != nil {
		return fmt.Errorf("updating notification %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListTokens(ctx context.Context) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	if err := s.db.WithContext(ctx).Table(s.tokensTable).Select("id", "token").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("listing device tokens: %w", err)
	}
	return tokens, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	logger.L().Info("Closing PostgreSQL connection")
	return sqlDB.Close()
}
