package audit

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionRecord is one row per game session, written once at start and
// never updated.
type SessionRecord struct {
	ID        int64 `gorm:"primaryKey"`
	StartedAt time.Time
	Players   string // comma-joined display names; this is a log, not a query target
}

// ActionRecord is one row per action that reached a terminal state,
// written once and never updated.
type ActionRecord struct {
	ID          int64 `gorm:"primaryKey"`
	SessionID   int64 `gorm:"index"`
	UnitID      int
	ActionType  string
	State       string
	Message     string
	CompletedAt time.Time
}

// GormSink is the append-only Postgres-backed Sink, adapted from the
// teacher's GORM repository pattern (internal/adapters/db.go connection
// pool tuning, internal/infra/repository.go concrete repo structs) but
// write-only: it never exposes a Get/List method, matching its role as
// an audit log rather than an authoritative store.
type GormSink struct {
	db *gorm.DB
}

// OpenGormSink connects to dsn, tunes the pool the way the teacher's
// InitializeDatabase does, and migrates the audit tables.
func OpenGormSink(dsn string) (*GormSink, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&SessionRecord{}, &ActionRecord{}); err != nil {
		return nil, err
	}
	return &GormSink{db: db}, nil
}

// RecordSessionStart inserts a new SessionRecord and returns its id.
func (s *GormSink) RecordSessionStart(ctx context.Context, players []string) (int64, error) {
	row := SessionRecord{StartedAt: time.Now(), Players: joinNames(players)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// RecordActionCompletion inserts one ActionRecord.
func (s *GormSink) RecordActionCompletion(ctx context.Context, sessionID int64, unitID int, actionType, state, message string) error {
	row := ActionRecord{
		SessionID:   sessionID,
		UnitID:      unitID,
		ActionType:  actionType,
		State:       state,
		Message:     message,
		CompletedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}
