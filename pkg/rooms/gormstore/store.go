// Package gormstore implements a rooms.Store backed by GORM, supporting
// both an embedded SQLite file and a PostgreSQL server, mirroring the
// teacher's pluggable pkg/store/metadata dialect selection.
package gormstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coderoom/engine/internal/telemetry"
	"github.com/coderoom/engine/pkg/config"
	"github.com/coderoom/engine/pkg/identity"
	"github.com/coderoom/engine/pkg/rooms"
)

// Store is a gorm.DB-backed rooms.Store. The SQLite dialect manages its
// own schema via AutoMigrate; the PostgreSQL dialect runs the embedded
// golang-migrate migrations instead, since golang-migrate has no pure-Go
// SQLite driver compatible with the cgo-free glebarez/sqlite dialector.
type Store struct {
	db  *gorm.DB
	ttl time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
}

var _ rooms.Store = (*Store)(nil)

// New opens a room store for the configured database backend and brings
// its schema up to date.
func New(ctx context.Context, cfg config.DatabaseConfig, ttl time.Duration) (*Store, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.Type {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite room store: %w", err)
		}
		if err := db.AutoMigrate(&rooms.Room{}); err != nil {
			return nil, fmt.Errorf("migrate sqlite room store: %w", err)
		}
		return &Store{db: db, ttl: ttl}, nil

	case "postgres":
		dsn := postgresDSN(cfg)
		if err := runPostgresMigrations(ctx, dsn); err != nil {
			return nil, fmt.Errorf("migrate postgres room store: %w", err)
		}
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres room store: %w", err)
		}
		return &Store{db: db, ttl: ttl}, nil

	default:
		return nil, fmt.Errorf("gormstore: unsupported database type %q", cfg.Type)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

// CreateRoom generates a code, retrying on collision up to MaxCreateRetries.
func (s *Store) CreateRoom(ctx context.Context, password string) (string, error) {
	ctx, span := telemetry.StartRoomStoreQuerySpan(ctx, "create")
	defer span.End()

	hash, err := identity.HashPassword(password)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < rooms.MaxCreateRetries(); attempt++ {
		code, err := rooms.GenerateCode()
		if err != nil {
			return "", err
		}

		now := time.Now()
		room := rooms.Room{
			Code:         code,
			PasswordHash: hash,
			CreatedAt:    now,
			LastAccessAt: now,
		}

		err = s.db.WithContext(ctx).Create(&room).Error
		if err == nil {
			return code, nil
		}
		if !isUniqueViolation(err) {
			return "", fmt.Errorf("create room: %w", err)
		}
		// Primary key collision: try another code.
	}

	return "", rooms.ErrRoomCodeCollision
}

// Authenticate looks up code and verifies password, refreshing LastAccessAt.
func (s *Store) Authenticate(ctx context.Context, code, password string) error {
	ctx, span := telemetry.StartRoomStoreQuerySpan(ctx, "authenticate", telemetry.RoomCode(code))
	defer span.End()

	var room rooms.Room
	if err := s.db.WithContext(ctx).First(&room, "code = ?", code).Error; err != nil {
		if isNotFound(err) {
			return rooms.ErrRoomNotFound
		}
		return fmt.Errorf("lookup room: %w", err)
	}
	if !identity.VerifyPassword(password, room.PasswordHash) {
		return rooms.ErrBadPassword
	}

	return s.db.WithContext(ctx).Model(&room).
		Update("last_access_at", time.Now()).Error
}

// Touch refreshes LastAccessAt for code without checking a password.
func (s *Store) Touch(ctx context.Context, code string) error {
	ctx, span := telemetry.StartRoomStoreQuerySpan(ctx, "touch", telemetry.RoomCode(code))
	defer span.End()

	result := s.db.WithContext(ctx).Model(&rooms.Room{}).
		Where("code = ?", code).
		Update("last_access_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("touch room: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return rooms.ErrRoomNotFound
	}
	return nil
}

// List returns every persisted room, ordered by CreatedAt descending.
func (s *Store) List(ctx context.Context) ([]rooms.Room, error) {
	ctx, span := telemetry.StartRoomStoreQuerySpan(ctx, "list")
	defer span.End()

	var out []rooms.Room
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

// Close stops the background reaper, if running, and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartReaper launches a goroutine that periodically deletes rooms whose
// TTL has elapsed. Call Close to stop it.
func (s *Store) StartReaper(interval time.Duration) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.reap()
			}
		}
	}()
}

func (s *Store) reap() {
	cutoff := time.Now().Add(-s.ttl)
	s.db.Where("last_access_at < ?", cutoff).Delete(&rooms.Room{})
}
