// Package store persists conversation turns to SQLite so sessions
// survive restarts and history can seed the model prompt.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultHistoryLimit bounds a history query when the caller passes
// a non-positive limit.
const DefaultHistoryLimit = 50

// ErrNotFound indicates no rows matched the query.
var ErrNotFound = errors.New("store: not found")

// Turn is one completed exchange: what the user said and what the
// agent answered.
type Turn struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     string    `gorm:"size:64;not null;index:idx_session" json:"session_id"`
	UserMessage   string    `gorm:"type:text;not null" json:"user_message"`
	AgentResponse string    `gorm:"type:text;not null" json:"agent_response"`
	Timestamp     time.Time `gorm:"not null;index:idx_session_ts" json:"timestamp"`
}

// TableName keeps the historical table name.
func (Turn) TableName() string { return "chat_sessions" }

// SessionInfo summarizes one stored session.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	Turns     int64     `json:"turns"`
	LastAt    time.Time `json:"last_at"`
}

// Store reads and writes turns.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Turn{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	logger.Info("session store ready", "path", path)
	return &Store{db: db, logger: logger.With("component", "store")}, nil
}

// SaveTurn persists one exchange. The timestamp is set here so callers
// cannot write turns out of order within a session.
func (s *Store) SaveTurn(ctx context.Context, sessionID, userMessage, agentResponse string) error {
	if sessionID == "" {
		return errors.New("store: session id is required")
	}

	turn := &Turn{
		SessionID:     sessionID,
		UserMessage:   userMessage,
		AgentResponse: agentResponse,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("store: save turn: %w", err)
	}
	return nil
}

// History returns the most recent turns for a session, newest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var turns []Turn
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("store: load history: %w", err)
	}
	return turns, nil
}

// RecentContext returns up to limit turns in chronological order, ready
// to seed a model prompt.
func (s *Store) RecentContext(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	turns, err := s.History(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	// History is newest-first; the prompt wants oldest-first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Sessions lists every stored session with turn counts, most recently
// active first.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	type sessionCount struct {
		SessionID string
		Turns     int64
	}
	var counts []sessionCount
	err := s.db.WithContext(ctx).
		Model(&Turn{}).
		Select("session_id, COUNT(*) AS turns").
		Group("session_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}

	// SQLite hands aggregate columns back untyped, so last activity is
	// read from the newest turn row per session and the driver parses
	// the timestamp through the model column.
	var latest []Turn
	err = s.db.WithContext(ctx).
		Where("id IN (?)", s.db.Model(&Turn{}).Select("MAX(id)").Group("session_id")).
		Find(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	lastAt := make(map[string]time.Time, len(latest))
	for _, turn := range latest {
		lastAt[turn.SessionID] = turn.Timestamp
	}

	out := make([]SessionInfo, 0, len(counts))
	for _, c := range counts {
		out = append(out, SessionInfo{SessionID: c.SessionID, Turns: c.Turns, LastAt: lastAt[c.SessionID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAt.After(out[j].LastAt) })
	return out, nil
}

// Clear deletes every turn of one session and reports how many rows
// were removed. Returns ErrNotFound when the session has no turns.
func (s *Store) Clear(ctx context.Context, sessionID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&Turn{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: clear session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	s.logger.Info("session cleared", "session_id", sessionID, "turns", res.RowsAffected)
	return res.RowsAffected, nil
}
