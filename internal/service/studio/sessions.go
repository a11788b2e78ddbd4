package studio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"uicraft/internal/models"
	"uicraft/internal/redis"

	"github.com/google/uuid"
)

const (
	latestCacheKeyPrefix = "uicraft:last_session:"
	latestCacheTTL       = 10 * time.Minute
)

// CreateSession inserts a new session for the given user and returns the
// record. The insert is a single atomic statement.
func (s *Service) CreateSession(ctx context.Context, userID int64, prompt, markup, stylesheet string) (*models.Session, error) {
	if userID <= 0 {
		return nil, errors.New("user id is required")
	}
	now := time.Now().UTC()
	key := uuid.NewString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_key, user_id, title, prompt, markup, stylesheet, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, userID, models.DefaultSessionTitle, prompt, markup, stylesheet, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	session := &models.Session{
		ID:         id,
		Key:        key,
		UserID:     userID,
		Title:      models.DefaultSessionTitle,
		Prompt:     prompt,
		Markup:     markup,
		Stylesheet: stylesheet,
		CreatedAt:  now,
	}
	s.cacheLatest(ctx, session)
	return session, nil
}

// ListRecent returns the user's sessions newest-first, capped at HistoryLimit.
func (s *Service) ListRecent(ctx context.Context, userID int64) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_key, user_id, title, prompt, markup, stylesheet, created_at
		 FROM sessions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, HistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(&sess.ID, &sess.Key, &sess.UserID, &sess.Title, &sess.Prompt, &sess.Markup, &sess.Stylesheet, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Latest returns the user's most recent session, or sql.ErrNoRows when none
// exist. Reads go through the cache when one is configured.
func (s *Service) Latest(ctx context.Context, userID int64) (*models.Session, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, latestCacheKey(userID))
		if err == nil {
			var sess models.Session
			if jerr := json.Unmarshal([]byte(cached), &sess); jerr == nil {
				return &sess, nil
			}
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			log.Printf("latest session cache read failed: %v", err)
		}
	}

	var sess models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_key, user_id, title, prompt, markup, stylesheet, created_at
		 FROM sessions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID,
	).Scan(&sess.ID, &sess.Key, &sess.UserID, &sess.Title, &sess.Prompt, &sess.Markup, &sess.Stylesheet, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("latest session: %w", err)
	}
	// Only mutations write the cache. Repopulating here could race a
	// concurrent delete and resurrect the invalidated entry until its TTL.
	return &sess, nil
}

// UpdateSession replaces prompt, markup, and stylesheet as a single unit for
// a session owned by the user. A miss on id or ownership is sql.ErrNoRows;
// the two cases are indistinguishable to callers.
func (s *Service) UpdateSession(ctx context.Context, userID, sessionID int64, prompt, markup, stylesheet string) (*models.Session, error) {
	if sessionID <= 0 {
		return nil, errors.New("invalid session id")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET prompt = ?, markup = ?, stylesheet = ? WHERE id = ? AND user_id = ?`,
		prompt, markup, stylesheet, sessionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	s.dropLatest(ctx, userID)

	var sess models.Session
	err = s.db.QueryRowContext(ctx,
		`SELECT id, session_key, user_id, title, prompt, markup, stylesheet, created_at
		 FROM sessions WHERE id = ? AND user_id = ?`,
		sessionID, userID,
	).Scan(&sess.ID, &sess.Key, &sess.UserID, &sess.Title, &sess.Prompt, &sess.Markup, &sess.Stylesheet, &sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session owned by the user, with the same
// ownership-opaque sql.ErrNoRows semantics as UpdateSession.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID int64) error {
	if sessionID <= 0 {
		return errors.New("invalid session id")
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND user_id = ?`, sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	s.dropLatest(ctx, userID)
	return nil
}

func (s *Service) cacheLatest(ctx context.Context, sess *models.Session) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, latestCacheKey(sess.UserID), payload, latestCacheTTL); err != nil {
		log.Printf("latest session cache write failed: %v", err)
	}
}

func (s *Service) dropLatest(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, latestCacheKey(userID)); err != nil {
		log.Printf("latest session cache invalidate failed: %v", err)
	}
}

func latestCacheKey(userID int64) string {
	return fmt.Sprintf("%s%d", latestCacheKeyPrefix, userID)
}
