// Package studio owns the persisted state of the service: user accounts and
// generation sessions.
package studio

import (
	"database/sql"

	"uicraft/internal/redis"
)

// HistoryLimit caps the number of sessions returned by ListRecent.
const HistoryLimit = 10

// Service handles user lifecycle and session persistence. The redis client
// is optional; when nil every read goes straight to the database.
type Service struct {
	db    *sql.DB
	cache *redis.Client
}

// NewService builds a new studio service.
func NewService(db *sql.DB, cache *redis.Client) *Service {
	return &Service{db: db, cache: cache}
}
