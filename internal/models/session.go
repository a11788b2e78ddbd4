package models

import "time"

// DefaultSessionTitle labels sessions the caller never named.
const DefaultSessionTitle = "Untitled Component"

// Session records one prompt-to-component generation and its extracted
// artifacts. Every session belongs to exactly one user.
type Session struct {
	ID         int64     `json:"id"`
	Key        string    `json:"session_id"`
	UserID     int64     `json:"owner"`
	Title      string    `json:"title"`
	Prompt     string    `json:"prompt"`
	Markup     string    `json:"markup"`
	Stylesheet string    `json:"stylesheet"`
	CreatedAt  time.Time `json:"createdAt"`
}
