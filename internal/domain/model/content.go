package model

import (
	"encoding/json"
	"time"
)

// Draft represents generated content pending human review.
type Draft struct {
	ID        string          `json:"id"         db:"id"`
	TenantID  string          `json:"tenant_id"  db:"tenant_id"`
	Type      string          `json:"type"       db:"type"`
	Title     string          `json:"title"      db:"title"`
	Content   string          `json:"content"    db:"content"`
	Status    string          `json:"status"     db:"status"`
	Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// TimeBlock represents a suggested calendar block pending human review.
type TimeBlock struct {
	ID              string    `json:"id"               db:"id"`
	TenantID        string    `json:"tenant_id"        db:"tenant_id"`
	Title           string    `json:"title"            db:"title"`
	SuggestedDate   time.Time `json:"suggested_date"   db:"suggested_date"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	BlockType       string    `json:"block_type"       db:"block_type"`
	Status          string    `json:"status"           db:"status"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"`
}

// ResearchFinding represents a saved piece of research.
type ResearchFinding struct {
	ID        string    `json:"id"         db:"id"`
	TenantID  string    `json:"tenant_id"  db:"tenant_id"`
	Topic     string    `json:"topic"      db:"topic"`
	Type      string    `json:"type"       db:"type"`
	Title     string    `json:"title"      db:"title"`
	Summary   string    `json:"summary"    db:"summary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DraftStatusPending is the initial status of agent-saved drafts and time blocks.
const DraftStatusPending = "pending_review"
