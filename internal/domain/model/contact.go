package model

import "time"

// ContactHealth represents the relationship health of a contact.
type ContactHealth string

const (
	// HealthGood indicates a contact with recent interactions.
	HealthGood ContactHealth = "good"
	// HealthNeedsAttention indicates a contact the agent flagged for follow-up.
	HealthNeedsAttention ContactHealth = "needs_attention"
	// HealthAtRisk indicates a contact with a long interaction gap.
	HealthAtRisk ContactHealth = "at_risk"
)

// Valid returns true if the ContactHealth is valid.
func (h ContactHealth) Valid() bool {
	return h == HealthGood || h == HealthNeedsAttention || h == HealthAtRisk
}

// Contact represents a tenant contact.
type Contact struct {
	ID                string        `json:"id"                            db:"id"`
	TenantID          string        `json:"tenant_id"                     db:"tenant_id"`
	Name              string        `json:"name"                          db:"name"`
	Company           *string       `json:"company,omitempty"             db:"company"`
	Health            ContactHealth `json:"health"                        db:"health"`
	LastInteractionAt *time.Time    `json:"last_interaction_at,omitempty" db:"last_interaction_at"`
	CreatedAt         time.Time     `json:"created_at"                    db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"                    db:"updated_at"`
}

// Interaction represents one recorded touchpoint with a contact.
type Interaction struct {
	ID         string    `json:"id"          db:"id"`
	TenantID   string    `json:"tenant_id"   db:"tenant_id"`
	ContactID  string    `json:"contact_id"  db:"contact_id"`
	Type       string    `json:"type"        db:"type"`
	Summary    string    `json:"summary"     db:"summary"`
	Source     string    `json:"source"      db:"source"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}
