package model

import "time"

// RFP represents a tracked opportunity.
type RFP struct {
	ID        string     `json:"id"                 db:"id"`
	TenantID  string     `json:"tenant_id"          db:"tenant_id"`
	Title     string     `json:"title"              db:"title"`
	Status    string     `json:"status"             db:"status"`
	Deadline  *time.Time `json:"deadline,omitempty" db:"deadline"`
	CreatedAt time.Time  `json:"created_at"         db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"         db:"updated_at"`
}

// Proposal represents a proposal in progress, usually tied to an RFP.
type Proposal struct {
	ID        string     `json:"id"                 db:"id"`
	TenantID  string     `json:"tenant_id"          db:"tenant_id"`
	RFPID     *string    `json:"rfp_id,omitempty"   db:"rfp_id"`
	Title     string     `json:"title"              db:"title"`
	Status    string     `json:"status"             db:"status"`
	DueDate   *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt time.Time  `json:"created_at"         db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"         db:"updated_at"`
}

// RFP statuses understood by update_rfp_status. The set mirrors the pipeline
// stages the dashboard exposes.
const (
	RFPStatusOpen      = "open"
	RFPStatusReviewing = "reviewing"
	RFPStatusPursuing  = "pursuing"
	RFPStatusDeclined  = "declined"
	RFPStatusWon       = "won"
	RFPStatusLost      = "lost"
)

// ValidRFPStatus returns true if s is a recognized RFP status.
func ValidRFPStatus(s string) bool {
	switch s {
	case RFPStatusOpen, RFPStatusReviewing, RFPStatusPursuing, RFPStatusDeclined, RFPStatusWon, RFPStatusLost:
		return true
	}
	return false
}
