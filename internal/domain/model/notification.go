package model

import (
	"errors"
	"time"
)

// Notification represents an in-app notification for a tenant.
type Notification struct {
	ID        string       `json:"id"         db:"id"`
	TenantID  string       `json:"tenant_id"  db:"tenant_id"`
	Title     string       `json:"title"      db:"title"`
	Message   string       `json:"message"    db:"message"`
	Priority  TaskPriority `json:"priority"   db:"priority"`
	Type      string       `json:"type"       db:"type"`
	Read      bool         `json:"read"       db:"read"`
	Source    string       `json:"source"     db:"source"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// CreateNotificationRequest represents a request to create a notification.
type CreateNotificationRequest struct {
	TenantID string       `json:"tenant_id"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Priority TaskPriority `json:"priority,omitempty"`
	Type     string       `json:"type,omitempty"`
	Source   string       `json:"source,omitempty"`
}

// Normalize fills defaults on a CreateNotificationRequest.
func (r *CreateNotificationRequest) Normalize() {
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Type == "" {
		r.Type = "agent"
	}
	if r.Source == "" {
		r.Source = SourceAgent
	}
}

// Validate validates the CreateNotificationRequest fields.
func (r *CreateNotificationRequest) Validate() error {
	if r.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if r.Title == "" {
		return errors.New("title is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	if !r.Priority.Valid() {
		return errors.New("invalid priority")
	}
	return nil
}
