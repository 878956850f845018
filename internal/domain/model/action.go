package model

import "encoding/json"

// Action is a typed, parameterized intent to mutate one persisted entity or
// emit one notification/draft. Actions are ephemeral: they are proposed in
// batches, consumed exactly once by the dispatcher, and never retried.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
	Reason string         `json:"reason"`
}

// ActionResult is the per-Action outcome of dispatch. Record carries the
// persisted entity on success; Error carries the failure message otherwise.
type ActionResult struct {
	Success bool            `json:"success"`
	Kind    string          `json:"kind"`
	Record  json.RawMessage `json:"record,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AuditEntry is one row of the append-only action audit log.
type AuditEntry struct {
	ID          string  `json:"id"              db:"id"`
	TenantID    string  `json:"tenant_id"       db:"tenant_id"`
	SourceLabel string  `json:"source_label"    db:"source_label"`
	ActionKind  string  `json:"action_kind"     db:"action_kind"`
	Reason      string  `json:"reason"          db:"reason"`
	Success     bool    `json:"success"         db:"success"`
	Error       *string `json:"error,omitempty" db:"error"`
}

// CountResults tallies executed vs failed results for run summaries.
func CountResults(results []ActionResult) (executed, failed int) {
	for _, r := range results {
		if r.Success {
			executed++
		} else {
			failed++
		}
	}
	return executed, failed
}
