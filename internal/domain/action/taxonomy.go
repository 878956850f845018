// Package action defines the closed taxonomy of agent actions and their
// parameter contracts. The taxonomy is closed at any point in time but
// additive: introducing a kind means adding one Spec here and registering one
// handler with the dispatcher, never touching dispatch control flow.
package action

import (
	apperrors "github.com/opsdeck/opsdeck/internal/errors"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// Kind names for every action in the taxonomy, grouped by target entity.
const (
	KindCreateTask         = "create_task"
	KindUpdateTaskPriority = "update_task_priority"
	KindRescheduleTask     = "reschedule_task"
	KindCompleteTask       = "complete_task"

	KindCreateNotification = "create_notification"
	KindCreateFollowUp     = "create_follow_up"

	KindUpdateRFPStatus    = "update_rfp_status"
	KindFlagRFPOpportunity = "flag_rfp_opportunity"
	KindCreateProposalTask = "create_proposal_task"

	KindSaveDraft        = "save_draft"
	KindSuggestTimeBlock = "suggest_time_block"

	KindSaveResearchFinding = "save_research_finding"
	KindLogInteraction      = "log_interaction"
	KindUpdateContactHealth = "update_contact_health"
)

// Spec declares the parameter contract for one action kind.
type Spec struct {
	// Required parameters; dispatch fails with invalid_params when any is absent.
	Required []string
	// Optional parameters, listed for documentation and prompt construction.
	Optional []string
	// AnyOf, when non-empty, requires at least one of the listed parameters.
	AnyOf []string
}

// taxonomy is the closed set of known action kinds.
var taxonomy = map[string]Spec{
	KindCreateTask:         {Required: []string{"title"}, Optional: []string{"priority", "due_date", "tags"}},
	KindUpdateTaskPriority: {Required: []string{"task_id", "priority"}},
	KindRescheduleTask:     {Required: []string{"task_id", "new_due_date"}},
	KindCompleteTask:       {Required: []string{"task_id"}},

	KindCreateNotification: {Required: []string{"title", "message"}, Optional: []string{"priority", "type"}},
	KindCreateFollowUp: {
		Required: []string{"subject"},
		Optional: []string{"context", "days_from_now", "follow_up_date"},
	},

	KindUpdateRFPStatus:    {Required: []string{"rfp_id", "status"}},
	KindFlagRFPOpportunity: {Required: []string{"rfp_id", "rfp_title", "reason"}},
	KindCreateProposalTask: {Required: []string{"proposal_id", "title", "due_date"}},

	KindSaveDraft: {Required: []string{"type", "title", "content"}, Optional: []string{"metadata"}},
	KindSuggestTimeBlock: {
		Required: []string{"title", "suggested_date", "duration_minutes", "block_type"},
	},

	KindSaveResearchFinding: {Required: []string{"topic", "type", "title", "summary"}},
	KindLogInteraction:      {Required: []string{"contact_id", "type", "summary"}},
	KindUpdateContactHealth: {Required: []string{"contact_id", "health"}},
}

// Lookup returns the Spec for a kind and whether the kind is in the taxonomy.
func Lookup(kind string) (Spec, bool) {
	spec, ok := taxonomy[kind]
	return spec, ok
}

// Kinds returns every kind in the taxonomy. Order is not specified.
func Kinds() []string {
	out := make([]string, 0, len(taxonomy))
	for k := range taxonomy {
		out = append(out, k)
	}
	return out
}

// Validate checks an action against the taxonomy. An unknown kind yields an
// unknown_action error; a missing required parameter yields invalid_params.
// Invalid actions must never reach the persistent store.
func Validate(a model.Action) error {
	spec, ok := taxonomy[a.Type]
	if !ok {
		return apperrors.UnknownActionf("unknown action kind %q", a.Type)
	}
	for _, field := range spec.Required {
		if !present(a.Params, field) {
			return apperrors.InvalidParams(field, "missing required parameter "+field)
		}
	}
	if len(spec.AnyOf) > 0 {
		found := false
		for _, field := range spec.AnyOf {
			if present(a.Params, field) {
				found = true
				break
			}
		}
		if !found {
			return apperrors.InvalidParams(spec.AnyOf[0], "at least one of the alternative parameters is required")
		}
	}
	return nil
}

// present reports whether a parameter is set to a usable value. Empty strings
// and explicit nulls count as absent; LLM output frequently contains both.
func present(params map[string]any, field string) bool {
	v, ok := params[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}
