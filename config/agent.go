package config

import "time"

// AgentConfig contains configuration for the agent engine: the external
// generation service and the knobs of the job-type logic.
type AgentConfig struct {
	// Generation service (OpenAI-compatible chat completions API).
	APIBase string `env:"AGENT_API_BASE" envDefault:"https://api.openai.com/v1"`
	APIKey  string `env:"AGENT_API_KEY"  envDefault:""`
	Model   string `env:"AGENT_MODEL"    envDefault:"gpt-4o"`

	// RequestTimeout bounds a single call to the generation service.
	RequestTimeout time.Duration `env:"AGENT_REQUEST_TIMEOUT" envDefault:"60s"`

	// TaskLookaheadDays is the window for "due soon" tasks in context summaries.
	TaskLookaheadDays int `env:"AGENT_TASK_LOOKAHEAD_DAYS" envDefault:"7"`

	// RFPLookaheadDays is the window for opportunity deadlines in job-specific
	// threshold checks. Briefings use BriefingRFPLookaheadDays instead.
	RFPLookaheadDays         int `env:"AGENT_RFP_LOOKAHEAD_DAYS"          envDefault:"3"`
	BriefingRFPLookaheadDays int `env:"AGENT_BRIEFING_RFP_LOOKAHEAD_DAYS" envDefault:"7"`

	// ContactStalenessDays is the no-interaction window after which a contact
	// counts as stale for relationship checks.
	ContactStalenessDays int `env:"AGENT_CONTACT_STALENESS_DAYS" envDefault:"30"`

	// RelationshipTopN is how many of the stalest contacts get follow-up actions.
	RelationshipTopN int `env:"AGENT_RELATIONSHIP_TOP_N" envDefault:"3"`

	// FollowUpDefaultDays is the default due-date offset for create_follow_up
	// actions that carry neither days_from_now nor follow_up_date.
	FollowUpDefaultDays int `env:"AGENT_FOLLOW_UP_DEFAULT_DAYS" envDefault:"3"`
}

// Sanitize applies guardrails to agent configuration values.
func (a *AgentConfig) Sanitize() {
	if a.TaskLookaheadDays < 1 {
		a.TaskLookaheadDays = 7
	}
	if a.RFPLookaheadDays < 1 {
		a.RFPLookaheadDays = 3
	}
	if a.BriefingRFPLookaheadDays < 1 {
		a.BriefingRFPLookaheadDays = 7
	}
	if a.ContactStalenessDays < 1 {
		a.ContactStalenessDays = 30
	}
	if a.RelationshipTopN < 1 {
		a.RelationshipTopN = 3
	}
	if a.FollowUpDefaultDays < 1 {
		a.FollowUpDefaultDays = 3
	}
	if a.RequestTimeout <= 0 {
		a.RequestTimeout = 60 * time.Second
	}
}

// SchedulerConfig contains configuration for the scheduler pass.
type SchedulerConfig struct {
	// SharedSecret, when set, is required as a bearer token on the scheduler
	// trigger endpoint. Empty disables the check (development).
	SharedSecret string `env:"SCHEDULER_SHARED_SECRET" envDefault:""`

	// BatchSize caps how many due jobs one invocation will process.
	BatchSize int `env:"SCHEDULER_BATCH_SIZE" envDefault:"50"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.BatchSize < 1 {
		s.BatchSize = 50
	}
}
