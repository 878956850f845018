package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opsdeck/opsdeck/config"
	"github.com/opsdeck/opsdeck/internal/data"
)

// ContextService assembles the tenant snapshot that gets handed to the
// generation service as prompt context. The snapshot is plain text with one
// section per concern so the model can reference items by name. A query
// failure for one section degrades to a "(unavailable)" line; one broken
// table should not blank the whole briefing.
type ContextService struct {
	tasks    TaskStore
	contacts ContactStore
	pipeline PipelineStore
	cache    ContextCache
	cfg      config.AgentConfig
	logger   *slog.Logger
}

// ContextServiceOptions holds the dependencies for creating a ContextService.
type ContextServiceOptions struct {
	Tasks    TaskStore
	Contacts ContactStore
	Pipeline PipelineStore
	Cache    ContextCache
	Config   *config.AgentConfig
	Logger   *slog.Logger
}

// NewContextService creates a new ContextService with the given dependencies.
func NewContextService(opts ContextServiceOptions) *ContextService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := config.AgentConfig{}
	if opts.Config != nil {
		cfg = *opts.Config
	}
	cfg.Sanitize()
	return &ContextService{
		tasks:    opts.Tasks,
		contacts: opts.Contacts,
		pipeline: opts.Pipeline,
		cache:    opts.Cache,
		cfg:      cfg,
		logger:   opts.Logger,
	}
}

// AggregateParams groups parameters for Aggregate.
type AggregateParams struct {
	TenantID string
	Now      time.Time

	// Scope names the consuming job type and keys the cache entry.
	Scope string

	// IncludeContacts adds the stale-contact section (weekly reviews).
	IncludeContacts bool
}

// Aggregate builds the context snapshot for one tenant. Results are cached
// per tenant and scope; cache errors are logged and ignored.
func (s *ContextService) Aggregate(ctx context.Context, p AggregateParams) (string, error) {
	if p.TenantID == "" {
		return "", fmt.Errorf("tenant id is required")
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, p.TenantID, p.Scope); err != nil {
			s.logger.WarnContext(ctx, "context cache read failed", "tenant_id", p.TenantID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Snapshot for %s\n\n", p.Now.Format("Monday, January 2, 2006"))

	s.writeOverdueTasks(ctx, &b, p)
	s.writeUpcomingTasks(ctx, &b, p)
	s.writeRFPDeadlines(ctx, &b, p)
	s.writeProposalDeadlines(ctx, &b, p)
	if p.IncludeContacts {
		s.writeStaleContacts(ctx, &b, p)
	}

	summary := b.String()

	if s.cache != nil {
		if err := s.cache.Set(ctx, p.TenantID, p.Scope, summary); err != nil {
			s.logger.WarnContext(ctx, "context cache write failed", "tenant_id", p.TenantID, "error", err)
		}
	}
	return summary, nil
}

func (s *ContextService) writeOverdueTasks(ctx context.Context, b *strings.Builder, p AggregateParams) {
	b.WriteString("## Overdue tasks\n")
	tasks, err := s.tasks.ListOverdue(ctx, p.TenantID, p.Now)
	if err != nil {
		s.sectionUnavailable(ctx, b, p, "overdue tasks", err)
		return
	}
	if len(tasks) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(b, "- [%s] %s (due %s, %s)\n", t.ID, t.Title, formatDue(t.DueDate), t.Priority)
	}
	b.WriteString("\n")
}

func (s *ContextService) writeUpcomingTasks(ctx context.Context, b *strings.Builder, p AggregateParams) {
	fmt.Fprintf(b, "## Tasks due within %d days\n", s.cfg.TaskLookaheadDays)
	tasks, err := s.tasks.ListDueWithin(ctx, data.DueWindowParams{
		TenantID: p.TenantID,
		From:     p.Now,
		Until:    p.Now.AddDate(0, 0, s.cfg.TaskLookaheadDays),
	})
	if err != nil {
		s.sectionUnavailable(ctx, b, p, "upcoming tasks", err)
		return
	}
	if len(tasks) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(b, "- [%s] %s (due %s, %s)\n", t.ID, t.Title, formatDue(t.DueDate), t.Priority)
	}
	b.WriteString("\n")
}

func (s *ContextService) writeRFPDeadlines(ctx context.Context, b *strings.Builder, p AggregateParams) {
	days := s.cfg.BriefingRFPLookaheadDays
	fmt.Fprintf(b, "## RFP deadlines within %d days\n", days)
	rfps, err := s.pipeline.ListRFPDeadlines(ctx, data.DeadlineWindowParams{
		TenantID: p.TenantID,
		From:     p.Now,
		Until:    p.Now.AddDate(0, 0, days),
	})
	if err != nil {
		s.sectionUnavailable(ctx, b, p, "rfp deadlines", err)
		return
	}
	if len(rfps) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, r := range rfps {
		fmt.Fprintf(b, "- [%s] %s (deadline %s, status %s)\n", r.ID, r.Title, formatDue(r.Deadline), r.Status)
	}
	b.WriteString("\n")
}

func (s *ContextService) writeProposalDeadlines(ctx context.Context, b *strings.Builder, p AggregateParams) {
	days := s.cfg.BriefingRFPLookaheadDays
	fmt.Fprintf(b, "## Proposals due within %d days\n", days)
	proposals, err := s.pipeline.ListProposalDeadlines(ctx, data.DeadlineWindowParams{
		TenantID: p.TenantID,
		From:     p.Now,
		Until:    p.Now.AddDate(0, 0, days),
	})
	if err != nil {
		s.sectionUnavailable(ctx, b, p, "proposal deadlines", err)
		return
	}
	if len(proposals) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, pr := range proposals {
		fmt.Fprintf(b, "- [%s] %s (due %s, status %s)\n", pr.ID, pr.Title, formatDue(pr.DueDate), pr.Status)
	}
	b.WriteString("\n")
}

func (s *ContextService) writeStaleContacts(ctx context.Context, b *strings.Builder, p AggregateParams) {
	fmt.Fprintf(b, "## Contacts without interaction for %d+ days\n", s.cfg.ContactStalenessDays)
	contacts, err := s.contacts.ListStale(ctx, p.TenantID, p.Now.AddDate(0, 0, -s.cfg.ContactStalenessDays))
	if err != nil {
		s.sectionUnavailable(ctx, b, p, "stale contacts", err)
		return
	}
	if len(contacts) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, c := range contacts {
		last := "never"
		if c.LastInteractionAt != nil {
			last = c.LastInteractionAt.Format("2006-01-02")
		}
		company := ""
		if c.Company != nil && *c.Company != "" {
			company = " @ " + *c.Company
		}
		fmt.Fprintf(b, "- [%s] %s%s (last interaction %s, health %s)\n", c.ID, c.Name, company, last, c.Health)
	}
	b.WriteString("\n")
}

func (s *ContextService) sectionUnavailable(ctx context.Context, b *strings.Builder, p AggregateParams, section string, err error) {
	s.logger.WarnContext(ctx, "context section query failed",
		"tenant_id", p.TenantID,
		"section", section,
		"error", err,
	)
	b.WriteString("(unavailable)\n\n")
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "no date"
	}
	return t.Format("2006-01-02")
}
