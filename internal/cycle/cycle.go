// Package cycle runs one full pass of the cadence: CRM import, reply and
// sent-mail reconciliation, then a proposal for every eligible cohort.
package cycle

import (
	"context"
	"time"

	"outreach_backend/internal/crmsync"
	"outreach_backend/internal/events"
	"outreach_backend/internal/reconcile"
	"outreach_backend/platform/logger"
)

// Step names, in execution order.
const (
	StepImport  = "crm_import"
	StepReplies = "reply_reconciliation"
	StepSent    = "sent_reconciliation"
	StepPropose = "propose"
)

type Importer interface {
	Import(ctx context.Context) (crmsync.Summary, error)
}

type Reconciler interface {
	Replies(ctx context.Context) (reconcile.Summary, error)
	SentMail(ctx context.Context) (reconcile.Summary, error)
}

type Proposer interface {
	ProposeDue(ctx context.Context) (int, error)
}

// Deps wires the runner. A nil Importer skips the import step.
type Deps struct {
	Importer   Importer
	Reconciler Reconciler
	Proposer   Proposer
	Bus        events.Bus
	Log        *logger.Logger
	Now        func() time.Time
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string        `json:"name"`
	Summary  any           `json:"summary,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of a whole cycle.
type Report struct {
	StartedAt time.Time    `json:"startedAt"`
	Steps     []StepResult `json:"steps"`
}

// Failed counts the steps that returned an error.
func (r Report) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Error != "" {
			n++
		}
	}
	return n
}

type step struct {
	name string
	run  func(ctx context.Context) (any, error)
}

type Runner struct {
	steps []step
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

func New(d Deps) *Runner {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	r := &Runner{bus: d.Bus, log: d.Log, now: d.Now}

	if d.Importer != nil {
		r.steps = append(r.steps, step{StepImport, func(ctx context.Context) (any, error) {
			return d.Importer.Import(ctx)
		}})
	}
	r.steps = append(r.steps,
		step{StepReplies, func(ctx context.Context) (any, error) { return d.Reconciler.Replies(ctx) }},
		step{StepSent, func(ctx context.Context) (any, error) { return d.Reconciler.SentMail(ctx) }},
		step{StepPropose, func(ctx context.Context) (any, error) {
			n, err := d.Proposer.ProposeDue(ctx)
			return map[string]int{"proposed": n}, err
		}},
	)
	return r
}

// Run executes every step in order. A failing step is reported and the
// next one still runs; only cancellation stops the cycle early.
func (r *Runner) Run(ctx context.Context) Report {
	report := Report{StartedAt: r.now().UTC()}
	r.log.Info("cycle started", "steps", len(r.steps))

	for _, s := range r.steps {
		if ctx.Err() != nil {
			r.log.Warn("cycle interrupted", "next_step", s.name, "error", ctx.Err())
			break
		}
		start := r.now()
		summary, err := s.run(ctx)
		res := StepResult{Name: s.name, Summary: summary, Duration: r.now().Sub(start)}
		if err != nil {
			res.Error = err.Error()
			r.log.Error("cycle step failed", "step", s.name, "error", err)
			if r.bus != nil {
				r.bus.Publish(ctx, events.CycleFailed{
					BaseEvent: events.NewBaseEvent(),
					Step:      s.name,
					Error:     err.Error(),
				})
			}
		} else {
			r.log.Info("cycle step finished", "step", s.name, "summary", summary)
		}
		report.Steps = append(report.Steps, res)
	}

	r.log.Info("cycle finished", "failed_steps", report.Failed())
	return report
}
