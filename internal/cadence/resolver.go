package cadence

import (
	"context"
	"time"

	"outreach_backend/internal/leads/domain"
)

// LeadLister is the read access the resolver needs from the lead store.
type LeadLister interface {
	ListByStatusNotIn(ctx context.Context, excluded []domain.Status) ([]domain.Lead, error)
}

// Resolver classifies a fresh lead snapshot on every call. Sample creation
// and blasts use it so leads that left a cohort after approval are dropped.
type Resolver struct {
	store LeadLister
	now   func() time.Time
}

// NewResolver creates a resolver. A nil clock means time.Now.
func NewResolver(store LeadLister, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, now: now}
}

// Cohorts classifies all non-terminal leads at the current time.
func (r *Resolver) Cohorts(ctx context.Context) (Cohorts, error) {
	leads, err := r.store.ListByStatusNotIn(ctx, domain.TerminalStatuses())
	if err != nil {
		return nil, err
	}
	return Classify(leads, r.now()), nil
}

// Cohort returns the current members of key.
func (r *Resolver) Cohort(ctx context.Context, key CohortKey) ([]domain.Lead, error) {
	cohorts, err := r.Cohorts(ctx)
	if err != nil {
		return nil, err
	}
	return cohorts[key], nil
}
