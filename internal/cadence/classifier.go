// Package cadence decides which leads are due for which outreach stage.
//
// Classification is a pure projection of a lead snapshot and a clock
// reading: it performs no writes and returns the same cohorts for the same
// inputs.
package cadence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"outreach_backend/internal/leads/domain"
	"outreach_backend/platform/sanitize"
)

// cooldownDays maps the current stage to the whole days that must pass
// since the last contact before the next stage may be sent. Stage 0 has no
// cooldown and stage 4 has no successor.
var cooldownDays = map[int]int{
	1: 2,
	2: 4,
	3: 5,
}

// Cooldown returns the minimum whole days required after stage before the
// next stage, and false when stage has no successor gated by time.
func Cooldown(stage int) (int, bool) {
	days, ok := cooldownDays[stage]
	return days, ok
}

// CohortKey identifies a group of leads that share generated content.
type CohortKey struct {
	Stage    int
	Interest string
}

// BatchID derives the proposal identifier "{stage}_{sanitized-interest}".
func (k CohortKey) BatchID() string {
	slug := sanitize.Slug(k.Interest)
	if slug == "" {
		slug = sanitize.Slug(domain.DefaultInterest)
	}
	return fmt.Sprintf("%d_%s", k.Stage, slug)
}

func (k CohortKey) String() string {
	return fmt.Sprintf("stage %d / %s", k.Stage, k.Interest)
}

// Reason explains why a lead was or was not selected.
type Reason string

const (
	ReasonDue            Reason = "due"
	ReasonFirstTouch     Reason = "first_touch"
	ReasonTerminalStatus Reason = "terminal_status"
	ReasonSuppressed     Reason = "suppressed"
	ReasonCooldown       Reason = "cooldown"
	ReasonNeverContacted Reason = "missing_last_contacted"
	ReasonCadenceDone    Reason = "cadence_complete"
)

// Decision is the classification of one lead.
type Decision struct {
	Eligible  bool
	NextStage int
	Reason    Reason
	// ElapsedDays is the whole days since the last contact, -1 when unknown.
	ElapsedDays int
}

// Decide classifies a single lead at now.
func Decide(lead domain.Lead, now time.Time) Decision {
	meta := lead.Metadata
	d := Decision{NextStage: meta.SequenceStage + 1, ElapsedDays: -1}

	switch {
	case lead.Status.IsTerminal():
		d.Reason = ReasonTerminalStatus
		return d
	case meta.Suppressed():
		d.Reason = ReasonSuppressed
		return d
	case d.NextStage > domain.MaxStage:
		d.Reason = ReasonCadenceDone
		return d
	case meta.SequenceStage == 0:
		d.Eligible = true
		d.Reason = ReasonFirstTouch
		return d
	}

	if meta.LastContactedAt == nil {
		d.Reason = ReasonNeverContacted
		return d
	}

	d.ElapsedDays = ElapsedDays(*meta.LastContactedAt, now)
	required, ok := Cooldown(meta.SequenceStage)
	if !ok || d.ElapsedDays < required {
		d.Reason = ReasonCooldown
		return d
	}

	d.Eligible = true
	d.Reason = ReasonDue
	return d
}

// ElapsedDays returns whole days between since and now, rounded down.
func ElapsedDays(since, now time.Time) int {
	return int(math.Floor(now.Sub(since).Hours() / 24))
}

// Cohorts maps each cohort key to its eligible leads in input order.
type Cohorts map[CohortKey][]domain.Lead

// Classify groups every eligible lead by (next stage, interest bucket).
func Classify(leads []domain.Lead, now time.Time) Cohorts {
	cohorts := make(Cohorts)
	for _, lead := range leads {
		d := Decide(lead, now)
		if !d.Eligible {
			continue
		}
		key := CohortKey{Stage: d.NextStage, Interest: lead.InterestBucket()}
		cohorts[key] = append(cohorts[key], lead)
	}
	return cohorts
}

// Keys returns the cohort keys ordered by stage, then interest.
func (c Cohorts) Keys() []CohortKey {
	keys := make([]CohortKey, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Stage != keys[j].Stage {
			return keys[i].Stage < keys[j].Stage
		}
		return keys[i].Interest < keys[j].Interest
	})
	return keys
}
