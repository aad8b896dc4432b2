package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cadence bounds. Stage 0 means "never contacted"; stage 4 ends the cadence.
const (
	MinStage = 0
	MaxStage = 4
)

// Intent is the stored result of an intent analysis.
type Intent struct {
	Score           int        `json:"score"`
	Intent          string     `json:"intent"`
	SuggestedAction string     `json:"suggested_action"`
	Reasoning       string     `json:"reasoning"`
	AnalyzedAt      *time.Time `json:"analyzed_at,omitempty"`
}

// Metadata is the cadence state of a lead, persisted as one JSON document.
//
// Keys this version does not know are kept in Extra and written back
// unchanged, so newer writers can add fields without older ones dropping
// them. An Extra key that only differs from a known key by case or
// separators is rejected by Validate.
type Metadata struct {
	SequenceStage        int        `json:"sequence_stage"`
	LastContactedAt      *time.Time `json:"last_contacted_at,omitempty"`
	DraftCreatedForStage *int       `json:"draft_created_for_stage,omitempty"`

	DoNotContact  bool `json:"do_not_contact,omitempty"`
	MeetingBooked bool `json:"meeting_booked,omitempty"`
	HasReplied    bool `json:"has_replied,omitempty"`

	Company  string `json:"company,omitempty"`
	Interest string `json:"interest,omitempty"`

	LastReplyMessageID string `json:"last_reply_message_id,omitempty"`
	LastReplyStatus    string `json:"last_reply_status,omitempty"`

	Intent *Intent `json:"intent,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownMetadataKeys = []string{
	"sequence_stage",
	"last_contacted_at",
	"draft_created_for_stage",
	"do_not_contact",
	"meeting_booked",
	"has_replied",
	"company",
	"interest",
	"last_reply_message_id",
	"last_reply_status",
	"intent",
}

type metadataAlias Metadata

// MarshalJSON writes known fields plus Extra. Known fields win on collision.
func (m Metadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(metadataAlias(m))
	if err != nil || len(m.Extra) == 0 {
		return known, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(fields)+len(m.Extra))
	for k, v := range m.Extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads known fields and moves unknown keys to Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var alias metadataAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownMetadataKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	} else {
		alias.Extra = nil
	}

	*m = Metadata(alias)
	return nil
}

// Validate checks stage bounds, marker bounds and extension keys.
func (m Metadata) Validate() error {
	if m.SequenceStage < MinStage || m.SequenceStage > MaxStage {
		return fmt.Errorf("metadata: sequence_stage %d out of range %d..%d", m.SequenceStage, MinStage, MaxStage)
	}
	if m.DraftCreatedForStage != nil {
		if s := *m.DraftCreatedForStage; s < MinStage+1 || s > MaxStage {
			return fmt.Errorf("metadata: draft_created_for_stage %d out of range %d..%d", s, MinStage+1, MaxStage)
		}
	}
	if m.Intent != nil && (m.Intent.Score < 0 || m.Intent.Score > 100) {
		return fmt.Errorf("metadata: intent score %d out of range 0..100", m.Intent.Score)
	}
	for key := range m.Extra {
		if known, ok := lookalikeKey(key); ok {
			return fmt.Errorf("metadata: key %q looks like a misspelling of %q", key, known)
		}
	}
	return nil
}

func lookalikeKey(key string) (string, bool) {
	norm := normalizeKey(key)
	for _, known := range knownMetadataKeys {
		if normalizeKey(known) == norm {
			return known, true
		}
	}
	return "", false
}

func normalizeKey(key string) string {
	replacer := strings.NewReplacer("_", "", "-", "", " ", "", ".", "")
	return strings.ToLower(replacer.Replace(key))
}

// Suppressed reports whether any suppression flag is set.
func (m Metadata) Suppressed() bool {
	return m.DoNotContact || m.MeetingBooked || m.HasReplied
}

// RecordSend applies a delivered cadence message for stage at time at.
// The stage never moves backwards and any marker up to stage is cleared.
func (m *Metadata) RecordSend(stage int, at time.Time) {
	if stage > m.SequenceStage {
		m.SequenceStage = stage
	}
	sentAt := at.UTC()
	m.LastContactedAt = &sentAt
	if m.DraftCreatedForStage != nil && *m.DraftCreatedForStage <= m.SequenceStage {
		m.DraftCreatedForStage = nil
	}
}

// ObservedSend is the outcome of reconciling one sent message.
type ObservedSend struct {
	// Changed is false when the message was already accounted for.
	Changed bool
	// Advanced is true when an outstanding marker was confirmed.
	Advanced bool
	Stage    int
}

// ConfirmObservedSend reconciles a message seen in the sent folder at sentAt.
// Messages not newer than LastContactedAt were already counted. With an
// outstanding marker the stage advances to it; without one only the
// contact time is refreshed.
func (m *Metadata) ConfirmObservedSend(sentAt time.Time) ObservedSend {
	sentAt = sentAt.UTC()
	if m.LastContactedAt != nil && !sentAt.After(*m.LastContactedAt) {
		return ObservedSend{Stage: m.SequenceStage}
	}

	m.LastContactedAt = &sentAt
	result := ObservedSend{Changed: true}
	if m.DraftCreatedForStage != nil {
		if marker := *m.DraftCreatedForStage; marker > m.SequenceStage {
			m.SequenceStage = marker
		}
		m.DraftCreatedForStage = nil
		result.Advanced = true
	}
	result.Stage = m.SequenceStage
	return result
}

// MarkDraft records that a send for stage is outstanding.
func (m *Metadata) MarkDraft(stage int) {
	s := stage
	m.DraftCreatedForStage = &s
}

// Reset is the only operation allowed to move the stage backwards.
func (m *Metadata) Reset(stage int) {
	m.SequenceStage = stage
	m.LastContactedAt = nil
	m.DraftCreatedForStage = nil
	m.HasReplied = false
	m.MeetingBooked = false
	m.LastReplyMessageID = ""
	m.LastReplyStatus = ""
}
