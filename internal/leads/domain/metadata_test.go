package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMetadataKeepsUnknownKeys(t *testing.T) {
	raw := []byte(`{"sequence_stage":2,"interest":"Automation","linkedin_url":"https://example.com/in/x"}`)

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.SequenceStage != 2 || m.Interest != "Automation" {
		t.Fatalf("known fields not decoded: %+v", m)
	}
	if _, ok := m.Extra["linkedin_url"]; !ok {
		t.Fatalf("expected unknown key in Extra, got %v", m.Extra)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"linkedin_url":"https://example.com/in/x"`) {
		t.Fatalf("expected unknown key to survive round trip, got %s", out)
	}
}

func TestMetadataValidateRejectsLookalikeKeys(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"sequence_stage":1,"doNotContact":true}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	err := m.Validate()
	if err == nil || !strings.Contains(err.Error(), "do_not_contact") {
		t.Fatalf("expected misspelling error naming do_not_contact, got %v", err)
	}
}

func TestMetadataValidateBounds(t *testing.T) {
	if err := (Metadata{SequenceStage: 5}).Validate(); err == nil {
		t.Fatalf("expected stage 5 to be rejected")
	}
	zero := 0
	if err := (Metadata{DraftCreatedForStage: &zero}).Validate(); err == nil {
		t.Fatalf("expected marker 0 to be rejected")
	}
	if err := (Metadata{SequenceStage: 4}).Validate(); err != nil {
		t.Fatalf("expected stage 4 to be valid, got %v", err)
	}
}

func TestRecordSendIsMonotonicAndClearsMarker(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := Metadata{SequenceStage: 3}
	m.MarkDraft(2)

	m.RecordSend(2, now)

	if m.SequenceStage != 3 {
		t.Fatalf("expected stage to stay at 3, got %d", m.SequenceStage)
	}
	if m.DraftCreatedForStage != nil {
		t.Fatalf("expected marker at or below stage to be cleared")
	}
	if m.LastContactedAt == nil || !m.LastContactedAt.Equal(now) {
		t.Fatalf("expected last contacted to be stamped")
	}
}

func TestBlastThenObservedSendDoesNotDoubleAdvance(t *testing.T) {
	sentAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stampedAt := sentAt.Add(500 * time.Millisecond)

	m := Metadata{SequenceStage: 1}
	m.MarkDraft(2)
	m.RecordSend(2, stampedAt)

	result := m.ConfirmObservedSend(sentAt)
	if result.Changed || result.Advanced {
		t.Fatalf("expected blasted message to be already accounted for, got %+v", result)
	}
	if m.SequenceStage != 2 {
		t.Fatalf("expected stage 2, got %d", m.SequenceStage)
	}

	// A later manual send without a marker refreshes time only.
	later := sentAt.Add(48 * time.Hour)
	result = m.ConfirmObservedSend(later)
	if !result.Changed || result.Advanced || m.SequenceStage != 2 {
		t.Fatalf("expected manual send to refresh time only, got %+v stage %d", result, m.SequenceStage)
	}
	if !m.LastContactedAt.Equal(later) {
		t.Fatalf("expected last contacted refreshed to %s, got %s", later, m.LastContactedAt)
	}
}

func TestConfirmObservedSendAdvancesToMarker(t *testing.T) {
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := Metadata{SequenceStage: 1, LastContactedAt: &last}
	m.MarkDraft(2)

	result := m.ConfirmObservedSend(last.Add(3 * 24 * time.Hour))
	if !result.Advanced || result.Stage != 2 {
		t.Fatalf("expected advance to marked stage 2, got %+v", result)
	}
	if m.DraftCreatedForStage != nil {
		t.Fatalf("expected marker cleared")
	}

	again := m.ConfirmObservedSend(last.Add(3 * 24 * time.Hour))
	if again.Changed {
		t.Fatalf("expected second reconciliation of same message to be a no-op")
	}
}

func TestResetClearsCadenceState(t *testing.T) {
	now := time.Now()
	m := Metadata{SequenceStage: 3, LastContactedAt: &now, HasReplied: true, MeetingBooked: true, DoNotContact: true}
	m.MarkDraft(4)

	m.Reset(1)

	if m.SequenceStage != 1 || m.LastContactedAt != nil || m.DraftCreatedForStage != nil {
		t.Fatalf("expected reset cadence fields, got %+v", m)
	}
	if m.HasReplied || m.MeetingBooked {
		t.Fatalf("expected reply flags cleared")
	}
	if !m.DoNotContact {
		t.Fatalf("expected do_not_contact to survive reset")
	}
}
