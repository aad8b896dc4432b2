package domain

import "testing"

func TestInterestBucketDefaultsToGeneral(t *testing.T) {
	if got := (Lead{}).InterestBucket(); got != DefaultInterest {
		t.Fatalf("expected %q, got %q", DefaultInterest, got)
	}
	lead := Lead{Metadata: Metadata{Interest: " Automation "}}
	if got := lead.InterestBucket(); got != "Automation" {
		t.Fatalf("expected trimmed interest, got %q", got)
	}
}

func TestExcludedFromOutreach(t *testing.T) {
	cases := []struct {
		name string
		lead Lead
		want bool
	}{
		{"active", Lead{Status: StatusActive}, false},
		{"converted", Lead{Status: StatusConverted}, true},
		{"unsubscribed", Lead{Status: StatusUnsubscribed}, true},
		{"do not contact", Lead{Status: StatusNew, Metadata: Metadata{DoNotContact: true}}, true},
		{"replied", Lead{Status: StatusAnalyzed, Metadata: Metadata{HasReplied: true}}, true},
		{"meeting", Lead{Status: StatusActive, Metadata: Metadata{MeetingBooked: true}}, true},
	}
	for _, tc := range cases {
		if got := tc.lead.ExcludedFromOutreach(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
