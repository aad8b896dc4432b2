// Package domain provides core business rules for the leads bounded context.
package domain

// Status is the lifecycle status of a lead.
type Status string

const (
	StatusNew          Status = "new"
	StatusActive       Status = "active"
	StatusAnalyzed     Status = "analyzed"
	StatusDisqualified Status = "disqualified"
	StatusConverted    Status = "converted"
	StatusUnsubscribed Status = "unsubscribed"
)

// terminalStatuses are statuses that end the cadence for good.
var terminalStatuses = map[Status]bool{
	StatusDisqualified: true,
	StatusConverted:    true,
	StatusUnsubscribed: true,
}

// TerminalStatuses returns the statuses excluded from outreach, in a stable order.
func TerminalStatuses() []Status {
	return []Status{StatusDisqualified, StatusConverted, StatusUnsubscribed}
}

// IsTerminal reports whether no further outreach may happen in status s.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusActive, StatusAnalyzed, StatusDisqualified, StatusConverted, StatusUnsubscribed:
		return true
	}
	return false
}
