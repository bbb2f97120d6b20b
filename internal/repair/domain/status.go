package domain

import "strings"

type Status string

const (
	StatusIntake           Status = "intake"
	StatusDiagnosing       Status = "diagnosing"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusPartsOrdered     Status = "parts_ordered"
	StatusInRepair         Status = "in_repair"
	StatusReadyForPickup   Status = "ready_for_pickup"
	StatusCompleted        Status = "completed"
	StatusOnHold           Status = "on_hold"
	StatusCancelled        Status = "cancelled"
)

// Statuses lists every status in lifecycle order, side states last.
var Statuses = []Status{
	StatusIntake,
	StatusDiagnosing,
	StatusAwaitingApproval,
	StatusPartsOrdered,
	StatusInRepair,
	StatusReadyForPickup,
	StatusCompleted,
	StatusOnHold,
	StatusCancelled,
}

// ParseStatus accepts any known status. Transitions are not constrained.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range Statuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether a ticket in this status counts toward active views.
func IsActive(s Status) bool {
	return !s.IsTerminal()
}

// IsUrgent classifies priority 1 and 2 tickets that are still open. Every
// urgency badge and count must use this.
func IsUrgent(t Ticket) bool {
	return (t.PriorityLevel == 1 || t.PriorityLevel == 2) && IsActive(t.Status)
}
