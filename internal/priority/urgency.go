package priority

import (
	"fmt"
	"time"
)

// Severity is the alert colour of an Urgency.
type Severity string

const (
	SeverityRed    Severity = "red"
	SeverityYellow Severity = "yellow"
	SeverityGreen  Severity = "green"
)

// UrgencyKind is the deadline bucket.
type UrgencyKind string

const (
	KindOverdue UrgencyKind = "overdue"
	KindUrgent  UrgencyKind = "urgent"
	KindWarning UrgencyKind = "warning"
	KindOK      UrgencyKind = "ok"
)

// Thresholds of the urgency policy, in calendar days before the deadline.
const (
	UrgentBelowDays = 5
	WarningUpToDays = 15
)

const overdueLabel = "Vencido"

// Urgency classifies how close a deadline is.
type Urgency struct {
	Severity      Severity    `json:"severity"`
	Kind          UrgencyKind `json:"kind"`
	Label         string      `json:"label"`
	DaysRemaining int         `json:"daysRemaining"`
}

// DeadlineUrgency classifies deadline relative to the calendar date of today
// (taken in today's location). The day count is a civil-date difference, so
// time of day, offsets and DST never shift it.
func DeadlineUrgency(deadline Date, today time.Time) Urgency {
	days := DateOf(today).DaysUntil(deadline)
	label := fmt.Sprintf("%d dias", days)
	switch {
	case days < 0:
		return Urgency{Severity: SeverityRed, Kind: KindOverdue, Label: overdueLabel, DaysRemaining: days}
	case days < UrgentBelowDays:
		return Urgency{Severity: SeverityRed, Kind: KindUrgent, Label: label, DaysRemaining: days}
	case days <= WarningUpToDays:
		return Urgency{Severity: SeverityYellow, Kind: KindWarning, Label: label, DaysRemaining: days}
	default:
		return Urgency{Severity: SeverityGreen, Kind: KindOK, Label: label, DaysRemaining: days}
	}
}

// Situation is the short status text used in exported reports.
func (u Urgency) Situation() string {
	switch u.Kind {
	case KindOverdue:
		return "Vencido"
	case KindUrgent:
		return "Urgente"
	case KindWarning:
		return "Atenção"
	}
	return "No Prazo"
}
