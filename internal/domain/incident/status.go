package incident

import (
	"fmt"
	"strings"
	"time"
)

// Status is the derived workflow status. It is never stored.
type Status string

const (
	StatusSecondInfoInvestigation Status = "SecondInfoInvestigation"
	StatusSecondInfoDelayed       Status = "SecondInfoDelayed"
	StatusThirdInfoInvestigation  Status = "ThirdInfoInvestigation"
	StatusThirdInfoDelayed        Status = "ThirdInfoDelayed"
	StatusCompleted               Status = "Completed"
)

// AllStatuses is the display order used by listings and the dashboard.
var AllStatuses = []Status{
	StatusSecondInfoInvestigation,
	StatusSecondInfoDelayed,
	StatusThirdInfoInvestigation,
	StatusThirdInfoDelayed,
	StatusCompleted,
}

func (s Status) Valid() bool {
	switch s {
	case StatusSecondInfoInvestigation, StatusSecondInfoDelayed,
		StatusThirdInfoInvestigation, StatusThirdInfoDelayed, StatusCompleted:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// InSecondInfo covers both 2nd-info statuses.
func (s Status) InSecondInfo() bool {
	return s == StatusSecondInfoInvestigation || s == StatusSecondInfoDelayed
}

// InThirdInfo covers both 3rd-info statuses.
func (s Status) InThirdInfo() bool {
	return s == StatusThirdInfoInvestigation || s == StatusThirdInfoDelayed
}

func (s Status) Delayed() bool {
	return s == StatusSecondInfoDelayed || s == StatusThirdInfoDelayed
}

func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	for _, status := range AllStatuses {
		if strings.EqualFold(trimmed, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// DefaultDeadlineDays applies to both deadlines whenever the parameter source
// cannot answer.
const DefaultDeadlineDays = 7

const (
	ParamSecondInfoDeadlineDays = "secondInfoDeadlineDays"
	ParamThirdInfoDeadlineDays  = "thirdInfoDeadlineDays"
)

// Deadlines holds the day counts after which an open phase is delayed.
type Deadlines struct {
	SecondInfoDays int
	ThirdInfoDays  int
}

func DefaultDeadlines() Deadlines {
	return Deadlines{SecondInfoDays: DefaultDeadlineDays, ThirdInfoDays: DefaultDeadlineDays}
}

// Normalize replaces non-positive day counts with the default.
func (d Deadlines) Normalize() Deadlines {
	if d.SecondInfoDays <= 0 {
		d.SecondInfoDays = DefaultDeadlineDays
	}
	if d.ThirdInfoDays <= 0 {
		d.ThirdInfoDays = DefaultDeadlineDays
	}
	return d
}

// CalculateStatus derives the status; the first matching rule wins and the
// deadline comparison is strict.
func CalculateStatus(s Snapshot, now time.Time, d Deadlines) Status {
	d = d.Normalize()

	if s.ThirdInfoComplete() {
		return StatusCompleted
	}

	if s.SecondInfoComplete() {
		if now.After(s.SecondInputDate.AddDate(0, 0, d.ThirdInfoDays)) {
			return StatusThirdInfoDelayed
		}
		return StatusThirdInfoInvestigation
	}

	if now.After(s.CreationDate.AddDate(0, 0, d.SecondInfoDays)) {
		return StatusSecondInfoDelayed
	}
	return StatusSecondInfoInvestigation
}

// CalculateStatuses evaluates every snapshot on its own.
func CalculateStatuses(snapshots map[int64]Snapshot, now time.Time, d Deadlines) map[int64]Status {
	out := make(map[int64]Status, len(snapshots))
	for id, snapshot := range snapshots {
		out[id] = CalculateStatus(snapshot, now, d)
	}
	return out
}

// NextDeadline returns the instant after which the current investigation status
// turns into its delayed counterpart. ok is false for Completed and delayed states.
func NextDeadline(s Snapshot, now time.Time, d Deadlines) (time.Time, bool) {
	d = d.Normalize()

	switch CalculateStatus(s, now, d) {
	case StatusSecondInfoInvestigation:
		return s.CreationDate.AddDate(0, 0, d.SecondInfoDays), true
	case StatusThirdInfoInvestigation:
		return s.SecondInputDate.AddDate(0, 0, d.ThirdInfoDays), true
	default:
		return time.Time{}, false
	}
}
