package incident

import (
	"strings"
	"time"
)

// Snapshot is the part of an incident the status and permission rules read.
type Snapshot struct {
	CreationDate time.Time

	SecondInputDate    *time.Time
	ProcessDescription string
	Cause              string

	ThirdInputDate               *time.Time
	RecurrencePreventionMeasures string
}

// SecondInfoStarted means a 2nd-info input date has been recorded.
func (s Snapshot) SecondInfoStarted() bool {
	return s.SecondInputDate != nil
}

// ThirdInfoStarted means a 3rd-info input date has been recorded.
func (s Snapshot) ThirdInfoStarted() bool {
	return s.ThirdInputDate != nil
}

func (s Snapshot) SecondInfoComplete() bool {
	return s.SecondInputDate != nil && !isBlank(s.ProcessDescription) && !isBlank(s.Cause)
}

// ThirdInfoComplete is nested inside SecondInfoComplete.
func (s Snapshot) ThirdInfoComplete() bool {
	return s.SecondInfoComplete() && s.ThirdInputDate != nil && !isBlank(s.RecurrencePreventionMeasures)
}

func (s Snapshot) RecurrenceMeasuresEmpty() bool {
	return isBlank(s.RecurrencePreventionMeasures)
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
