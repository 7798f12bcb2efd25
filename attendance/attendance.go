/*
Package attendance defines the closed attendance status enum and the
one-time translation from the external representation.

PURPOSE:
  The upstream admin application records attendance with Indonesian status
  strings (HADIR, TIDAK_HADIR, TERLAMBAT, IZIN). Everything below the API
  boundary works with the closed Status type defined here - core logic
  never pattern-matches on raw strings.

KEY CONCEPTS:
  - Status: closed enum (Present, Absent, Late, Excused)
  - Record: one attendance entry per (meeting, student)
  - Commission eligibility: only Present and Late count

SEE ALSO:
  - commission/calculator.go: Consumes Records for commission math
  - reminder/evaluator.go: Counts meetings by date, status-independent
*/
package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Status is the canonical attendance status. External strings are
// translated exactly once, at the API boundary, via Parse.
type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
	Late    Status = "late"
	Excused Status = "excused"
)

// externalNames maps the upstream system's status vocabulary onto the
// canonical enum. Canonical names are accepted too so stored rows
// round-trip through Parse.
var externalNames = map[string]Status{
	"HADIR":       Present,
	"TIDAK_HADIR": Absent,
	"TERLAMBAT":   Late,
	"IZIN":        Excused,
	"present":     Present,
	"absent":      Absent,
	"late":        Late,
	"excused":     Excused,
}

// Parse translates an external status string into a Status.
// Unknown values are an error, never silently defaulted.
func Parse(s string) (Status, error) {
	if status, ok := externalNames[strings.TrimSpace(s)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown attendance status %q", s)
}

// Valid reports whether s is one of the four canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case Present, Absent, Late, Excused:
		return true
	}
	return false
}

// CountsForCommission reports whether this status makes the student an
// eligible attendee for commission purposes. Only students who actually
// showed up (on time or late) count; absences and excused leave never do.
func (s Status) CountsForCommission() bool {
	return s == Present || s == Late
}

// Record is one attendance entry for one student at one meeting.
// Records are immutable once created except for status correction by staff.
type Record struct {
	ID        string
	MeetingID string
	StudentID string
	Status    Status
	Notes     string
	CreatedAt time.Time
}

// CountEligible returns the number of records whose status counts for
// commission. Records with an invalid status are reported as an error so
// malformed data is surfaced instead of silently skipped.
func CountEligible(records []Record) (int, error) {
	n := 0
	for _, r := range records {
		if !r.Status.Valid() {
			return 0, fmt.Errorf("record %s: unknown attendance status %q", r.ID, r.Status)
		}
		if r.Status.CountsForCommission() {
			n++
		}
	}
	return n, nil
}
