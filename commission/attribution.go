/*
attribution.go - Which teacher is credited with a meeting's commission

PURPOSE:
  A meeting is normally taught by the class's permanently assigned teacher,
  but a substitute can be assigned for a specific meeting, and staff can
  record an actual-teacher override after the fact. Commission must credit
  whoever actually taught, and the same priority must be applied everywhere
  commissions are aggregated so a meeting is never double-credited or
  mis-credited.

PRIORITY:
  substitute teacher > actual-teacher override > class primary teacher

SEE ALSO:
  - calculator.go: Computes the amount being credited
  - api: Builds per-teacher and per-class totals from MeetingCommission
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TEACHER ATTRIBUTION
// =============================================================================

// Attribution identifies the teacher credited for one meeting.
type Attribution struct {
	TeacherID string
	// Source records which rule picked the teacher: "substitute",
	// "actual_override", or "class_teacher".
	Source string
}

// CreditTeacher resolves the credited teacher for a meeting by priority:
// substitute assigned to that meeting, else the actual-teacher override
// recorded on the meeting, else the class's primary teacher.
func CreditTeacher(substituteID, actualID, classTeacherID string) Attribution {
	switch {
	case substituteID != "":
		return Attribution{TeacherID: substituteID, Source: "substitute"}
	case actualID != "":
		return Attribution{TeacherID: actualID, Source: "actual_override"}
	default:
		return Attribution{TeacherID: classTeacherID, Source: "class_teacher"}
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// MeetingCommission is one meeting's calculated commission with its
// attribution, the unit aggregations work from.
type MeetingCommission struct {
	MeetingID string
	ClassID   string
	Date      time.Time
	TeacherID string
	Source    string
	Result    Result
}

// TeacherTotal is an aggregate of a teacher's commissions over a range.
type TeacherTotal struct {
	TeacherID string
	Meetings  int
	Amount    decimal.Decimal
}

// ClassTotal is an aggregate of a class's commissions over a range.
type ClassTotal struct {
	ClassID  string
	Meetings int
	Amount   decimal.Decimal
}

// TotalsByTeacher sums meeting commissions per credited teacher.
// Attribution has already been applied per meeting, so each meeting lands
// in exactly one teacher's total.
func TotalsByTeacher(meetings []MeetingCommission) map[string]TeacherTotal {
	totals := make(map[string]TeacherTotal)
	for _, m := range meetings {
		t := totals[m.TeacherID]
		t.TeacherID = m.TeacherID
		t.Meetings++
		t.Amount = t.Amount.Add(m.Result.Amount)
		totals[m.TeacherID] = t
	}
	return totals
}

// TotalsByClass sums meeting commissions per class.
func TotalsByClass(meetings []MeetingCommission) map[string]ClassTotal {
	totals := make(map[string]ClassTotal)
	for _, m := range meetings {
		t := totals[m.ClassID]
		t.ClassID = m.ClassID
		t.Meetings++
		t.Amount = t.Amount.Add(m.Result.Amount)
		totals[m.ClassID] = t
	}
	return totals
}
