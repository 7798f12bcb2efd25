/*
Package commission computes the commission owed to the teacher who taught
a meeting.

PURPOSE:
  Given a meeting's attendance roster and the class's commission policy,
  Calculate produces the monetary amount plus a human-readable breakdown.
  The calculator is a pure function over in-memory data: no I/O, no clock,
  no shared state - identical inputs always yield identical output, and
  concurrent calls are trivially safe.

POLICY TYPES:
  BY_CLASS:   flat amount per meeting, regardless of how many students
              showed up (as long as at least one did)
  BY_STUDENT: amount x eligible attendee count

ELIGIBILITY:
  Only PRESENT and LATE students count. ABSENT and EXCUSED never
  contribute, under either policy type. An empty (or fully
  absent/excused) roster always pays zero.

SEE ALSO:
  - errors.go: Validation error taxonomy
  - attribution.go: Which teacher is credited with the result
  - factory: Parses policy configs stored on class rows
*/
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kelola/course-engine/attendance"
	"github.com/kelola/course-engine/currency"
)

// =============================================================================
// POLICY
// =============================================================================

// PolicyType selects how a class pays its teacher per meeting.
type PolicyType string

const (
	// ByClass pays a flat amount per meeting held.
	ByClass PolicyType = "BY_CLASS"
	// ByStudent pays a per-head rate for each eligible attendee.
	ByStudent PolicyType = "BY_STUDENT"
)

// Policy is a class's commission configuration. Fixed per class.
type Policy struct {
	Type   PolicyType
	Amount decimal.Decimal // rate in rupiah, never negative
}

// Validate rejects unknown policy types and negative rates. An upper
// bound on the rate is the caller's concern, not enforced here.
func (p Policy) Validate() error {
	if p.Type != ByClass && p.Type != ByStudent {
		return &InvalidPolicyError{Type: p.Type}
	}
	if p.Amount.IsNegative() {
		return &InvalidAmountError{Amount: p.Amount}
	}
	return nil
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a commission calculation for one meeting.
type Result struct {
	// Amount is the commission owed, in rupiah.
	Amount decimal.Decimal
	// Breakdown explains the arithmetic in plain language. Support staff
	// read this when a teacher questions a payout, so it is always set.
	Breakdown string
	// EligibleStudentCount is how many students were present or late.
	EligibleStudentCount int
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculate converts a meeting roster and a policy into a commission.
//
// Validation failures (unknown policy type, negative amount, a record with
// an unknown status) are returned immediately - never coerced into a
// numeric result.
func Calculate(policy Policy, records []attendance.Record) (Result, error) {
	if err := policy.Validate(); err != nil {
		return Result{}, err
	}

	eligible, err := attendance.CountEligible(records)
	if err != nil {
		return Result{}, &InvalidInputError{Field: "attendance_records", Message: err.Error()}
	}

	if eligible == 0 {
		return Result{
			Amount:               decimal.Zero,
			Breakdown:            "no students present or late",
			EligibleStudentCount: 0,
		}, nil
	}

	switch policy.Type {
	case ByClass:
		return Result{
			Amount: policy.Amount,
			Breakdown: fmt.Sprintf("flat rate per meeting: %s (%s attended)",
				currency.Format(policy.Amount), currency.Students(eligible)),
			EligibleStudentCount: eligible,
		}, nil
	default: // ByStudent, the only remaining valid type
		total := policy.Amount.Mul(decimal.NewFromInt(int64(eligible)))
		return Result{
			Amount: total,
			Breakdown: fmt.Sprintf("%s x %s = %s",
				currency.Students(eligible), currency.Format(policy.Amount), currency.Format(total)),
			EligibleStudentCount: eligible,
		}, nil
	}
}
