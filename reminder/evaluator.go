/*
Package reminder decides when a student with an outstanding balance should
be nudged about payment.

PURPOSE:
  Evaluate is a pure function over a snapshot of one student's payment and
  attendance history. It answers "should a payment reminder be surfaced
  right now, and why" - the why is load-bearing: support staff use the
  Reason string to explain to parents exactly which rule fired.

THE CYCLE:
  The reminder is anchored to resettable checkpoints. Before anything has
  ever reset the clock, a student who owes money sees the reminder
  continuously from their first meeting onward. Once a reset exists
  (a payment transaction or an explicit dismissal), the reminder re-arms
  after every 3 meetings held since the most recent reset.

RESET CHECKPOINTS:
  Payment reset:   the latest transaction dated strictly after the
                   student's first meeting, OR within the last 7 days of
                   "now" (grace window so a fresh payment always counts
                   even before meetings catch up).
  Dismissal reset: the payment's ReminderDismissedAt, if set.
  The later of the two wins; on an exact tie the payment reset wins
  (dismissal is used only when strictly more recent).

TIME:
  "now" is an explicit parameter, never read from the system clock, so
  the evaluator is deterministic under test. Because of the 7-day grace
  window the decision for identical stored data CAN change as wall-clock
  time advances - re-running later may flip a recent-payment reset into
  "too old". This is intentional; callers re-evaluate on demand.

SEE ALSO:
  - billing: Payment/Transaction shapes and consistency rules
  - api/scheduler.go: Sweeps all outstanding payments through Evaluate
*/
package reminder

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kelola/course-engine/billing"
)

// =============================================================================
// DECISION
// =============================================================================

// ResetType names which checkpoint source anchored the current cycle.
type ResetType string

const (
	ResetPayment   ResetType = "payment"
	ResetDismissal ResetType = "dismissal"
)

// MeetingsPerCycle is how many meetings elapse between reminders once a
// reset checkpoint exists.
const MeetingsPerCycle = 3

// graceWindow is how recently a payment transaction may have landed and
// still count as a reset, regardless of meeting dates.
const graceWindow = 7 * 24 * time.Hour

// Decision is the computed (never persisted) outcome for one student.
type Decision struct {
	StudentID          string
	ShouldShowReminder bool
	// Reason always explains the exact branch taken, in plain language.
	Reason             string
	TotalMeetings      int
	MeetingsSinceReset int
	LastResetDate      *time.Time
	ResetType          ResetType
	RemainingAmount    decimal.Decimal
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluate decides whether the payment reminder should be surfaced for one
// student at the instant `now`.
//
// payment may be nil (student has no payment record); transactions are the
// payment's full ledger; meetingDates are the dates of every attendance
// record for the student, any status - this measures attendance activity,
// not presence. The dates need not arrive sorted.
func Evaluate(payment *billing.Payment, transactions []billing.Transaction, meetingDates []time.Time, now time.Time) Decision {
	d := Decision{}

	// Early exits: nothing to remind about.
	if payment == nil {
		d.Reason = "no payment record for student"
		return d
	}
	d.StudentID = payment.StudentID
	d.RemainingAmount = payment.Remaining
	if payment.Status == billing.StatusCompleted {
		d.Reason = "payment already completed"
		return d
	}
	if !payment.Remaining.IsPositive() {
		d.Reason = "no outstanding balance"
		return d
	}

	dates := sortedCopy(meetingDates)
	d.TotalMeetings = len(dates)

	if d.TotalMeetings == 0 {
		d.Reason = "no meetings yet; first reminder at meeting 1"
		return d
	}

	reset := latestReset(payment, transactions, dates, now)

	if reset == nil {
		// Nothing has ever reset the clock: the student owes money and the
		// reminder stays active from the very first meeting onward.
		d.ShouldShowReminder = true
		d.MeetingsSinceReset = d.TotalMeetings
		d.Reason = "payment reminder active since first meeting (no payment or dismissal since); outstanding " +
			formatRemaining(payment)
		return d
	}

	d.LastResetDate = &reset.at
	d.ResetType = reset.kind
	d.MeetingsSinceReset = countAfter(dates, reset.at)

	switch {
	case d.MeetingsSinceReset == 0:
		d.Reason = "reminder cycle reset by " + string(reset.kind) + " on " +
			reset.at.Format("2006-01-02") + "; no meetings held since"
	case d.MeetingsSinceReset >= MeetingsPerCycle:
		d.ShouldShowReminder = true
		d.Reason = "3 or more meetings since last " + string(reset.kind) +
			" reset; outstanding " + formatRemaining(payment)
	default:
		d.Reason = remainingMeetingsReason(d.MeetingsSinceReset)
	}
	return d
}

// =============================================================================
// RESET CHECKPOINT RESOLUTION
// =============================================================================

type reset struct {
	at   time.Time
	kind ResetType
}

// latestReset resolves the most recent reset checkpoint, or nil when the
// student is still in their first-activation phase.
func latestReset(payment *billing.Payment, transactions []billing.Transaction, sortedDates []time.Time, now time.Time) *reset {
	var best *reset

	if at, ok := latestPaymentReset(transactions, sortedDates, now); ok {
		best = &reset{at: at, kind: ResetPayment}
	}

	// Dismissal wins only when strictly more recent than the payment reset.
	if dis := payment.ReminderDismissedAt; dis != nil {
		if best == nil || dis.After(best.at) {
			best = &reset{at: *dis, kind: ResetDismissal}
		}
	}
	return best
}

// latestPaymentReset finds the newest transaction that counts as a reset:
// dated strictly after the student's first recorded meeting, or landed
// within the grace window before now. Transactions that predate the first
// meeting AND are older than the window are too old to count. With no
// recorded meetings, only the window rule applies.
func latestPaymentReset(transactions []billing.Transaction, sortedDates []time.Time, now time.Time) (time.Time, bool) {
	var firstMeeting time.Time
	hasMeetings := len(sortedDates) > 0
	if hasMeetings {
		firstMeeting = sortedDates[0]
	}
	windowStart := now.Add(-graceWindow)

	var best time.Time
	found := false
	for _, tx := range transactions {
		counts := tx.PaymentDate.After(windowStart)
		if hasMeetings && tx.PaymentDate.After(firstMeeting) {
			counts = true
		}
		if counts && (!found || tx.PaymentDate.After(best)) {
			best = tx.PaymentDate
			found = true
		}
	}
	return best, found
}

// =============================================================================
// HELPERS
// =============================================================================

func sortedCopy(dates []time.Time) []time.Time {
	out := make([]time.Time, len(dates))
	copy(out, dates)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// countAfter counts meetings strictly after the checkpoint.
func countAfter(sortedDates []time.Time, after time.Time) int {
	n := 0
	for _, d := range sortedDates {
		if d.After(after) {
			n++
		}
	}
	return n
}
