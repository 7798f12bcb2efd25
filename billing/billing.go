/*
Package billing defines payments and their append-only transaction ledger.

PURPOSE:
  A Payment tracks what one student owes for their course; each time money
  comes in, a PaymentTransaction is appended and the payment's paid/remaining
  totals and status are recomputed. Transactions are never edited or deleted -
  corrections get a new (possibly negative) transaction.

CRITICAL INVARIANTS:
  1. remaining = total - paid, and never negative in a consistent state
  2. sum of transaction amounts = paid
  3. status derives from the totals: pending (nothing paid),
     partial (some paid), completed (remaining <= 0)

SEE ALSO:
  - reminder/evaluator.go: Consumes payments + transactions for the
    payment-reminder cycle
  - store/sqlite: Persists payments and enforces append-only transactions
*/
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment lifecycle status, derived from the totals.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
)

var ErrInconsistentPayment = errors.New("inconsistent payment state")

// Payment is the outstanding-balance record for one student.
type Payment struct {
	ID        string
	StudentID string
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Remaining decimal.Decimal
	Status    Status

	// Reminder dismissal checkpoint. Set when staff explicitly dismiss the
	// payment reminder; resets the 3-meeting reminder cycle.
	ReminderDismissedAt *time.Time
	ReminderDismissedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one append-only ledger entry against a payment.
type Transaction struct {
	ID          string
	PaymentID   string
	Amount      decimal.Decimal
	PaymentDate time.Time
	Notes       string
	CreatedAt   time.Time
}

// StatusFor derives the payment status from its totals.
func StatusFor(total, paid decimal.Decimal) Status {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusCompleted
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// Outstanding reports whether the payment still has money owed on it.
// Completed payments and zero/negative remainders are never outstanding.
func (p *Payment) Outstanding() bool {
	return p != nil && p.Status != StatusCompleted && p.Remaining.IsPositive()
}

// Validate checks the payment's internal consistency.
func (p *Payment) Validate() error {
	if p.Total.IsNegative() {
		return fmt.Errorf("%w: total amount %s is negative", ErrInconsistentPayment, p.Total)
	}
	if !p.Remaining.Equal(p.Total.Sub(p.Paid)) {
		return fmt.Errorf("%w: remaining %s != total %s - paid %s",
			ErrInconsistentPayment, p.Remaining, p.Total, p.Paid)
	}
	if p.Remaining.IsNegative() {
		return fmt.Errorf("%w: remaining amount %s is negative", ErrInconsistentPayment, p.Remaining)
	}
	if got := StatusFor(p.Total, p.Paid); p.Status != got {
		return fmt.Errorf("%w: status %q does not match totals (want %q)",
			ErrInconsistentPayment, p.Status, got)
	}
	return nil
}

// Apply recomputes the payment totals after appending a transaction.
// Overpayment (paid beyond total) is rejected so remaining never goes
// negative; the caller should cap or reject the incoming amount.
func (p *Payment) Apply(tx Transaction) error {
	paid := p.Paid.Add(tx.Amount)
	if paid.GreaterThan(p.Total) {
		return fmt.Errorf("%w: transaction %s would overpay (paid %s, total %s)",
			ErrInconsistentPayment, tx.ID, paid, p.Total)
	}
	if paid.IsNegative() {
		return fmt.Errorf("%w: transaction %s would make paid amount negative",
			ErrInconsistentPayment, tx.ID)
	}
	p.Paid = paid
	p.Remaining = p.Total.Sub(paid)
	p.Status = StatusFor(p.Total, paid)
	return nil
}

// Reconcile checks that a payment's totals agree with its full transaction
// history. Used by tests and data-integrity sweeps.
func Reconcile(p *Payment, txs []Transaction) error {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	if !sum.Equal(p.Paid) {
		return fmt.Errorf("%w: transactions sum to %s but paid is %s",
			ErrInconsistentPayment, sum, p.Paid)
	}
	return p.Validate()
}
