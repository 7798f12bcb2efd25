package billing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelola/course-engine/billing"
)

func rp(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func payment(total, paid int64) *billing.Payment {
	return &billing.Payment{
		ID:        "pay-1",
		StudentID: "stu-1",
		Total:     rp(total),
		Paid:      rp(paid),
		Remaining: rp(total - paid),
		Status:    billing.StatusFor(rp(total), rp(paid)),
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, billing.StatusPending, billing.StatusFor(rp(500000), rp(0)))
	assert.Equal(t, billing.StatusPartial, billing.StatusFor(rp(500000), rp(1)))
	assert.Equal(t, billing.StatusPartial, billing.StatusFor(rp(500000), rp(499999)))
	assert.Equal(t, billing.StatusCompleted, billing.StatusFor(rp(500000), rp(500000)))
	// Legacy rows imported with paid > total still read as completed.
	assert.Equal(t, billing.StatusCompleted, billing.StatusFor(rp(500000), rp(600000)))
}

func TestOutstanding(t *testing.T) {
	assert.True(t, payment(500000, 0).Outstanding())
	assert.True(t, payment(500000, 100000).Outstanding())
	assert.False(t, payment(500000, 500000).Outstanding())

	var nilPayment *billing.Payment
	assert.False(t, nilPayment.Outstanding())
}

func TestApply_AccumulatesAndDerivesStatus(t *testing.T) {
	// GIVEN: A fresh 500000 payment
	// WHEN: Two installments land
	// THEN: Totals and status track each one

	p := payment(500000, 0)

	require.NoError(t, p.Apply(billing.Transaction{ID: "tx-1", Amount: rp(200000)}))
	assert.True(t, p.Paid.Equal(rp(200000)))
	assert.True(t, p.Remaining.Equal(rp(300000)))
	assert.Equal(t, billing.StatusPartial, p.Status)

	require.NoError(t, p.Apply(billing.Transaction{ID: "tx-2", Amount: rp(300000)}))
	assert.True(t, p.Remaining.IsZero())
	assert.Equal(t, billing.StatusCompleted, p.Status)
}

func TestApply_RejectsOverpayment(t *testing.T) {
	p := payment(500000, 400000)

	err := p.Apply(billing.Transaction{ID: "tx-over", Amount: rp(200000)})

	require.ErrorIs(t, err, billing.ErrInconsistentPayment)
	// The payment is untouched after a rejected transaction.
	assert.True(t, p.Paid.Equal(rp(400000)))
	assert.Equal(t, billing.StatusPartial, p.Status)
}

func TestApply_NegativeCorrectionAllowedWithinBounds(t *testing.T) {
	// Corrections are new negative transactions, never edits.
	p := payment(500000, 200000)

	require.NoError(t, p.Apply(billing.Transaction{ID: "tx-fix", Amount: rp(-50000)}))
	assert.True(t, p.Paid.Equal(rp(150000)))

	err := p.Apply(billing.Transaction{ID: "tx-bad", Amount: rp(-200000)})
	require.ErrorIs(t, err, billing.ErrInconsistentPayment)
}

func TestValidate(t *testing.T) {
	t.Run("consistent payment passes", func(t *testing.T) {
		assert.NoError(t, payment(500000, 200000).Validate())
	})

	t.Run("remaining mismatch fails", func(t *testing.T) {
		p := payment(500000, 200000)
		p.Remaining = rp(100000)
		assert.ErrorIs(t, p.Validate(), billing.ErrInconsistentPayment)
	})

	t.Run("status mismatch fails", func(t *testing.T) {
		p := payment(500000, 200000)
		p.Status = billing.StatusCompleted
		assert.ErrorIs(t, p.Validate(), billing.ErrInconsistentPayment)
	})

	t.Run("negative total fails", func(t *testing.T) {
		p := payment(500000, 0)
		p.Total = rp(-1)
		p.Remaining = rp(-1)
		assert.ErrorIs(t, p.Validate(), billing.ErrInconsistentPayment)
	})
}

func TestReconcile(t *testing.T) {
	p := payment(500000, 300000)
	txs := []billing.Transaction{
		{ID: "tx-1", Amount: rp(200000)},
		{ID: "tx-2", Amount: rp(100000)},
	}

	require.NoError(t, billing.Reconcile(p, txs))

	// Drop a transaction: the sum no longer matches paid.
	err := billing.Reconcile(p, txs[:1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrInconsistentPayment))
}
