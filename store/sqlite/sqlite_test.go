package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelola/course-engine/attendance"
	"github.com/kelola/course-engine/billing"
	"github.com/kelola/course-engine/factory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rp(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// seedClass creates a teacher and a class with the given policy config,
// returning both IDs.
func seedClass(t *testing.T, s *Store, policyJSON string) (teacherID, classID string) {
	t.Helper()
	ctx := context.Background()

	teacher, err := s.SaveTeacher(ctx, Teacher{Name: "Bu Sari"})
	require.NoError(t, err)
	class, err := s.SaveClass(ctx, Class{Name: "Piano Dasar", TeacherID: teacher.ID, PolicyJSON: policyJSON})
	require.NoError(t, err)
	return teacher.ID, class.ID
}

// =============================================================================
// STUDENTS / TEACHERS / CLASSES
// =============================================================================

func TestStudentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveStudent(ctx, Student{Name: "Andi", Email: "andi@example.com", Phone: "0812"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := s.GetStudent(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Andi", got.Name)
	assert.Equal(t, "andi@example.com", got.Email)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetStudent_MissingIsNilNotError(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetStudent(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveStudent_UpsertKeepsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveStudent(ctx, Student{Name: "Andi"})
	require.NoError(t, err)

	saved.Name = "Andi Wijaya"
	_, err = s.SaveStudent(ctx, saved)
	require.NoError(t, err)

	students, err := s.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Andi Wijaya", students[0].Name)
}

func TestClassRoundTrip_PolicyJSONSurvives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, classID := seedClass(t, s, factory.PerStudentJSON(15000))

	got, err := s.GetClass(ctx, classID)
	require.NoError(t, err)
	require.NotNil(t, got)

	// The stored config must still parse into a valid policy.
	policy, err := factory.NewPolicyFactory().ParsePolicy(got.PolicyJSON)
	require.NoError(t, err)
	assert.True(t, policy.Amount.Equal(rp(15000)))
}

func TestEnrollStudent_DuplicateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, classID := seedClass(t, s, factory.FlatRateJSON(100000))
	student, err := s.SaveStudent(ctx, Student{Name: "Budi"})
	require.NoError(t, err)

	require.NoError(t, s.EnrollStudent(ctx, classID, student.ID))
	require.NoError(t, s.EnrollStudent(ctx, classID, student.ID))

	enrolled, err := s.ListEnrolledStudents(ctx, classID)
	require.NoError(t, err)
	assert.Len(t, enrolled, 1)
}

// =============================================================================
// MEETINGS
// =============================================================================

func TestMeeting_JoinsClassTeacherAndPolicy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	teacherID, classID := seedClass(t, s, factory.FlatRateJSON(100000))
	m, err := s.SaveMeeting(ctx, Meeting{
		ClassID:             classID,
		Date:                time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		SubstituteTeacherID: "sub-1",
	})
	require.NoError(t, err)

	got, err := s.GetMeeting(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, teacherID, got.ClassTeacherID)
	assert.Equal(t, "sub-1", got.SubstituteTeacherID)
	assert.NotEmpty(t, got.PolicyJSON)
	assert.True(t, got.Date.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestListMeetingsInRange_InclusiveBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, classID := seedClass(t, s, factory.FlatRateJSON(100000))
	for _, d := range []int{1, 8, 15, 22} {
		_, err := s.SaveMeeting(ctx, Meeting{
			ClassID: classID,
			Date:    time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	got, err := s.ListMeetingsInRange(ctx,
		time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Before(got[1].Date), "sorted by date")
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestSaveAttendance_UpsertIsTheCorrectionPath(t *testing.T) {
	// GIVEN: A recorded roster
	// WHEN: Staff re-record one student with a corrected status
	// THEN: The row is replaced, not duplicated

	s := newTestStore(t)
	ctx := context.Background()

	_, classID := seedClass(t, s, factory.FlatRateJSON(100000))
	student, err := s.SaveStudent(ctx, Student{Name: "Citra"})
	require.NoError(t, err)
	m, err := s.SaveMeeting(ctx, Meeting{ClassID: classID, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	require.NoError(t, s.SaveAttendance(ctx, m.ID, []attendance.Record{
		{StudentID: student.ID, Status: attendance.Absent},
	}))
	require.NoError(t, s.SaveAttendance(ctx, m.ID, []attendance.Record{
		{StudentID: student.ID, Status: attendance.Late, Notes: "came at 16:20"},
	}))

	records, err := s.GetAttendanceByMeeting(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.Late, records[0].Status)
	assert.Equal(t, "came at 16:20", records[0].Notes)
}

func TestGetAttendanceDatesByStudent_SortedAnyStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, classID := seedClass(t, s, factory.FlatRateJSON(100000))
	student, err := s.SaveStudent(ctx, Student{Name: "Dewi"})
	require.NoError(t, err)

	// Insert out of date order, with a mix of statuses: all count.
	statuses := []attendance.Status{attendance.Absent, attendance.Present, attendance.Excused}
	for i, d := range []int{15, 1, 8} {
		m, err := s.SaveMeeting(ctx, Meeting{ClassID: classID, Date: time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		require.NoError(t, s.SaveAttendance(ctx, m.ID, []attendance.Record{
			{StudentID: student.ID, Status: statuses[i]},
		}))
	}

	dates, err := s.GetAttendanceDatesByStudent(ctx, student.ID)

	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.Equal(t, 1, dates[0].Day())
	assert.Equal(t, 8, dates[1].Day())
	assert.Equal(t, 15, dates[2].Day())
}

// =============================================================================
// PAYMENTS
// =============================================================================

func seedPayment(t *testing.T, s *Store, studentName string, total int64) billing.Payment {
	t.Helper()
	ctx := context.Background()

	student, err := s.SaveStudent(ctx, Student{Name: studentName})
	require.NoError(t, err)
	p, err := s.SavePayment(ctx, billing.Payment{
		StudentID: student.ID,
		Total:     rp(total),
		Paid:      rp(0),
		Remaining: rp(total),
		Status:    billing.StatusPending,
	})
	require.NoError(t, err)
	return p
}

func TestPaymentRoundTrip_DecimalsSurviveAsText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedPayment(t, s, "Eka", 1500000)

	got, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Total.Equal(rp(1500000)))
	assert.True(t, got.Remaining.Equal(rp(1500000)))
	assert.Equal(t, billing.StatusPending, got.Status)
	assert.Nil(t, got.ReminderDismissedAt)
}

func TestAddPaymentTransaction_LedgerAndTotalsLandTogether(t *testing.T) {
	// GIVEN: A pending payment
	// WHEN: An installment is recorded through Apply + AddPaymentTransaction
	// THEN: The stored payment and its ledger reconcile

	s := newTestStore(t)
	ctx := context.Background()

	p := seedPayment(t, s, "Fajar", 500000)
	ptx := billing.Transaction{
		Amount:      rp(200000),
		PaymentDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Notes:       "first installment",
	}

	saved, updated, err := s.AddPaymentTransaction(ctx, p.ID, ptx)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.True(t, updated.Paid.Equal(rp(200000)))

	stored, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Paid.Equal(rp(200000)))
	assert.True(t, stored.Remaining.Equal(rp(300000)))
	assert.Equal(t, billing.StatusPartial, stored.Status)

	txs, err := s.ListPaymentTransactions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NoError(t, billing.Reconcile(stored, txs))
}

func TestAddPaymentTransaction_StaleWritersCannotOverpay(t *testing.T) {
	// GIVEN: A 500000 payment and two writers who each decided on a 300000
	//        installment while the payment still showed nothing paid
	// WHEN: Both submit without refreshing in between
	// THEN: The second is rejected by the in-transaction overpay check and
	//       the stored totals still reconcile with the ledger

	s := newTestStore(t)
	ctx := context.Background()

	p := seedPayment(t, s, "Fajar", 500000)
	installment := billing.Transaction{
		Amount:      rp(300000),
		PaymentDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	_, _, err := s.AddPaymentTransaction(ctx, p.ID, installment)
	require.NoError(t, err)

	_, _, err = s.AddPaymentTransaction(ctx, p.ID, installment)
	require.ErrorIs(t, err, billing.ErrInconsistentPayment)

	stored, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	txs, err := s.ListPaymentTransactions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1, "the rejected transaction must not reach the ledger")
	require.NoError(t, billing.Reconcile(stored, txs))
	assert.True(t, stored.Remaining.Equal(rp(200000)))
}

func TestAddPaymentTransaction_UnknownPayment(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.AddPaymentTransaction(context.Background(), "nope", billing.Transaction{
		Amount:      rp(100000),
		PaymentDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetPaymentByStudent_NewestWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	student, err := s.SaveStudent(ctx, Student{Name: "Gita"})
	require.NoError(t, err)

	old := billing.Payment{
		StudentID: student.ID,
		Total:     rp(100000), Paid: rp(100000), Remaining: rp(0),
		Status:    billing.StatusCompleted,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err = s.SavePayment(ctx, old)
	require.NoError(t, err)

	current := billing.Payment{
		StudentID: student.ID,
		Total:     rp(500000), Paid: rp(0), Remaining: rp(500000),
		Status:    billing.StatusPending,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err = s.SavePayment(ctx, current)
	require.NoError(t, err)

	got, err := s.GetPaymentByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Total.Equal(rp(500000)))
}

func TestListOutstandingPayments_SkipsCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedPayment(t, s, "Hana", 500000)

	done := seedPayment(t, s, "Indra", 300000)
	done.Paid = rp(300000)
	done.Remaining = rp(0)
	done.Status = billing.StatusCompleted
	_, err := s.SavePayment(ctx, done)
	require.NoError(t, err)

	out, err := s.ListOutstandingPayments(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Remaining.Equal(rp(500000)))
}

func TestDismissReminder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedPayment(t, s, "Joko", 500000)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.DismissReminder(ctx, p.ID, "admin", at))

	got, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReminderDismissedAt)
	assert.True(t, got.ReminderDismissedAt.Equal(at))
	assert.Equal(t, "admin", got.ReminderDismissedBy)
}

func TestDismissReminder_UnknownPayment(t *testing.T) {
	s := newTestStore(t)

	err := s.DismissReminder(context.Background(), "nope", "admin", time.Now())

	assert.ErrorIs(t, err, sql.ErrNoRows)
}

// =============================================================================
// RATE LIMIT COUNTERS
// =============================================================================

func TestIncrement_CountsPerKeyAndWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	w2 := w1.Add(time.Minute)

	for want := 1; want <= 3; want++ {
		got, err := s.Increment(ctx, "10.0.0.1", w1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// A new window and a different key both start from 1.
	got, err := s.Increment(ctx, "10.0.0.1", w2)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = s.Increment(ctx, "10.0.0.2", w1)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
