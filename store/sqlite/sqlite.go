/*
Package sqlite provides the SQLite-backed persistence layer for the course
back office.

PURPOSE:
  Owns every table the engine reads or writes: students, teachers, classes
  (with their commission policy config JSON), enrollments, meetings,
  attendance, payments and their append-only transaction ledger, plus the
  fixed-window rate-limit counters. The calculators in commission/ and
  reminder/ never touch the database - handlers fetch snapshots here and
  hand them over.

APPEND-ONLY LEDGER:
  payment_transactions is append-only: no UPDATE, no DELETE. Corrections
  get a new (possibly negative) transaction. AddPaymentTransaction writes
  the ledger row and the recomputed payment totals in one database
  transaction so the invariant sum(transactions) == paid always holds.

KEY INDEXES:
  idx_attendance_student_meeting: per-student attendance dates (reminder hot path)
  idx_meetings_class_date:        roster and report range scans
  idx_payments_student:           payment lookup by student

WAL MODE:
  Opened with WAL and foreign keys on, same trade-offs as any small
  single-writer deployment. Use ":memory:" in tests.

SEE ALSO:
  - billing: Payment consistency rules enforced on write
  - ratelimit: CounterStore implemented by this package
  - api: The only caller
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/kelola/course-engine/attendance"
	"github.com/kelola/course-engine/billing"
)

// Store implements all persistence for the engine.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Commission policy lives on the class as a config JSON document,
	-- parsed by the factory package on read.
	CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		teacher_id TEXT NOT NULL REFERENCES teachers(id),
		policy_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL REFERENCES classes(id),
		student_id TEXT NOT NULL REFERENCES students(id),
		created_at TEXT NOT NULL,
		UNIQUE(class_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_enrollments_class
		ON enrollments(class_id);

	-- substitute_teacher_id and actual_teacher_id are the per-meeting
	-- attribution overrides; empty means "use the class teacher".
	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL REFERENCES classes(id),
		date TEXT NOT NULL,
		substitute_teacher_id TEXT NOT NULL DEFAULT '',
		actual_teacher_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_class_date
		ON meetings(class_id, date);
	CREATE INDEX IF NOT EXISTS idx_meetings_date
		ON meetings(date);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		meeting_id TEXT NOT NULL REFERENCES meetings(id),
		student_id TEXT NOT NULL REFERENCES students(id),
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(meeting_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_meeting
		ON attendance(meeting_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_student_meeting
		ON attendance(student_id, meeting_id);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		total_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		reminder_dismissed_at TEXT,
		reminder_dismissed_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_student
		ON payments(student_id);
	CREATE INDEX IF NOT EXISTS idx_payments_status
		ON payments(status);

	-- Append-only: no UPDATE or DELETE is ever issued against this table.
	CREATE TABLE IF NOT EXISTS payment_transactions (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL REFERENCES payments(id),
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payment_transactions_payment
		ON payment_transactions(payment_id, payment_date);

	CREATE TABLE IF NOT EXISTS rate_limit_windows (
		key TEXT NOT NULL,
		window_start TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (key, window_start)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW TYPES
// =============================================================================

type Student struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

type Teacher struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

type Class struct {
	ID         string
	Name       string
	TeacherID  string
	PolicyJSON string
	CreatedAt  time.Time
}

type Meeting struct {
	ID                  string
	ClassID             string
	Date                time.Time
	SubstituteTeacherID string
	ActualTeacherID     string
	CreatedAt           time.Time

	// Joined from the class row, for attribution and policy parsing.
	ClassTeacherID string
	PolicyJSON     string
}

// =============================================================================
// TIME / DECIMAL ENCODING
// =============================================================================

const timeLayout = time.RFC3339

func encodeTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func decodeNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := decodeTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func newID() string { return uuid.NewString() }

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) SaveStudent(ctx context.Context, st Student) (Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = newID()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, name, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, phone=excluded.phone`,
		st.ID, st.Name, st.Email, st.Phone, encodeTime(st.CreatedAt))
	return st, err
}

func (s *Store) GetStudent(ctx context.Context, id string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,''), created_at
		FROM students WHERE id = ?`, id)

	var st Student
	var createdAt string
	if err := row.Scan(&st.ID, &st.Name, &st.Email, &st.Phone, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t, err := decodeTime(createdAt)
	if err != nil {
		return nil, err
	}
	st.CreatedAt = t
	return &st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,''), created_at
		FROM students ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		var createdAt string
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.Phone, &createdAt); err != nil {
			return nil, err
		}
		if st.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// =============================================================================
// TEACHERS
// =============================================================================

func (s *Store) SaveTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teachers (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email`,
		t.ID, t.Name, t.Email, encodeTime(t.CreatedAt))
	return t, err
}

func (s *Store) ListTeachers(ctx context.Context) ([]Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email,''), created_at FROM teachers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []Teacher
	for rows.Next() {
		var t Teacher
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &createdAt); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// =============================================================================
// CLASSES & ENROLLMENTS
// =============================================================================

func (s *Store) SaveClass(ctx context.Context, c Class) (Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, teacher_id, policy_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, teacher_id=excluded.teacher_id, policy_json=excluded.policy_json`,
		c.ID, c.Name, c.TeacherID, c.PolicyJSON, encodeTime(c.CreatedAt))
	return c, err
}

func (s *Store) GetClass(ctx context.Context, id string) (*Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, teacher_id, policy_json, created_at FROM classes WHERE id = ?`, id)

	var c Class
	var createdAt string
	if err := row.Scan(&c.ID, &c.Name, &c.TeacherID, &c.PolicyJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t, err := decodeTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = t
	return &c, nil
}

func (s *Store) ListClasses(ctx context.Context) ([]Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, teacher_id, policy_json, created_at FROM classes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []Class
	for rows.Next() {
		var c Class
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.TeacherID, &c.PolicyJSON, &createdAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (s *Store) EnrollStudent(ctx context.Context, classID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollments (id, class_id, student_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(class_id, student_id) DO NOTHING`,
		newID(), classID, studentID, encodeTime(time.Now().UTC()))
	return err
}

func (s *Store) ListEnrolledStudents(ctx context.Context, classID string) ([]Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT st.id, st.name, COALESCE(st.email,''), COALESCE(st.phone,''), st.created_at
		FROM enrollments e
		JOIN students st ON st.id = e.student_id
		WHERE e.class_id = ?
		ORDER BY st.name`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		var createdAt string
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.Phone, &createdAt); err != nil {
			return nil, err
		}
		if st.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// =============================================================================
// MEETINGS
// =============================================================================

const meetingColumns = `
	m.id, m.class_id, m.date, m.substitute_teacher_id, m.actual_teacher_id,
	m.created_at, c.teacher_id, c.policy_json`

func (s *Store) SaveMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, class_id, date, substitute_teacher_id, actual_teacher_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date=excluded.date,
			substitute_teacher_id=excluded.substitute_teacher_id,
			actual_teacher_id=excluded.actual_teacher_id`,
		m.ID, m.ClassID, encodeTime(m.Date), m.SubstituteTeacherID, m.ActualTeacherID, encodeTime(m.CreatedAt))
	return m, err
}

func (s *Store) scanMeeting(scan func(dest ...any) error) (Meeting, error) {
	var m Meeting
	var date, createdAt string
	err := scan(&m.ID, &m.ClassID, &date, &m.SubstituteTeacherID, &m.ActualTeacherID,
		&createdAt, &m.ClassTeacherID, &m.PolicyJSON)
	if err != nil {
		return Meeting{}, err
	}
	if m.Date, err = decodeTime(date); err != nil {
		return Meeting{}, err
	}
	if m.CreatedAt, err = decodeTime(createdAt); err != nil {
		return Meeting{}, err
	}
	return m, nil
}

func (s *Store) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings m JOIN classes c ON c.id = m.class_id
		WHERE m.id = ?`, id)

	m, err := s.scanMeeting(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMeetingsByClass(ctx context.Context, classID string) ([]Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings m JOIN classes c ON c.id = m.class_id
		WHERE m.class_id = ?
		ORDER BY m.date`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectMeetings(rows)
}

// ListMeetingsInRange returns meetings with date in [from, to], joined with
// their class for attribution and policy parsing.
func (s *Store) ListMeetingsInRange(ctx context.Context, from, to time.Time) ([]Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings m JOIN classes c ON c.id = m.class_id
		WHERE m.date >= ? AND m.date <= ?
		ORDER BY m.date`, encodeTime(from), encodeTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectMeetings(rows)
}

func (s *Store) collectMeetings(rows *sql.Rows) ([]Meeting, error) {
	var meetings []Meeting
	for rows.Next() {
		m, err := s.scanMeeting(rows.Scan)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// SaveAttendance upserts a batch of records for one meeting. A second write
// for the same (meeting, student) replaces the status - that is the staff
// correction path; attendance rows are otherwise immutable.
func (s *Store) SaveAttendance(ctx context.Context, meetingID string, records []attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := encodeTime(time.Now().UTC())
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = newID()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (id, meeting_id, student_id, status, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(meeting_id, student_id) DO UPDATE SET
				status=excluded.status, notes=excluded.notes`,
			id, meetingID, r.StudentID, string(r.Status), r.Notes, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetAttendanceByMeeting(ctx context.Context, meetingID string) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, student_id, status, notes, created_at
		FROM attendance WHERE meeting_id = ?
		ORDER BY student_id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var r attendance.Record
		var status, createdAt string
		if err := rows.Scan(&r.ID, &r.MeetingID, &r.StudentID, &status, &r.Notes, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := attendance.Parse(status)
		if err != nil {
			return nil, err
		}
		r.Status = parsed
		if r.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetAttendanceDatesByStudent returns the meeting dates of every attendance
// record for a student, any status, sorted ascending. This feeds the
// reminder evaluator's meeting counting.
func (s *Store) GetAttendanceDatesByStudent(ctx context.Context, studentID string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.date
		FROM attendance a
		JOIN meetings m ON m.id = a.meeting_id
		WHERE a.student_id = ?
		ORDER BY m.date`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := decodeTime(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p billing.Payment) (billing.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = newID()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	var dismissedAt any
	if p.ReminderDismissedAt != nil {
		dismissedAt = encodeTime(*p.ReminderDismissedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, student_id, total_amount, paid_amount, remaining_amount,
			status, reminder_dismissed_at, reminder_dismissed_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_amount=excluded.total_amount,
			paid_amount=excluded.paid_amount,
			remaining_amount=excluded.remaining_amount,
			status=excluded.status,
			reminder_dismissed_at=excluded.reminder_dismissed_at,
			reminder_dismissed_by=excluded.reminder_dismissed_by,
			updated_at=excluded.updated_at`,
		p.ID, p.StudentID, p.Total.String(), p.Paid.String(), p.Remaining.String(),
		string(p.Status), dismissedAt, p.ReminderDismissedBy,
		encodeTime(p.CreatedAt), encodeTime(p.UpdatedAt))
	return p, err
}

func (s *Store) scanPayment(scan func(dest ...any) error) (*billing.Payment, error) {
	var p billing.Payment
	var total, paid, remaining, status, createdAt, updatedAt string
	var dismissedAt sql.NullString
	err := scan(&p.ID, &p.StudentID, &total, &paid, &remaining, &status,
		&dismissedAt, &p.ReminderDismissedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if p.Total, err = decodeDecimal(total); err != nil {
		return nil, err
	}
	if p.Paid, err = decodeDecimal(paid); err != nil {
		return nil, err
	}
	if p.Remaining, err = decodeDecimal(remaining); err != nil {
		return nil, err
	}
	p.Status = billing.Status(status)
	if p.ReminderDismissedAt, err = decodeNullableTime(dismissedAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

const paymentColumns = `id, student_id, total_amount, paid_amount, remaining_amount,
	status, reminder_dismissed_at, reminder_dismissed_by, created_at, updated_at`

func (s *Store) GetPayment(ctx context.Context, id string) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := s.scanPayment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetPaymentByStudent returns the student's payment record, or nil.
// A student conceptually has one payment; if older rows exist the newest
// one is authoritative.
func (s *Store) GetPaymentByStudent(ctx context.Context, studentID string) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE student_id = ?
		ORDER BY created_at DESC LIMIT 1`, studentID)
	p, err := s.scanPayment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Store) ListPayments(ctx context.Context) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectPayments(rows)
}

// ListOutstandingPayments returns payments that still have money owed,
// the reminder sweep's working set.
func (s *Store) ListOutstandingPayments(ctx context.Context) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status != ? AND CAST(remaining_amount AS REAL) > 0
		ORDER BY created_at`, string(billing.StatusCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectPayments(rows)
}

func (s *Store) collectPayments(rows *sql.Rows) ([]billing.Payment, error) {
	var payments []billing.Payment
	for rows.Next() {
		p, err := s.scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// AddPaymentTransaction appends a ledger entry and writes the recomputed
// payment totals in one database transaction. The payment row is re-read
// and the billing rules re-applied here, inside the transaction, so two
// writers racing from the same stale snapshot cannot both pass the overpay
// check: the loser sees the winner's totals and is rejected with
// billing.ErrInconsistentPayment. sum(transactions) == paid holds on every
// committed state.
func (s *Store) AddPaymentTransaction(ctx context.Context, paymentID string, ptx billing.Transaction) (billing.Transaction, *billing.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ptx.ID == "" {
		ptx.ID = newID()
	}
	ptx.PaymentID = paymentID
	if ptx.CreatedAt.IsZero() {
		ptx.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return billing.Transaction{}, nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, paymentID)
	p, err := s.scanPayment(row.Scan)
	if err != nil {
		return billing.Transaction{}, nil, err
	}

	if err := p.Apply(ptx); err != nil {
		return billing.Transaction{}, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_transactions (id, payment_id, amount, payment_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ptx.ID, ptx.PaymentID, ptx.Amount.String(), encodeTime(ptx.PaymentDate), ptx.Notes, encodeTime(ptx.CreatedAt))
	if err != nil {
		return billing.Transaction{}, nil, err
	}

	p.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET paid_amount=?, remaining_amount=?, status=?, updated_at=?
		WHERE id=?`,
		p.Paid.String(), p.Remaining.String(), string(p.Status),
		encodeTime(p.UpdatedAt), p.ID)
	if err != nil {
		return billing.Transaction{}, nil, err
	}

	return ptx, p, tx.Commit()
}

func (s *Store) ListPaymentTransactions(ctx context.Context, paymentID string) ([]billing.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_id, amount, payment_date, notes, created_at
		FROM payment_transactions
		WHERE payment_id = ?
		ORDER BY payment_date`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []billing.Transaction
	for rows.Next() {
		var t billing.Transaction
		var amount, paymentDate, createdAt string
		if err := rows.Scan(&t.ID, &t.PaymentID, &amount, &paymentDate, &t.Notes, &createdAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decodeDecimal(amount); err != nil {
			return nil, err
		}
		if t.PaymentDate, err = decodeTime(paymentDate); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// DismissReminder records an explicit reminder dismissal on the payment,
// starting a new 3-meeting cycle.
func (s *Store) DismissReminder(ctx context.Context, paymentID, dismissedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET reminder_dismissed_at=?, reminder_dismissed_by=?, updated_at=?
		WHERE id=?`,
		encodeTime(at), dismissedBy, encodeTime(time.Now().UTC()), paymentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// =============================================================================
// RATE LIMIT COUNTERS (ratelimit.CounterStore)
// =============================================================================

// Increment bumps the request count for (key, window) and returns the new
// value. Atomic via upsert.
func (s *Store) Increment(ctx context.Context, key string, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_limit_windows (key, window_start, count)
		VALUES (?, ?, 1)
		ON CONFLICT(key, window_start) DO UPDATE SET count = count + 1
		RETURNING count`,
		key, encodeTime(windowStart))

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
