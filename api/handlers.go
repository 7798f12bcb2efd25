/*
handlers.go - HTTP API handlers for the course back office

PURPOSE:
  Exposes the course engine via REST. Handlers fetch snapshots from the
  store, invoke the pure calculators (commission, reminder), and serialize
  the result. No business rules live here.

ENDPOINTS:
  Students:
    GET    /api/students                    List students
    POST   /api/students                    Create student
    GET    /api/students/{id}               Get student
    GET    /api/students/{id}/reminder      Evaluate payment reminder now

  Teachers:
    GET    /api/teachers                    List teachers
    POST   /api/teachers                    Create teacher

  Classes:
    GET    /api/classes                     List classes
    POST   /api/classes                     Create class (with policy)
    GET    /api/classes/{id}                Get class
    POST   /api/classes/{id}/enrollments    Enroll student
    GET    /api/classes/{id}/meetings       List class meetings
    POST   /api/classes/{id}/meetings       Create meeting

  Meetings:
    GET    /api/meetings/{id}               Meeting with attendance
    POST   /api/meetings/{id}/attendance    Record attendance (batch)
    GET    /api/meetings/{id}/commission    Commission for the meeting

  Commission:
    GET    /api/commissions/report          Per-teacher/class totals in range

  Payments:
    GET    /api/payments                       List payments
    POST   /api/payments                       Create payment
    GET    /api/payments/{id}                  Payment with transactions
    POST   /api/payments/{id}/transactions     Append a payment transaction
    POST   /api/payments/{id}/dismiss-reminder Dismiss the payment reminder

  Reminders:
    GET    /api/reminders                   Students whose reminder is due

ERROR HANDLING:
  400: validation errors, invalid policy/amount/input
  404: missing rows
  409: payment consistency conflicts (overpayment)
  500: everything else

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Routing and middleware
  - scheduler.go: Background reminder sweep
*/
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kelola/course-engine/attendance"
	"github.com/kelola/course-engine/billing"
	"github.com/kelola/course-engine/commission"
	"github.com/kelola/course-engine/factory"
	"github.com/kelola/course-engine/reminder"
	"github.com/kelola/course-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	PolicyFactory *factory.PolicyFactory
	Validate      *validator.Validate

	// Sweeper is optional; when present, GET /api/reminders serves the
	// cached sweep results instead of evaluating on demand.
	Sweeper *ReminderSweeper

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewHandler creates a handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:         store,
		PolicyFactory: factory.NewPolicyFactory(),
		Validate:      validator.New(),
		now:           time.Now,
	}
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.Validate.Struct(dst)
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}
	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	st, err := h.Store.SaveStudent(r.Context(), sqlite.Student{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(st))
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*st))
}

// GetStudentReminder evaluates the payment reminder for one student at
// the current instant. Because of the evaluator's 7-day grace window the
// answer can change between calls for identical stored data.
func (h *Handler) GetStudentReminder(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	ctx := r.Context()

	st, err := h.Store.GetStudent(ctx, studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	decision, err := h.evaluateStudent(ctx, studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderDTO(decision))
}

// evaluateStudent assembles the reminder evaluator's inputs from storage.
func (h *Handler) evaluateStudent(ctx context.Context, studentID string) (reminder.Decision, error) {
	payment, err := h.Store.GetPaymentByStudent(ctx, studentID)
	if err != nil {
		return reminder.Decision{}, err
	}

	var txs []billing.Transaction
	if payment != nil {
		if txs, err = h.Store.ListPaymentTransactions(ctx, payment.ID); err != nil {
			return reminder.Decision{}, err
		}
	}

	dates, err := h.Store.GetAttendanceDatesByStudent(ctx, studentID)
	if err != nil {
		return reminder.Decision{}, err
	}

	d := reminder.Evaluate(payment, txs, dates, h.now())
	if d.StudentID == "" {
		d.StudentID = studentID
	}
	return d, nil
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.Store.ListTeachers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}
	dtos := make([]TeacherDTO, len(teachers))
	for i, t := range teachers {
		dtos[i] = toTeacherDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req CreateTeacherRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t, err := h.Store.SaveTeacher(r.Context(), sqlite.Teacher{Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create teacher", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeacherDTO(t))
}

// =============================================================================
// CLASS HANDLERS
// =============================================================================

func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.Store.ListClasses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list classes", err)
		return
	}

	dtos := make([]ClassDTO, 0, len(classes))
	for _, c := range classes {
		dto, err := h.toClassDTO(c)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to parse class policy", err)
			return
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) toClassDTO(c sqlite.Class) (ClassDTO, error) {
	policy, err := h.PolicyFactory.ParsePolicy(c.PolicyJSON)
	if err != nil {
		return ClassDTO{}, err
	}
	return ClassDTO{
		ID:        c.ID,
		Name:      c.Name,
		TeacherID: c.TeacherID,
		Policy: PolicyDTO{
			Type:   string(policy.Type),
			Amount: policy.Amount.InexactFloat64(),
		},
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Validate the policy before storing its config JSON; an invalid type
	// or negative amount is rejected here, never stored.
	policy, err := h.PolicyFactory.FromJSON(factory.PolicyJSON{
		Type:   req.Type,
		Amount: moneyFromFloat(req.Amount),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid commission policy", err)
		return
	}

	raw, _ := json.Marshal(factory.PolicyJSON{Type: string(policy.Type), Amount: policy.Amount})
	c, err := h.Store.SaveClass(r.Context(), sqlite.Class{
		Name:       req.Name,
		TeacherID:  req.TeacherID,
		PolicyJSON: string(raw),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create class", err)
		return
	}

	dto, err := h.toClassDTO(c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to parse class policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetClass(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get class", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Class not found", nil)
		return
	}
	dto, err := h.toClassDTO(*c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to parse class policy", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "id")

	var req EnrollRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Store.EnrollStudent(r.Context(), classID, req.StudentID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to enroll student", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"class_id":   classID,
		"student_id": req.StudentID,
	})
}

func (h *Handler) ListClassMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.Store.ListMeetingsByClass(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list meetings", err)
		return
	}
	dtos := make([]MeetingDTO, len(meetings))
	for i, m := range meetings {
		dtos[i] = toMeetingDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// MEETING HANDLERS
// =============================================================================

func (h *Handler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "id")

	var req CreateMeetingRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	class, err := h.Store.GetClass(r.Context(), classID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get class", err)
		return
	}
	if class == nil {
		writeError(w, http.StatusNotFound, "Class not found", nil)
		return
	}

	m, err := h.Store.SaveMeeting(r.Context(), sqlite.Meeting{
		ClassID:             classID,
		Date:                date,
		SubstituteTeacherID: req.SubstituteTeacherID,
		ActualTeacherID:     req.ActualTeacherID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create meeting", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMeetingDTO(m))
}

func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.Store.GetMeeting(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get meeting", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Meeting not found", nil)
		return
	}

	records, err := h.Store.GetAttendanceByMeeting(ctx, m.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get attendance", err)
		return
	}
	attDTOs := make([]AttendanceDTO, len(records))
	for i, rec := range records {
		attDTOs[i] = AttendanceDTO{
			ID:        rec.ID,
			StudentID: rec.StudentID,
			Status:    string(rec.Status),
			Notes:     rec.Notes,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"meeting":    toMeetingDTO(*m),
		"attendance": attDTOs,
	})
}

// RecordAttendance stores a batch of attendance entries for a meeting.
// External status strings are translated to the closed enum here; an
// unknown status rejects the whole batch.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meetingID := chi.URLParam(r, "id")

	m, err := h.Store.GetMeeting(ctx, meetingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get meeting", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Meeting not found", nil)
		return
	}

	var req RecordAttendanceRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records := make([]attendance.Record, len(req.Records))
	for i, entry := range req.Records {
		status, err := attendance.Parse(entry.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid attendance status", err)
			return
		}
		records[i] = attendance.Record{
			MeetingID: meetingID,
			StudentID: entry.StudentID,
			Status:    status,
			Notes:     entry.Notes,
		}
	}

	if err := h.Store.SaveAttendance(ctx, meetingID, records); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save attendance", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"meeting_id": meetingID,
		"recorded":   len(records),
	})
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// meetingCommission runs attribution and the calculator for one meeting.
func (h *Handler) meetingCommission(ctx context.Context, m sqlite.Meeting) (commission.MeetingCommission, error) {
	policy, err := h.PolicyFactory.ParsePolicy(m.PolicyJSON)
	if err != nil {
		return commission.MeetingCommission{}, err
	}

	records, err := h.Store.GetAttendanceByMeeting(ctx, m.ID)
	if err != nil {
		return commission.MeetingCommission{}, err
	}

	result, err := commission.Calculate(policy, records)
	if err != nil {
		return commission.MeetingCommission{}, err
	}

	credit := commission.CreditTeacher(m.SubstituteTeacherID, m.ActualTeacherID, m.ClassTeacherID)
	return commission.MeetingCommission{
		MeetingID: m.ID,
		ClassID:   m.ClassID,
		Date:      m.Date,
		TeacherID: credit.TeacherID,
		Source:    credit.Source,
		Result:    result,
	}, nil
}

func (h *Handler) GetMeetingCommission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.Store.GetMeeting(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get meeting", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Meeting not found", nil)
		return
	}

	mc, err := h.meetingCommission(ctx, *m)
	if err != nil {
		if commission.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Commission calculation rejected", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to calculate commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(mc))
}

// CommissionReport aggregates per-teacher and per-class totals over a date
// range. Attribution is applied per meeting before aggregation, so each
// meeting is credited exactly once.
func (h *Handler) CommissionReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	meetings, err := h.Store.ListMeetingsInRange(ctx, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list meetings", err)
		return
	}

	var commissions []commission.MeetingCommission
	for _, m := range meetings {
		mc, err := h.meetingCommission(ctx, m)
		if err != nil {
			if commission.IsClientError(err) {
				writeError(w, http.StatusBadRequest, "Commission calculation rejected", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to calculate commission", err)
			return
		}
		commissions = append(commissions, mc)
	}

	report := CommissionReportDTO{
		From:     from.Format("2006-01-02"),
		To:       to.Format("2006-01-02"),
		Meetings: make([]CommissionDTO, len(commissions)),
	}
	for i, mc := range commissions {
		report.Meetings[i] = toCommissionDTO(mc)
	}

	for _, t := range commission.TotalsByTeacher(commissions) {
		report.Teachers = append(report.Teachers, TeacherTotalDTO{
			TeacherID: t.TeacherID,
			Meetings:  t.Meetings,
			Amount:    t.Amount.InexactFloat64(),
		})
	}
	sort.Slice(report.Teachers, func(i, j int) bool {
		return report.Teachers[i].TeacherID < report.Teachers[j].TeacherID
	})

	for _, c := range commission.TotalsByClass(commissions) {
		report.Classes = append(report.Classes, ClassTotalDTO{
			ClassID:  c.ClassID,
			Meetings: c.Meetings,
			Amount:   c.Amount.InexactFloat64(),
		})
	}
	sort.Slice(report.Classes, func(i, j int) bool {
		return report.Classes[i].ClassID < report.Classes[j].ClassID
	})

	writeJSON(w, http.StatusOK, report)
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to is before from")
	}
	// Make the range end-inclusive for date-granular meetings.
	return from, to.Add(24*time.Hour - time.Nanosecond), nil
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.ListPayments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	total := moneyFromFloat(req.TotalAmount)
	p := billing.Payment{
		StudentID: req.StudentID,
		Total:     total,
		Paid:      moneyFromFloat(0),
		Remaining: total,
		Status:    billing.StatusFor(total, moneyFromFloat(0)),
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return
	}

	saved, err := h.Store.SavePayment(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(saved))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.Store.GetPayment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payment", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Payment not found", nil)
		return
	}

	txs, err := h.Store.ListPaymentTransactions(ctx, p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get transactions", err)
		return
	}
	txDTOs := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		txDTOs[i] = toTransactionDTO(t)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payment":      toPaymentDTO(*p),
		"transactions": txDTOs,
	})
}

// AddTransaction appends a payment transaction. The store re-reads the
// payment and applies the billing rules inside its own transaction, so
// the overpay check cannot be raced past from a stale snapshot here.
// Overpayment is a conflict, not a silent cap.
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID := chi.URLParam(r, "id")

	var req AddTransactionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date format (use YYYY-MM-DD)", err)
		return
	}

	tx := billing.Transaction{
		PaymentID:   paymentID,
		Amount:      moneyFromFloat(req.Amount),
		PaymentDate: paymentDate,
		Notes:       req.Notes,
	}

	saved, p, err := h.Store.AddPaymentTransaction(ctx, paymentID, tx)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "Payment not found", nil)
		case errors.Is(err, billing.ErrInconsistentPayment):
			writeError(w, http.StatusConflict, "Transaction rejected", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to save transaction", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionDTO(saved),
		"payment":     toPaymentDTO(*p),
	})
}

// DismissReminder records an explicit dismissal, resetting the 3-meeting
// reminder cycle for the student.
func (h *Handler) DismissReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID := chi.URLParam(r, "id")

	p, err := h.Store.GetPayment(ctx, paymentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payment", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Payment not found", nil)
		return
	}

	var req DismissReminderRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	at := h.now().UTC()
	if err := h.Store.DismissReminder(ctx, paymentID, req.DismissedBy, at); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to dismiss reminder", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payment_id":   paymentID,
		"dismissed_by": req.DismissedBy,
		"dismissed_at": at.Format(time.RFC3339),
	})
}

// =============================================================================
// REMINDER HANDLERS
// =============================================================================

// ListReminders returns students whose payment reminder is due. Served
// from the background sweep cache when available, otherwise evaluated on
// demand over all outstanding payments.
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper != nil {
		due := h.Sweeper.Due()
		dtos := make([]ReminderDTO, len(due))
		for i, d := range due {
			dtos[i] = toReminderDTO(d)
		}
		writeJSON(w, http.StatusOK, map[string]any{"reminders": dtos, "source": "sweep"})
		return
	}

	decisions, err := h.EvaluateOutstanding(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate reminders", err)
		return
	}

	var dtos []ReminderDTO
	for _, d := range decisions {
		if d.ShouldShowReminder {
			dtos = append(dtos, toReminderDTO(d))
		}
	}
	if dtos == nil {
		dtos = []ReminderDTO{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": dtos, "source": "live"})
}

// EvaluateOutstanding runs the reminder evaluator over every payment that
// still has money owed. Shared by the live endpoint and the sweep.
func (h *Handler) EvaluateOutstanding(ctx context.Context) ([]reminder.Decision, error) {
	payments, err := h.Store.ListOutstandingPayments(ctx)
	if err != nil {
		return nil, err
	}

	decisions := make([]reminder.Decision, 0, len(payments))
	for _, p := range payments {
		d, err := h.evaluateStudent(ctx, p.StudentID)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
