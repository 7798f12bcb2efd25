/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the internal domain
  model from the external contract. Monetary amounts cross the wire as
  plain numbers (rupiah); internally everything is decimal.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Request structs carry go-playground/validator tags; handlers run the
  shared validator before touching storage.

SEE ALSO:
  - handlers.go: Uses these types
  - commission, reminder, billing: Domain types being serialized
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kelola/course-engine/billing"
	"github.com/kelola/course-engine/commission"
	"github.com/kelola/course-engine/reminder"
	"github.com/kelola/course-engine/store/sqlite"
)

// =============================================================================
// PEOPLE
// =============================================================================

type StudentDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateStudentRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type TeacherDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateTeacherRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

func toStudentDTO(s sqlite.Student) StudentDTO {
	return StudentDTO{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Phone:     s.Phone,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

func toTeacherDTO(t sqlite.Teacher) TeacherDTO {
	return TeacherDTO{
		ID:        t.ID,
		Name:      t.Name,
		Email:     t.Email,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// CLASSES & MEETINGS
// =============================================================================

type PolicyDTO struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

type ClassDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	Policy    PolicyDTO `json:"policy"`
	CreatedAt string    `json:"created_at,omitempty"`
}

type CreateClassRequest struct {
	Name      string  `json:"name" validate:"required"`
	TeacherID string  `json:"teacher_id" validate:"required"`
	Type      string  `json:"commission_type" validate:"required"`
	Amount    float64 `json:"commission_amount" validate:"min=0"`
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

type MeetingDTO struct {
	ID                  string `json:"id"`
	ClassID             string `json:"class_id"`
	Date                string `json:"date"`
	SubstituteTeacherID string `json:"substitute_teacher_id,omitempty"`
	ActualTeacherID     string `json:"actual_teacher_id,omitempty"`
}

type CreateMeetingRequest struct {
	Date                string `json:"date" validate:"required"`
	SubstituteTeacherID string `json:"substitute_teacher_id"`
	ActualTeacherID     string `json:"actual_teacher_id"`
}

func toMeetingDTO(m sqlite.Meeting) MeetingDTO {
	return MeetingDTO{
		ID:                  m.ID,
		ClassID:             m.ClassID,
		Date:                m.Date.Format("2006-01-02"),
		SubstituteTeacherID: m.SubstituteTeacherID,
		ActualTeacherID:     m.ActualTeacherID,
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceEntryRequest accepts either the external Indonesian status
// vocabulary (HADIR, TIDAK_HADIR, TERLAMBAT, IZIN) or the canonical names;
// translation happens once, here at the boundary.
type AttendanceEntryRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Notes     string `json:"notes"`
}

type RecordAttendanceRequest struct {
	Records []AttendanceEntryRequest `json:"records" validate:"required,min=1,dive"`
}

type AttendanceDTO struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
}

// =============================================================================
// COMMISSION
// =============================================================================

type CommissionDTO struct {
	MeetingID            string  `json:"meeting_id"`
	ClassID              string  `json:"class_id"`
	Date                 string  `json:"date"`
	TeacherID            string  `json:"teacher_id"`
	AttributionSource    string  `json:"attribution_source"`
	Amount               float64 `json:"amount"`
	Breakdown            string  `json:"breakdown"`
	EligibleStudentCount int     `json:"eligible_student_count"`
}

type TeacherTotalDTO struct {
	TeacherID string  `json:"teacher_id"`
	Meetings  int     `json:"meetings"`
	Amount    float64 `json:"amount"`
}

type ClassTotalDTO struct {
	ClassID  string  `json:"class_id"`
	Meetings int     `json:"meetings"`
	Amount   float64 `json:"amount"`
}

type CommissionReportDTO struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Meetings []CommissionDTO   `json:"meetings"`
	Teachers []TeacherTotalDTO `json:"teachers"`
	Classes  []ClassTotalDTO   `json:"classes"`
}

func toCommissionDTO(mc commission.MeetingCommission) CommissionDTO {
	return CommissionDTO{
		MeetingID:            mc.MeetingID,
		ClassID:              mc.ClassID,
		Date:                 mc.Date.Format("2006-01-02"),
		TeacherID:            mc.TeacherID,
		AttributionSource:    mc.Source,
		Amount:               mc.Result.Amount.InexactFloat64(),
		Breakdown:            mc.Result.Breakdown,
		EligibleStudentCount: mc.Result.EligibleStudentCount,
	}
}

// =============================================================================
// PAYMENTS & REMINDERS
// =============================================================================

type PaymentDTO struct {
	ID                  string  `json:"id"`
	StudentID           string  `json:"student_id"`
	TotalAmount         float64 `json:"total_amount"`
	PaidAmount          float64 `json:"paid_amount"`
	RemainingAmount     float64 `json:"remaining_amount"`
	Status              string  `json:"status"`
	ReminderDismissedAt string  `json:"reminder_dismissed_at,omitempty"`
	ReminderDismissedBy string  `json:"reminder_dismissed_by,omitempty"`
}

type CreatePaymentRequest struct {
	StudentID   string  `json:"student_id" validate:"required"`
	TotalAmount float64 `json:"total_amount" validate:"gt=0"`
}

type TransactionDTO struct {
	ID          string  `json:"id"`
	PaymentID   string  `json:"payment_id"`
	Amount      float64 `json:"amount"`
	PaymentDate string  `json:"payment_date"`
	Notes       string  `json:"notes,omitempty"`
}

type AddTransactionRequest struct {
	Amount      float64 `json:"amount" validate:"required"`
	PaymentDate string  `json:"payment_date" validate:"required"`
	Notes       string  `json:"notes"`
}

type DismissReminderRequest struct {
	DismissedBy string `json:"dismissed_by" validate:"required"`
}

type ReminderDTO struct {
	StudentID          string  `json:"student_id"`
	ShouldShowReminder bool    `json:"should_show_reminder"`
	Reason             string  `json:"reason"`
	TotalMeetings      int     `json:"total_meetings"`
	MeetingsSinceReset int     `json:"meetings_since_reset"`
	LastResetDate      string  `json:"last_reset_date,omitempty"`
	ResetType          string  `json:"reset_type,omitempty"`
	RemainingAmount    float64 `json:"remaining_amount"`
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:                  p.ID,
		StudentID:           p.StudentID,
		TotalAmount:         p.Total.InexactFloat64(),
		PaidAmount:          p.Paid.InexactFloat64(),
		RemainingAmount:     p.Remaining.InexactFloat64(),
		Status:              string(p.Status),
		ReminderDismissedBy: p.ReminderDismissedBy,
	}
	if p.ReminderDismissedAt != nil {
		dto.ReminderDismissedAt = p.ReminderDismissedAt.Format(time.RFC3339)
	}
	return dto
}

func toTransactionDTO(t billing.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		PaymentID:   t.PaymentID,
		Amount:      t.Amount.InexactFloat64(),
		PaymentDate: t.PaymentDate.Format("2006-01-02"),
		Notes:       t.Notes,
	}
}

func toReminderDTO(d reminder.Decision) ReminderDTO {
	dto := ReminderDTO{
		StudentID:          d.StudentID,
		ShouldShowReminder: d.ShouldShowReminder,
		Reason:             d.Reason,
		TotalMeetings:      d.TotalMeetings,
		MeetingsSinceReset: d.MeetingsSinceReset,
		ResetType:          string(d.ResetType),
		RemainingAmount:    d.RemainingAmount.InexactFloat64(),
	}
	if d.LastResetDate != nil {
		dto.LastResetDate = d.LastResetDate.Format(time.RFC3339)
	}
	return dto
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// moneyFromFloat converts a wire amount to decimal once, at the boundary.
func moneyFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
