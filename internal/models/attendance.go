package models

import "time"

// DateLayout is the calendar-day key format for attendance records.
const DateLayout = "2006-01-02"

// AttendanceRecord holds one identity's check-in/check-out pair for one
// calendar day. check_out stays NULL until the second live appearance.
type AttendanceRecord struct {
	ID         int64      `db:"id" json:"id"`
	IdentityID int64      `db:"identity_id" json:"identity_id"`
	Date       string     `db:"date" json:"date"`
	CheckIn    time.Time  `db:"check_in" json:"check_in"`
	CheckOut   *time.Time `db:"check_out" json:"check_out,omitempty"`
}

// AttendanceState is the per (identity, day) ledger state.
type AttendanceState string

const (
	StateNoRecord   AttendanceState = "no_record"
	StateCheckedIn  AttendanceState = "checked_in"
	StateCheckedOut AttendanceState = "checked_out"
)

// State derives the ledger state from a record pointer.
func State(rec *AttendanceRecord) AttendanceState {
	switch {
	case rec == nil:
		return StateNoRecord
	case rec.CheckOut == nil:
		return StateCheckedIn
	default:
		return StateCheckedOut
	}
}

// AttendanceFilter scopes ledger listing queries.
type AttendanceFilter struct {
	IdentityID int64
	DateFrom   string
	DateTo     string
	Page       int
	PageSize   int
}

// AttendanceSummary aggregates one identity's presence for reporting.
type AttendanceSummary struct {
	IdentityID int64   `db:"identity_id" json:"identity_id"`
	Name       string  `db:"name" json:"name"`
	Role       string  `db:"role" json:"role"`
	Phone      *string `db:"phone" json:"phone,omitempty"`
	TotalDays  int     `db:"total_days" json:"total_days"`
}

// ReportStats carries the computed statistics for a per-identity report.
type ReportStats struct {
	TotalPresent int     `json:"total_present"`
	Percentage   float64 `json:"percentage"`
}
