package models

import "time"

// RecordStatus represents the state of a single verification record.
type RecordStatus string

// Possible values for RecordStatus.
const (
	StatusPending  RecordStatus = "pending"  // Awaiting a successful proof-of-control check.
	StatusVerified RecordStatus = "verified" // Proof succeeded. Terminal; never re-entered or left.
	StatusFailed   RecordStatus = "failed"   // Most recent check did not prove control.
)

// MaxAttempts is the ceiling on check attempts per verification record.
// Once reached, the record requires an explicit retry-reset before any
// further check, manual or automatic.
const MaxAttempts = 10

// VerificationRecord stores the state of one proof-of-control attempt cycle
// for a (company, domain) pair. Records are never hard-deleted; they are
// retained as an audit trail of past verification cycles.
type VerificationRecord struct {
	ID            string       `db:"id" json:"id"`
	CompanyID     string       `db:"company_id" json:"company_id"`
	Domain        string       `db:"domain" json:"domain"`
	Token         string       `db:"token" json:"token"`
	ResourceName  string       `db:"resource_name" json:"resource_name"`
	Status        RecordStatus `db:"status" json:"status"`
	Attempts      int          `db:"attempts" json:"attempts"`
	LastCheckedAt *time.Time   `db:"last_checked" json:"last_checked,omitempty"`
	VerifiedAt    *time.Time   `db:"verified_at" json:"verified_at,omitempty"`
	FailureReason string       `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// Checkable reports whether another check attempt may be performed against
// this record: verified records are terminal, and records at the attempt
// ceiling need a retry-reset first.
func (r *VerificationRecord) Checkable(ceiling int) bool {
	return r.Status != StatusVerified && r.Attempts < ceiling
}

// AtCeiling reports whether the record has used up its check attempts.
func (r *VerificationRecord) AtCeiling(ceiling int) bool {
	return r.Attempts >= ceiling
}

// MarkVerified transitions the record into the terminal verified state.
// The failure reason is cleared: verified_at and failure_reason are
// mutually exclusive at any instant.
func (r *VerificationRecord) MarkVerified(now time.Time) {
	r.Status = StatusVerified
	r.VerifiedAt = &now
	r.FailureReason = ""
}

// MarkFailed records an unsuccessful check with a human-readable cause.
func (r *VerificationRecord) MarkFailed(reason string) {
	r.Status = StatusFailed
	r.FailureReason = reason
}

// Reset returns the record to pending with a fresh attempt budget. The token
// and resource name are deliberately untouched so that a proof artifact the
// tenant already deployed stays valid.
func (r *VerificationRecord) Reset() {
	r.Status = StatusPending
	r.Attempts = 0
	r.FailureReason = ""
}
