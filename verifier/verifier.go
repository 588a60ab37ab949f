// Package verifier coordinates domain ownership verification: it issues
// tokens, drives proof-of-control checks through the checker, and enforces
// the record state machine and attempt ceiling.
package verifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmmshub/verification-backend/checker"
	"github.com/cmmshub/verification-backend/db"
	"github.com/cmmshub/verification-backend/models"
	"github.com/cmmshub/verification-backend/token"
)

// Prober wraps the external probe so tests can substitute a fake network.
type Prober interface {
	Verify(ctx context.Context, req checker.Request) checker.ProbeResult
}

// Verifier orchestrates initiate / check / retry-reset / status operations
// against the verification store.
type Verifier struct {
	Database db.Database
	Prober   Prober
	// MaxAttempts overrides the attempt ceiling. Defaults to
	// models.MaxAttempts.
	MaxAttempts int

	// Per-record locks serialize performCheck and RetryReset so that
	// concurrent manual and automatic checks can't interleave their
	// read-probe-write cycles. The store's conditional claim is the second
	// line of defense against lost attempt increments.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (v *Verifier) ceiling() int {
	if v.MaxAttempts != 0 {
		return v.MaxAttempts
	}
	return models.MaxAttempts
}

func (v *Verifier) recordLock(id string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locks == nil {
		v.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := v.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[id] = lock
	}
	return lock
}

// Initiate starts (or resumes) a verification cycle for a company. Initiation
// is idempotent: while a checkable record exists for the company, that record
// is returned unchanged, preserving the token the tenant may already have
// deployed. A record parked at the attempt ceiling requires an explicit
// RetryReset first, and a verified company never gets a new cycle.
func (v *Verifier) Initiate(companyID string) (models.VerificationRecord, error) {
	company, err := v.Database.GetCompany(companyID)
	if errors.Is(err, db.ErrNotFound) {
		return models.VerificationRecord{}, notFound("no company with id %s", companyID)
	}
	if err != nil {
		return models.VerificationRecord{}, err
	}
	if company.ClaimedDomain == "" {
		return models.VerificationRecord{}, invalidState("company %s has not claimed a domain", companyID)
	}

	latest, err := v.Database.LatestRecordForCompany(companyID)
	if err == nil && latest.Domain == company.ClaimedDomain {
		switch {
		case latest.Status == models.StatusVerified:
			return models.VerificationRecord{}, invalidState("domain %s is already verified", latest.Domain)
		case latest.Checkable(v.ceiling()):
			return latest, nil
		default:
			return models.VerificationRecord{}, invalidState(
				"verification for %s has used all %d attempts; retry-reset it to continue", latest.Domain, v.ceiling())
		}
	}
	// err == nil with a different domain: the company re-claimed. The old
	// cycle stays behind as audit trail and a fresh cycle starts.
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return models.VerificationRecord{}, err
	}

	tok, err := token.New(company.ClaimedDomain)
	if err != nil {
		return models.VerificationRecord{}, err
	}
	record := models.VerificationRecord{
		ID:           uuid.NewString(),
		CompanyID:    company.ID,
		Domain:       company.ClaimedDomain,
		Token:        tok,
		ResourceName: token.FileName(tok),
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
	if err := v.Database.PutRecord(record); err != nil {
		return models.VerificationRecord{}, err
	}
	return record, nil
}

// CheckNow performs a user-triggered check. A failed probe is a normal
// outcome: the updated (possibly failed) record is returned without error.
// Only precondition violations are rejected.
func (v *Verifier) CheckNow(ctx context.Context, recordID string) (models.VerificationRecord, error) {
	lock := v.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	record, err := v.Database.GetRecord(recordID)
	if errors.Is(err, db.ErrNotFound) {
		return models.VerificationRecord{}, notFound("no verification record with id %s", recordID)
	}
	if err != nil {
		return models.VerificationRecord{}, err
	}
	if record.Status == models.StatusVerified {
		return models.VerificationRecord{}, invalidState("domain %s is already verified", record.Domain)
	}
	if record.AtCeiling(v.ceiling()) {
		return models.VerificationRecord{}, invalidState(
			"verification for %s has used all %d attempts; retry-reset it to continue", record.Domain, v.ceiling())
	}
	return v.performCheck(ctx, record)
}

// CheckAutomatic is the scheduler's variant of CheckNow: precondition
// violations (missing record, terminal or ceiling-parked state) are reported
// as a skip rather than an error, so a sweep can count them and move on.
func (v *Verifier) CheckAutomatic(ctx context.Context, recordID string) (record models.VerificationRecord, skipped bool, err error) {
	lock := v.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	record, err = v.Database.GetRecord(recordID)
	if errors.Is(err, db.ErrNotFound) {
		return models.VerificationRecord{}, true, nil
	}
	if err != nil {
		return models.VerificationRecord{}, false, err
	}
	if !record.Checkable(v.ceiling()) {
		return record, true, nil
	}
	record, err = v.performCheck(ctx, record)
	return record, false, err
}

// performCheck burns an attempt, probes the domain, and applies the outcome.
// The attempt claim is persisted before the probe runs, so the counter
// advances no matter how the check ends; that is what guarantees the retry
// sequence terminates.
func (v *Verifier) performCheck(ctx context.Context, record models.VerificationRecord) (models.VerificationRecord, error) {
	claimed, err := v.Database.ClaimAttempt(record.ID, time.Now(), v.ceiling())
	if errors.Is(err, db.ErrNotFound) {
		// A concurrent check got here first and exhausted the preconditions.
		return models.VerificationRecord{}, invalidState("verification for %s is no longer checkable", record.Domain)
	}
	if err != nil {
		return models.VerificationRecord{}, err
	}

	result := v.Prober.Verify(ctx, checker.Request{
		Domain:       claimed.Domain,
		ResourceName: claimed.ResourceName,
		Token:        claimed.Token,
	})
	if result.Match {
		claimed.MarkVerified(time.Now())
	} else {
		claimed.MarkFailed(result.Detail)
	}
	if err := v.Database.PutRecord(claimed); err != nil {
		return claimed, err
	}
	if result.Match {
		// Idempotent upsert; rewriting true is harmless.
		if err := v.Database.SetCompanyDomainVerified(claimed.CompanyID, true); err != nil {
			return claimed, err
		}
	}
	return claimed, nil
}

// RetryReset returns a record to pending with a fresh attempt budget. The
// token and proof resource name survive the reset.
func (v *Verifier) RetryReset(recordID string) (models.VerificationRecord, error) {
	lock := v.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	record, err := v.Database.GetRecord(recordID)
	if errors.Is(err, db.ErrNotFound) {
		return models.VerificationRecord{}, notFound("no verification record with id %s", recordID)
	}
	if err != nil {
		return models.VerificationRecord{}, err
	}
	if record.Status == models.StatusVerified {
		return models.VerificationRecord{}, invalidState("domain %s is already verified", record.Domain)
	}
	record.Reset()
	if err := v.Database.PutRecord(record); err != nil {
		return models.VerificationRecord{}, err
	}
	return record, nil
}

// Status retrieves the latest verification record for a company.
func (v *Verifier) Status(companyID string) (models.VerificationRecord, error) {
	record, err := v.Database.LatestRecordForCompany(companyID)
	if errors.Is(err, db.ErrNotFound) {
		return models.VerificationRecord{}, notFound("no verification record for company %s", companyID)
	}
	return record, err
}

// Record retrieves a verification record by id.
func (v *Verifier) Record(recordID string) (models.VerificationRecord, error) {
	record, err := v.Database.GetRecord(recordID)
	if errors.Is(err, db.ErrNotFound) {
		return models.VerificationRecord{}, notFound("no verification record with id %s", recordID)
	}
	return record, err
}
