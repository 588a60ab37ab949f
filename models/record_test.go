package models

import (
	"testing"
	"time"
)

func TestCheckable(t *testing.T) {
	record := VerificationRecord{Status: StatusPending, Attempts: 0}
	if !record.Checkable(MaxAttempts) {
		t.Error("fresh pending record should be checkable")
	}
	record.Attempts = MaxAttempts
	if record.Checkable(MaxAttempts) {
		t.Error("record at the ceiling should not be checkable")
	}
	record = VerificationRecord{Status: StatusFailed, Attempts: 3}
	if !record.Checkable(MaxAttempts) {
		t.Error("failed record with attempts remaining should be checkable")
	}
	record = VerificationRecord{Status: StatusVerified, Attempts: 1}
	if record.Checkable(MaxAttempts) {
		t.Error("verified record should never be checkable")
	}
}

func TestMarkVerifiedClearsFailureReason(t *testing.T) {
	record := VerificationRecord{Status: StatusFailed, FailureReason: "proof file returned 404"}
	record.MarkVerified(time.Now())
	if record.Status != StatusVerified {
		t.Errorf("expected verified, got %s", record.Status)
	}
	if record.VerifiedAt == nil {
		t.Error("expected verified_at to be set")
	}
	if record.FailureReason != "" {
		t.Error("verified_at and failure_reason must be mutually exclusive")
	}
}

func TestResetKeepsProofArtifact(t *testing.T) {
	record := VerificationRecord{
		Token:         "abc123",
		ResourceName:  "company-verification-abc123.txt",
		Status:        StatusFailed,
		Attempts:      7,
		FailureReason: "mismatch",
	}
	record.Reset()
	if record.Status != StatusPending || record.Attempts != 0 || record.FailureReason != "" {
		t.Errorf("bad reset state: %+v", record)
	}
	if record.Token != "abc123" || record.ResourceName != "company-verification-abc123.txt" {
		t.Error("reset must not regenerate the token or resource name")
	}
}
