package db

import (
	"sort"
	"sync"
	"time"

	"github.com/cmmshub/verification-backend/models"
)

// MemDatabase is an in-memory Database (for testing!). Safe for concurrent
// use; the single mutex also makes ClaimAttempt atomic, mirroring the
// conditional UPDATE the SQL store issues.
type MemDatabase struct {
	mu        sync.Mutex
	companies map[string]models.Company
	records   map[string]models.VerificationRecord
}

// InitMemDatabase returns an empty in-memory store.
func InitMemDatabase() *MemDatabase {
	return &MemDatabase{
		companies: make(map[string]models.Company),
		records:   make(map[string]models.VerificationRecord),
	}
}

func (db *MemDatabase) PutCompany(company models.Company) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.companies[company.ID] = company
	return nil
}

func (db *MemDatabase) GetCompany(id string) (models.Company, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	company, ok := db.companies[id]
	if !ok {
		return models.Company{}, ErrNotFound
	}
	return company, nil
}

func (db *MemDatabase) SetCompanyDomainVerified(id string, verified bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	company, ok := db.companies[id]
	if !ok {
		return ErrNotFound
	}
	company.DomainVerified = verified
	db.companies[id] = company
	return nil
}

func (db *MemDatabase) PutRecord(record models.VerificationRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.records[record.ID] = record
	return nil
}

func (db *MemDatabase) GetRecord(id string) (models.VerificationRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	record, ok := db.records[id]
	if !ok {
		return models.VerificationRecord{}, ErrNotFound
	}
	return record, nil
}

func (db *MemDatabase) LatestRecordForCompany(companyID string) (models.VerificationRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	matches := []models.VerificationRecord{}
	for _, record := range db.records {
		if record.CompanyID == companyID {
			matches = append(matches, record)
		}
	}
	if len(matches) == 0 {
		return models.VerificationRecord{}, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches[0], nil
}

func (db *MemDatabase) OutstandingRecords() ([]models.VerificationRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	records := []models.VerificationRecord{}
	for _, record := range db.records {
		if record.Status != models.StatusVerified {
			records = append(records, record)
		}
	}
	return records, nil
}

func (db *MemDatabase) ClaimAttempt(id string, now time.Time, ceiling int) (models.VerificationRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	record, ok := db.records[id]
	if !ok || record.Status == models.StatusVerified || record.Attempts >= ceiling {
		return models.VerificationRecord{}, ErrNotFound
	}
	record.Attempts++
	checkedAt := now
	record.LastCheckedAt = &checkedAt
	db.records[id] = record
	return record, nil
}

func (db *MemDatabase) ClearTables() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.companies = make(map[string]models.Company)
	db.records = make(map[string]models.VerificationRecord)
	return nil
}
