package db

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"time"

	// Imports postgresql driver for database/sql
	_ "github.com/lib/pq"
	"gopkg.in/gorp.v2"

	"github.com/cmmshub/verification-backend/models"
)

// SQLDatabase is a Database interface backed by postgresql.
type SQLDatabase struct {
	cfg  Config // Configuration to define the DB connection.
	conn *gorp.DbMap
}

func getConnectionString(cfg Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		url.PathEscape(cfg.DbUsername),
		url.PathEscape(cfg.DbPass),
		url.PathEscape(cfg.DbHost),
		url.PathEscape(cfg.DbName))
}

// InitSQLDatabase creates a DB connection based on information in a Config,
// and returns a pointer to the resulting SQLDatabase object. If connection
// fails, returns an error.
func InitSQLDatabase(cfg Config) (*SQLDatabase, error) {
	log.Printf("Connecting to Postgres DB %s ...\n", cfg.DbHost)
	conn, err := sql.Open("postgres", getConnectionString(cfg))
	if err != nil {
		return nil, err
	}
	dbmap := &gorp.DbMap{Db: conn, Dialect: gorp.PostgresDialect{}}
	dbmap.AddTableWithName(models.Company{}, "companies").SetKeys(false, "ID")
	dbmap.AddTableWithName(models.VerificationRecord{}, "verification_records").SetKeys(false, "ID")
	return &SQLDatabase{cfg: cfg, conn: dbmap}, nil
}

// COMPANY DB FUNCTIONS

// PutCompany upserts a company row. The domain_verified flag is written
// as-is, so rewriting true is harmless.
func (db *SQLDatabase) PutCompany(company models.Company) error {
	_, err := db.conn.Exec(
		"INSERT INTO companies(id, name, claimed_domain, domain_verified, created_at) "+
			"VALUES($1, $2, $3, $4, $5) "+
			"ON CONFLICT (id) DO UPDATE SET name=$2, claimed_domain=$3, domain_verified=$4",
		company.ID, company.Name, company.ClaimedDomain, company.DomainVerified, company.CreatedAt)
	return err
}

// GetCompany retrieves the company with the given id.
func (db *SQLDatabase) GetCompany(id string) (models.Company, error) {
	obj, err := db.conn.Get(models.Company{}, id)
	if err != nil {
		return models.Company{}, err
	}
	if obj == nil {
		return models.Company{}, ErrNotFound
	}
	return *(obj.(*models.Company)), nil
}

// SetCompanyDomainVerified flips the verified-domain flag for a company.
func (db *SQLDatabase) SetCompanyDomainVerified(id string, verified bool) error {
	_, err := db.conn.Exec(
		"UPDATE companies SET domain_verified=$2 WHERE id=$1", id, verified)
	return err
}

// RECORD DB FUNCTIONS

// PutRecord upserts a verification record. Immutable fields (domain, token,
// resource name, created_at) are only ever written on insert.
func (db *SQLDatabase) PutRecord(record models.VerificationRecord) error {
	_, err := db.conn.Exec(
		"INSERT INTO verification_records(id, company_id, domain, token, resource_name, "+
			"status, attempts, last_checked, verified_at, failure_reason, created_at) "+
			"VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) "+
			"ON CONFLICT (id) DO UPDATE SET status=$6, attempts=$7, last_checked=$8, "+
			"verified_at=$9, failure_reason=$10",
		record.ID, record.CompanyID, record.Domain, record.Token, record.ResourceName,
		record.Status, record.Attempts, record.LastCheckedAt, record.VerifiedAt,
		record.FailureReason, record.CreatedAt)
	return err
}

// GetRecord retrieves a verification record by id.
func (db *SQLDatabase) GetRecord(id string) (models.VerificationRecord, error) {
	obj, err := db.conn.Get(models.VerificationRecord{}, id)
	if err != nil {
		return models.VerificationRecord{}, err
	}
	if obj == nil {
		return models.VerificationRecord{}, ErrNotFound
	}
	return *(obj.(*models.VerificationRecord)), nil
}

const latestRecordQuery = `
SELECT * FROM verification_records
    WHERE company_id=$1 ORDER BY created_at DESC LIMIT 1
`

// LatestRecordForCompany retrieves the most recently created verification
// record for a company.
func (db *SQLDatabase) LatestRecordForCompany(companyID string) (models.VerificationRecord, error) {
	var record models.VerificationRecord
	err := db.conn.SelectOne(&record, latestRecordQuery, companyID)
	if err == sql.ErrNoRows {
		return record, ErrNotFound
	}
	return record, err
}

// OutstandingRecords retrieves every record that still needs attention from
// the scheduler: anything not yet verified, including failed records with
// attempts remaining and records parked at the ceiling.
func (db *SQLDatabase) OutstandingRecords() ([]models.VerificationRecord, error) {
	recordPtrs := []*models.VerificationRecord{}
	_, err := db.conn.Select(&recordPtrs,
		"SELECT * FROM verification_records WHERE status <> $1", models.StatusVerified)
	records := []models.VerificationRecord{}
	for _, record := range recordPtrs {
		records = append(records, *record)
	}
	return records, err
}

const claimAttemptQuery = `
UPDATE verification_records
    SET attempts=attempts+1, last_checked=$2
    WHERE id=$1 AND status <> $3 AND attempts < $4
    RETURNING id, company_id, domain, token, resource_name, status, attempts,
              last_checked, verified_at, COALESCE(failure_reason, ''), created_at
`

// ClaimAttempt burns one check attempt, atomically. The WHERE clause is the
// race guard: of two concurrent checks on the same record, the one that finds
// the conditions no longer hold gets ErrNotFound and must back off.
func (db *SQLDatabase) ClaimAttempt(id string, now time.Time, ceiling int) (models.VerificationRecord, error) {
	var record models.VerificationRecord
	var lastChecked, verifiedAt sql.NullTime
	err := db.conn.Db.QueryRow(claimAttemptQuery, id, now, models.StatusVerified, ceiling).Scan(
		&record.ID, &record.CompanyID, &record.Domain, &record.Token, &record.ResourceName,
		&record.Status, &record.Attempts, &lastChecked, &verifiedAt,
		&record.FailureReason, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return record, ErrNotFound
	}
	if err != nil {
		return record, err
	}
	if lastChecked.Valid {
		record.LastCheckedAt = &lastChecked.Time
	}
	if verifiedAt.Valid {
		record.VerifiedAt = &verifiedAt.Time
	}
	return record, nil
}

func tryExec(database *SQLDatabase, commands []string) error {
	for _, command := range commands {
		if _, err := database.conn.Exec(command); err != nil {
			return fmt.Errorf("command failed: %s\nwith error: %v",
				command, err.Error())
		}
	}
	return nil
}

// ClearTables nukes all the tables. ** Should only be used during testing **
func (db *SQLDatabase) ClearTables() error {
	return tryExec(db, []string{
		"DELETE FROM verification_records",
		"DELETE FROM companies",
	})
}
