package db

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/cmmshub/verification-backend/models"
)

// ErrNotFound is returned when a referenced company or verification record
// does not exist, or when a conditional claim matched no row.
var ErrNotFound = errors.New("not found")

// Database interface: the things a verification store should be able to do.
// Deliberately narrower than CRUD; records are never deleted.
type Database interface {
	// Upserts a company row.
	PutCompany(models.Company) error
	// Retrieves a company by id.
	GetCompany(id string) (models.Company, error)
	// Flips the company's domain_verified flag. Idempotent.
	SetCompanyDomainVerified(id string, verified bool) error

	// Upserts a verification record.
	PutRecord(models.VerificationRecord) error
	// Retrieves a verification record by id.
	GetRecord(id string) (models.VerificationRecord, error)
	// Retrieves the most recently created record for a company.
	LatestRecordForCompany(companyID string) (models.VerificationRecord, error)
	// Retrieves every record that hasn't reached the verified state.
	OutstandingRecords() ([]models.VerificationRecord, error)
	// Atomically increments the attempt counter and stamps last_checked,
	// but only while the record is still checkable (not verified, attempts
	// under the ceiling). Returns ErrNotFound when no row qualifies, which
	// is how a concurrent double-check loses the race.
	ClaimAttempt(id string, now time.Time, ceiling int) (models.VerificationRecord, error)

	ClearTables() error
}

// Config is a configuration struct for a Database.
type Config struct {
	Port       string
	DbHost     string
	DbName     string
	DbUsername string
	DbPass     string
}

// Default configuration values. Can be overwritten by env vars of the same name.
var configDefaults = map[string]string{
	"PORT":         "8080",
	"DB_HOST":      "localhost",
	"DB_NAME":      "verification",
	"DB_USERNAME":  "postgres",
	"DB_PASSWORD":  "postgres",
	"TEST_DB_NAME": "verification_test",
}

func getEnvOrDefault(varName string) string {
	envVar := os.Getenv(varName)
	if len(envVar) == 0 {
		envVar = configDefaults[varName]
	}
	return envVar
}

// LoadEnvironmentVariables loads relevant environment variables into a
// Config object.
func LoadEnvironmentVariables() (Config, error) {
	config := Config{
		Port:       getEnvOrDefault("PORT"),
		DbHost:     getEnvOrDefault("DB_HOST"),
		DbName:     getEnvOrDefault("DB_NAME"),
		DbUsername: getEnvOrDefault("DB_USERNAME"),
		DbPass:     getEnvOrDefault("DB_PASSWORD"),
	}
	if flag.Lookup("test.v") != nil {
		// Avoid accidentally wiping the default db during tests.
		config.DbName = getEnvOrDefault("TEST_DB_NAME")
	}
	return config, nil
}
