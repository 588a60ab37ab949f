package models

import "time"

// Company is the tenant collaborator this subsystem serves. The verification
// core reads ClaimedDomain and writes DomainVerified; it owns neither field,
// and everything else about a tenant lives with the surrounding platform.
type Company struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	ClaimedDomain  string    `db:"claimed_domain" json:"claimed_domain"`
	DomainVerified bool      `db:"domain_verified" json:"domain_verified"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
