// Package token generates domain verification tokens and derives the names of
// the proof artifacts a tenant must publish to redeem them.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Length of a rendered token in hex characters. The full SHA-256 digest is
// truncated for usability; 128 bits keeps collisions cryptographically
// negligible.
const Length = 32

// New produces a verification token for a domain. Tokens are unpredictable,
// safe to publish in a world-readable file or DNS record, and unique across
// calls: two tokens generated for the same domain never match.
func New(domain string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("could not gather randomness for token: %v", err)
	}
	digest := sha256.Sum256(append(
		[]byte(fmt.Sprintf("%s|%d|", domain, time.Now().UnixNano())), nonce...))
	return hex.EncodeToString(digest[:])[:Length], nil
}

// FileName returns the well-known file name that must carry the token for the
// HTTP proof channel. The format is fixed: artifacts already deployed by
// tenants depend on it.
func FileName(token string) string {
	return fmt.Sprintf("company-verification-%s.txt", token)
}

// DNSHost returns the record name queried for the DNS proof channel.
func DNSHost(domain string) string {
	return fmt.Sprintf("_cmms-verification.%s", domain)
}

// TXTValue returns the TXT record value expected at DNSHost.
func TXTValue(token string) string {
	return fmt.Sprintf("cmms-verify=%s", token)
}

// CNAMETarget returns the hostname the verification record may point at
// instead of carrying a TXT value, for DNS providers that only take CNAMEs
// on delegated subdomains.
func CNAMETarget(token string) string {
	return fmt.Sprintf("%s.verify.cmmshub.net", token)
}
