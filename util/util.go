package util

import "regexp"

var domainNamePattern = regexp.MustCompile(
	`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// ValidDomainName returns true for a well-formed, fully qualified domain
// name in ASCII form (run IDNs through idna.ToASCII first).
func ValidDomainName(domain string) bool {
	if len(domain) > 253 {
		return false
	}
	return domainNamePattern.MatchString(domain)
}
