package checker

import (
	"context"
	"strings"

	"github.com/cmmshub/verification-backend/token"
)

// checkDNSTXT looks for the expected cmms-verify TXT value at the
// verification host for the domain. Resolution failures are "not proven",
// never errors: NXDOMAIN just means the tenant hasn't published the record.
func (c *Checker) checkDNSTXT(ctx context.Context, req Request) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	host := token.DNSHost(req.Domain)
	records, err := c.txtLookup()(ctx, host)
	if err != nil {
		return transportFailure("could not resolve TXT records at %s: %v", host, err)
	}
	expected := token.TXTValue(req.Token)
	for _, record := range records {
		if strings.Contains(strings.TrimSpace(record), expected) {
			return matched()
		}
	}
	// Unrelated TXT records may coexist at the host, so a non-matching set
	// isn't definitive; the CNAME channel still gets a look.
	return notProven("no TXT record at %s carries %s", host, expected)
}

// checkDNSCNAME is the CNAME variant: the verification host must point at
// the tenant's token-specific target.
func (c *Checker) checkDNSCNAME(ctx context.Context, req Request) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	host := token.DNSHost(req.Domain)
	target, err := c.cnameLookup()(ctx, host)
	if err != nil {
		return transportFailure("could not resolve CNAME at %s: %v", host, err)
	}
	if strings.Contains(strings.TrimSuffix(target, "."), token.CNAMETarget(req.Token)) {
		return matched()
	}
	return notProven("CNAME at %s does not point at the verification target", host)
}
