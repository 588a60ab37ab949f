package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/cmmshub/verification-backend/token"
)

func TestCheckDNSTXTMatches(t *testing.T) {
	c := &Checker{
		lookupTXT: func(ctx context.Context, host string) ([]string, error) {
			if host != "_cmms-verification.example.com" {
				t.Errorf("queried wrong host %s", host)
			}
			return []string{"unrelated-record", "cmms-verify=abc123"}, nil
		},
	}
	result := c.checkDNSTXT(context.Background(), Request{Domain: "example.com", Token: "abc123"})
	if !result.Match {
		t.Errorf("expected TXT match, got %+v", result)
	}
}

func TestCheckDNSTXTMatchesEmbeddedValue(t *testing.T) {
	c := &Checker{
		lookupTXT: func(ctx context.Context, host string) ([]string, error) {
			// Some providers concatenate values into one record.
			return []string{"v=spf1 -all cmms-verify=abc123 trailing"}, nil
		},
	}
	result := c.checkDNSTXT(context.Background(), Request{Domain: "example.com", Token: "abc123"})
	if !result.Match {
		t.Errorf("expected contains-match, got %+v", result)
	}
}

func TestCheckDNSTXTNoMatchIsInconclusive(t *testing.T) {
	c := &Checker{
		lookupTXT: func(ctx context.Context, host string) ([]string, error) {
			return []string{"v=spf1 -all"}, nil
		},
	}
	result := c.checkDNSTXT(context.Background(), Request{Domain: "example.com", Token: "abc123"})
	if result.Match || result.Definitive {
		t.Errorf("unrelated TXT records should leave the CNAME channel a chance, got %+v", result)
	}
}

func TestCheckDNSTXTLookupFailure(t *testing.T) {
	c := &Checker{
		lookupTXT: func(ctx context.Context, host string) ([]string, error) {
			return nil, errors.New("NXDOMAIN")
		},
	}
	result := c.checkDNSTXT(context.Background(), Request{Domain: "example.com", Token: "abc123"})
	if result.Match || !result.Transport {
		t.Errorf("lookup failure should be a transport-level non-proof, got %+v", result)
	}
}

func TestCheckDNSCNAME(t *testing.T) {
	c := &Checker{
		lookupCNAME: func(ctx context.Context, host string) (string, error) {
			return token.CNAMETarget("abc123") + ".", nil
		},
	}
	result := c.checkDNSCNAME(context.Background(), Request{Domain: "example.com", Token: "abc123"})
	if !result.Match {
		t.Errorf("expected CNAME match, got %+v", result)
	}

	c.lookupCNAME = func(ctx context.Context, host string) (string, error) {
		return "somewhere-else.example.net.", nil
	}
	result = c.checkDNSCNAME(context.Background(), Request{Domain: "example.com", Token: "abc123"})
	if result.Match {
		t.Errorf("expected CNAME miss, got %+v", result)
	}
}

// With the HTTP channel unreachable, Verify should fall through the channel
// list and find the proof via DNS.
func TestVerifyFallsThroughToDNS(t *testing.T) {
	c := &Checker{
		lookupTXT: func(ctx context.Context, host string) ([]string, error) {
			return []string{"cmms-verify=abc123"}, nil
		},
	}
	result := c.Verify(context.Background(), Request{
		Domain:       "127.0.0.1:1",
		ResourceName: "proof.txt",
		Token:        "abc123",
	})
	if !result.Match {
		t.Errorf("expected DNS TXT to prove control, got %+v", result)
	}
}

// When nothing matches anywhere, the failure reason should talk about the
// primary channel: the proof file the tenant was instructed to upload.
func TestVerifyReportsPrimaryChannelFailure(t *testing.T) {
	c := &Checker{
		lookupTXT: func(ctx context.Context, host string) ([]string, error) {
			return nil, errors.New("NXDOMAIN")
		},
		lookupCNAME: func(ctx context.Context, host string) (string, error) {
			return "", errors.New("NXDOMAIN")
		},
	}
	result := c.Verify(context.Background(), Request{
		Domain:       "127.0.0.1:1",
		ResourceName: "proof.txt",
		Token:        "abc123",
	})
	if result.Match {
		t.Fatal("nothing should have matched")
	}
	if !result.Transport {
		t.Errorf("expected the primary channel's transport failure, got %+v", result)
	}
}
