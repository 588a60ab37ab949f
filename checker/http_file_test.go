package checker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func proofServer(t *testing.T, path string, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchAndCompareMatches(t *testing.T) {
	c := &Checker{}
	server := proofServer(t, "/company-verification-abc.txt", "  abc\n")
	result, err := c.fetchAndCompare(context.Background(), server.URL+"/company-verification-abc.txt", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Match {
		t.Errorf("expected match after trimming whitespace, got %+v", result)
	}
}

func TestFetchAndCompareMismatchIsDefinitive(t *testing.T) {
	c := &Checker{}
	server := proofServer(t, "/proof.txt", "something else entirely")
	result, err := c.fetchAndCompare(context.Background(), server.URL+"/proof.txt", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if result.Match || !result.Definitive {
		t.Errorf("a served file with wrong content should be a definitive mismatch, got %+v", result)
	}
	if result.Detail == "" {
		t.Error("mismatch should carry a human-readable detail")
	}
}

func TestFetchAndCompareNon200IsInconclusive(t *testing.T) {
	c := &Checker{}
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	result, err := c.fetchAndCompare(context.Background(), server.URL+"/proof.txt", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if result.Match || result.Definitive {
		t.Errorf("a 404 should be inconclusive, got %+v", result)
	}
}

func TestFetchAndCompareRedirectCap(t *testing.T) {
	c := &Checker{}
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()
	_, err := c.fetchAndCompare(context.Background(), server.URL+"/proof.txt", "abc")
	if err == nil {
		t.Error("expected an endless redirect chain to be cut off")
	}
}

// The HTTPS attempt against a plain-HTTP listener fails at the TLS layer,
// which should trigger the one-time retry over http://.
func TestCheckHTTPFileFallsBackToPlainHTTP(t *testing.T) {
	c := &Checker{}
	server := proofServer(t, "/company-verification-abc.txt", "abc")
	domain := strings.TrimPrefix(server.URL, "http://")
	result := c.checkHTTPFile(context.Background(), Request{
		Domain:       domain,
		ResourceName: "company-verification-abc.txt",
		Token:        "abc",
	})
	if !result.Match {
		t.Errorf("expected the plain-HTTP fallback to find the proof, got %+v", result)
	}
}

func TestCheckHTTPFileUnreachableHost(t *testing.T) {
	c := &Checker{}
	result := c.checkHTTPFile(context.Background(), Request{
		// Port 1 on loopback: refused immediately, no DNS involved.
		Domain:       "127.0.0.1:1",
		ResourceName: "proof.txt",
		Token:        "abc",
	})
	if result.Match || result.Definitive || !result.Transport {
		t.Errorf("expected an inconclusive transport failure, got %+v", result)
	}
}
