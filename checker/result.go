package checker

import "fmt"

// ProbeResult is the outcome of asking a single channel whether a domain
// currently presents its verification token. Probes never return errors for
// routine non-proof conditions: an unreachable host or missing record is
// simply "not proven", described in Detail.
type ProbeResult struct {
	// Match reports that the expected token was presented.
	Match bool
	// Definitive reports that the channel gave a conclusive answer either
	// way, so later channels need not be consulted. A fetched proof file
	// with the wrong content is definitive; a connection timeout is not.
	Definitive bool
	// Transport marks failures at the transport/DNS level, as opposed to a
	// content mismatch. The distinction surfaces in failure reasons.
	Transport bool
	// Detail is a human-readable cause when Match is false.
	Detail string
}

func matched() ProbeResult {
	return ProbeResult{Match: true, Definitive: true}
}

func mismatch(format string, a ...interface{}) ProbeResult {
	return ProbeResult{Definitive: true, Detail: fmt.Sprintf(format, a...)}
}

func notProven(format string, a ...interface{}) ProbeResult {
	return ProbeResult{Detail: fmt.Sprintf(format, a...)}
}

func transportFailure(format string, a ...interface{}) ProbeResult {
	return ProbeResult{Transport: true, Detail: fmt.Sprintf(format, a...)}
}
