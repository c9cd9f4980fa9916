// Package targets expands caller-supplied target specifications into
// concrete host sets.
//
// A specification is a string or a list of strings. Each string holds one
// or more comma-separated tokens, and every token is one of:
//
//	10.0.0.1                      single address
//	10.0.0.1-10.0.0.20            inclusive range (may cross octet boundaries)
//	192.168.1.1-255               last-octet shorthand (IPv4 only)
//	10.0.4.0/24                   CIDR block (network/broadcast excluded)
//
// Parsing is all-or-nothing: one malformed token rejects the specification
// with ErrMalformedTarget, so no scan ever starts from a partial parse.
//
// Usage:
//
//	hosts, err := targets.Parse(targets.Spec{"10.0.0.1-10.0.0.3", "10.0.1.7"}, 0)
//	for _, h := range hosts.Addrs() {
//	    fmt.Println(h)
//	}
package targets
