package targets

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"unicode"
)

// DefaultMaxHosts caps how many addresses one specification may expand to.
const DefaultMaxHosts = 65536

// maxOctet is the largest value accepted as a last-octet shorthand end.
const maxOctet = 255

// Spec is a target specification as supplied by a caller.
//
// In JSON it may be a single string or an array of strings; both decode to
// a Spec. Each element may itself contain comma-separated tokens.
type Spec []string

// UnmarshalJSON accepts either a JSON string or an array of strings.
// null leaves s unchanged; an empty array yields an empty, non-nil Spec so
// callers can tell it apart from a missing value.
func (s *Spec) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = Spec{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("targets must be a string or a list of strings: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	*s = Spec(list)
	return nil
}

// HostSet is an insertion-ordered, duplicate-free set of addresses.
// It is built per request and is not safe for concurrent mutation.
type HostSet struct {
	addrs []netip.Addr
	seen  map[netip.Addr]struct{}
}

// NewHostSet returns an empty set.
func NewHostSet() *HostSet {
	return &HostSet{seen: make(map[netip.Addr]struct{})}
}

// Add appends addr unless it is already present. It reports whether the
// address was added.
func (h *HostSet) Add(addr netip.Addr) bool {
	if _, ok := h.seen[addr]; ok {
		return false
	}
	h.seen[addr] = struct{}{}
	h.addrs = append(h.addrs, addr)
	return true
}

// Contains reports whether addr is in the set.
func (h *HostSet) Contains(addr netip.Addr) bool {
	_, ok := h.seen[addr]
	return ok
}

// Len returns the number of addresses in the set.
func (h *HostSet) Len() int {
	return len(h.addrs)
}

// Addrs returns a copy of the addresses in insertion order.
func (h *HostSet) Addrs() []netip.Addr {
	out := make([]netip.Addr, len(h.addrs))
	copy(out, h.addrs)
	return out
}

// Strings returns the addresses in insertion order as text.
func (h *HostSet) Strings() []string {
	out := make([]string, len(h.addrs))
	for i, a := range h.addrs {
		out[i] = a.String()
	}
	return out
}

// Parse expands spec into a HostSet.
//
// Parsing is all-or-nothing: the first malformed token aborts with an error
// wrapping ErrMalformedTarget.
//
// Parameters:
//   - spec: Addresses, ranges and CIDR blocks; each element may hold a
//     comma-separated list
//   - maxHosts: Upper bound on the result; values <= 0 select DefaultMaxHosts
//
// Returns:
//   - *HostSet: Every address in encounter order, duplicates dropped
//   - error: Wraps ErrMalformedTarget for an empty spec, a bad token or too
//     many hosts
func Parse(spec Spec, maxHosts int) (*HostSet, error) {
	if maxHosts <= 0 {
		maxHosts = DefaultMaxHosts
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: empty specification", ErrMalformedTarget)
	}

	hosts := NewHostSet()
	for _, element := range spec {
		for _, token := range strings.Split(stripSpace(element), ",") {
			if err := expandToken(hosts, token, maxHosts); err != nil {
				return nil, err
			}
		}
	}
	return hosts, nil
}

// ParseString is a convenience wrapper for a single comma-separated string.
func ParseString(s string, maxHosts int) (*HostSet, error) {
	return Parse(Spec{s}, maxHosts)
}

// expandToken adds every address denoted by token to hosts.
func expandToken(hosts *HostSet, token string, maxHosts int) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrMalformedTarget)
	}

	if strings.Contains(token, "/") {
		return expandPrefix(hosts, token, maxHosts)
	}

	if start, end, ok := strings.Cut(token, "-"); ok {
		if strings.Contains(end, "-") {
			return fmt.Errorf("%w: %q has more than one '-'", ErrMalformedTarget, token)
		}
		return expandRange(hosts, token, start, end, maxHosts)
	}

	addr, err := parseAddr(token)
	if err != nil {
		return err
	}
	return add(hosts, addr, maxHosts)
}

// expandRange handles "A-B" and the last-octet shorthand "A-N".
func expandRange(hosts *HostSet, token, startStr, endStr string, maxHosts int) error {
	start, err := parseAddr(startStr)
	if err != nil {
		return err
	}

	var end netip.Addr
	if octet, convErr := strconv.Atoi(endStr); convErr == nil && !strings.ContainsAny(endStr, ".:") {
		if !start.Is4() || octet < 0 || octet > maxOctet {
			return fmt.Errorf("%w: %q is not a valid octet range", ErrMalformedTarget, token)
		}
		b := start.As4()
		b[3] = byte(octet)
		end = netip.AddrFrom4(b)
	} else {
		end, err = parseAddr(endStr)
		if err != nil {
			return err
		}
	}

	if start.BitLen() != end.BitLen() {
		return fmt.Errorf("%w: %q mixes address families", ErrMalformedTarget, token)
	}
	if start.Compare(end) > 0 {
		return fmt.Errorf("%w: %q starts after it ends", ErrMalformedTarget, token)
	}

	for a := start; a.IsValid() && a.Compare(end) <= 0; a = a.Next() {
		if err := add(hosts, a, maxHosts); err != nil {
			return err
		}
	}
	return nil
}

// expandPrefix adds the host addresses of a CIDR block. IPv4 blocks wider
// than /31 exclude their network and broadcast addresses.
func expandPrefix(hosts *HostSet, token string, maxHosts int) error {
	prefix, err := netip.ParsePrefix(token)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrMalformedTarget, token, err)
	}
	prefix = prefix.Masked()

	skipEdges := prefix.Addr().Is4() && prefix.Bits() < 31
	first := prefix.Addr()

	for a := first; a.IsValid() && prefix.Contains(a); a = a.Next() {
		next := a.Next()
		last := !next.IsValid() || !prefix.Contains(next)
		if skipEdges && (a == first || last) {
			continue
		}
		if err := add(hosts, a, maxHosts); err != nil {
			return err
		}
	}
	return nil
}

func add(hosts *HostSet, addr netip.Addr, maxHosts int) error {
	if hosts.Add(addr) && hosts.Len() > maxHosts {
		return fmt.Errorf("%w: more than %d hosts", ErrMalformedTarget, maxHosts)
	}
	return nil
}

func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q is not an address", ErrMalformedTarget, s)
	}
	return addr.Unmap(), nil
}

// ParseHost validates a single host address as used in per-device paths.
func ParseHost(s string) (netip.Addr, error) {
	return parseAddr(strings.TrimSpace(s))
}

// stripSpace removes every whitespace rune from s.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
