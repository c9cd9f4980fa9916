package targets

import "errors"

// ErrMalformedTarget is returned when any token of a target specification
// cannot be parsed as an address, a range, or a CIDR block.
//
// The whole specification is rejected; callers never receive a partial set.
//
//	if errors.Is(err, targets.ErrMalformedTarget) {
//	    // reply 400 before touching the network
//	}
var ErrMalformedTarget = errors.New("targets: malformed target")
