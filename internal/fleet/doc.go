// Package fleet orchestrates device work across many hosts.
//
// Scanner fans connect → retrieve pipelines out over a host list with
// errgroup and joins them into per-host results. Service adds target
// parsing, field projection, single-host reads and fault-light commands on
// top, and reports scans and light changes to an Observer.
//
// Usage:
//
//	svc := fleet.NewService(factory, fleet.Config{MaxConcurrency: 64})
//	res, err := svc.Query(ctx, targets.Spec{"10.0.0.1-10.0.0.50"}, []string{"hashrate"})
//	for host, p := range res.Data { ... }
//	for host, err := range res.Errors { ... } // ErrUnreachable, ErrQueryFailed, ErrCancelled
package fleet
