// Package telemetry defines the normalised miner telemetry schema.
//
// The schema is a closed set of Field values, each with a wire name, a
// canonical position and an accessor on Record. Record holds optional
// values as pointers; Finalize computes the derived totals.
//
// Project reduces a record to a caller-chosen, ordered subset of fields:
//
//	p, err := telemetry.Project(rec, []string{"hashrate", "wattage"})
//	if errors.Is(err, telemetry.ErrUnknownField) { ... }
//	json.Marshal(p) // {"hashrate":95.1,"wattage":3250}
//
// The predefined views (HashrateView, FansView, ...) serve the narrow
// per-host endpoints.
package telemetry
