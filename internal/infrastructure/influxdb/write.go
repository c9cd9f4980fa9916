package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/minergate/internal/fleet"
)

// Measurement names.
const (
	MeasurementFleetScan    = "fleet_scan"
	MeasurementLightCommand = "light_command"
)

// WriteFleetScan records the outcome counts and duration of one scan,
// stamped with the scan's start time.
//
// Parameters:
//   - s: Scan summary; its outcome counts and duration become fields
func (c *Client) WriteFleetScan(s fleet.Summary) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementFleetScan,
		nil,
		map[string]any{
			"hosts":        s.Hosts,
			"succeeded":    s.Succeeded,
			"unreachable":  s.Unreachable,
			"query_failed": s.QueryFailed,
			"cancelled":    s.Cancelled,
			"duration_ms":  s.Duration.Milliseconds(),
		},
		s.StartedAt,
	))
}

// WriteLightCommand records one executed light operation.
//
// Parameters:
//   - e: Light event; host, mode and source become tags
func (c *Client) WriteLightCommand(e fleet.LightEvent) {
	if !c.IsConnected() {
		return
	}

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementLightCommand,
		map[string]string{
			"host":   e.Host,
			"mode":   e.ModeName,
			"source": e.Source,
		},
		map[string]any{
			"light_status": e.State,
			"failed":       e.Error != "",
		},
		at,
	))
}

// ScanCompleted implements fleet.Observer.
func (c *Client) ScanCompleted(_ context.Context, s fleet.Summary) {
	c.WriteFleetScan(s)
}

// LightChanged implements fleet.Observer.
func (c *Client) LightChanged(_ context.Context, e fleet.LightEvent) {
	c.WriteLightCommand(e)
}
