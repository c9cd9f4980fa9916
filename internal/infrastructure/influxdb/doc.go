// Package influxdb writes gateway statistics to InfluxDB v2.
//
// The gateway stores no telemetry history. It records one fleet_scan point
// per scan (host counts by outcome, duration) and one light_command point
// per executed light operation. Client implements fleet.Observer so it can
// be attached to the fleet service directly.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // statistics off
//	}
//	defer client.Close()
package influxdb
