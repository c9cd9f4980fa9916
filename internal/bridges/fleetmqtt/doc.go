// Package fleetmqtt bridges the fleet service and an MQTT broker.
//
// Outbound, every light change and fleet scan is published as an event:
//
//	minergate/event/light_changed
//	minergate/event/fleet_scanned
//
// Inbound, a message {"mode":"toggle"} on minergate/command/light/{host}
// runs the light command against that miner. The outcome goes to
// minergate/light/{host}/state as
// {"id":…,"host":…,"mode":…,"light_status":…,"error":…}.
package fleetmqtt
