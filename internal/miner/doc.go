// Package miner defines the boundary between the gateway and mining devices.
//
// A Factory resolves a host to a DeviceClient; the cgminer and sim
// subpackages provide implementations. SetLight implements the fault-light
// state machine on top of any DeviceClient:
//
//	client, err := factory.Connect(ctx, "10.0.0.1")
//	on, err := miner.SetLight(ctx, client, miner.LightToggle)
//
// Explicit on/off requests fail when the device refuses them; toggle
// degrades to reporting the unchanged state.
package miner
