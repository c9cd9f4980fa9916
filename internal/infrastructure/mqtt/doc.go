// Package mqtt connects the gateway to an MQTT broker.
//
// The gateway publishes a retained online/offline status (with a last will
// for crashes), publishes light and scan events, and listens for light
// commands addressed to individual miners. Topic names come from Topics.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllLightCommands(), 1, handle)
//
// The connection reconnects on its own with backoff between
// reconnect.initial_delay and reconnect.max_delay seconds.
package mqtt
