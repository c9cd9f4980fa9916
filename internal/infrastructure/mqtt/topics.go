package mqtt

import "strings"

// Topic roots.
const (
	TopicPrefix       = "minergate"
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Event names published under minergate/event/.
const (
	EventLightChanged = "light_changed"
	EventFleetScanned = "fleet_scanned"
)

// Topics builds the gateway's MQTT topic names.
//
//	minergate/system/status               retained online/offline status
//	minergate/event/{event}               gateway events
//	minergate/command/light/{host}        inbound light commands
//	minergate/light/{host}/state          light command outcomes
type Topics struct{}

// SystemStatus returns minergate/system/status.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Event returns the topic for a gateway event, e.g. minergate/event/light_changed.
func (Topics) Event(name string) string {
	return TopicPrefix + "/event/" + name
}

// LightCommand returns the command topic for one miner.
func (Topics) LightCommand(host string) string {
	return TopicPrefix + "/command/light/" + host
}

// LightState returns the topic carrying a miner's light command outcome.
func (Topics) LightState(host string) string {
	return TopicPrefix + "/light/" + host + "/state"
}

// AllLightCommands matches every light command topic.
func (Topics) AllLightCommands() string {
	return TopicPrefix + "/command/light/+"
}

// AllEvents matches every gateway event.
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/+"
}

// LightCommandHost extracts the host from a light command topic.
func (Topics) LightCommandHost(topic string) (string, bool) {
	host, ok := strings.CutPrefix(topic, TopicPrefix+"/command/light/")
	if !ok || host == "" || strings.Contains(host, "/") {
		return "", false
	}
	return host, true
}
