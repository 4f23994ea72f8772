package mqtt

import "fmt"

// Topic prefixes for the rfcoord MQTT hierarchy.
const (
	// TopicPrefix is the base for all rfcoord topics.
	TopicPrefix = "rfcoord"

	// TopicPrefixEvent is the base for coordinator event topics.
	TopicPrefixEvent = "rfcoord/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "rfcoord/system"
)

// Topics provides builders for rfcoord MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// NewEntities returns the per-platform-category topic for newly discovered
// entities. Published at most once per discovery pass per category.
//
// Example: rfcoord/event/new_entities/fan
func (Topics) NewEntities(category string) string {
	return fmt.Sprintf("%s/new_entities/%s", TopicPrefixEvent, category)
}

// DeviceUpdated returns the per-device "updated" signal topic.
//
// Example: rfcoord/event/device/30:123456/updated
func (Topics) DeviceUpdated(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/updated", TopicPrefixEvent, deviceID)
}

// ParamUpdated returns the fan parameter update topic.
// Payload: {"device_id": ..., "param_id": ..., "value": ...}
//
// Example: rfcoord/event/fan_param/30:123456
func (Topics) ParamUpdated(deviceID string) string {
	return fmt.Sprintf("%s/fan_param/%s", TopicPrefixEvent, deviceID)
}

// SystemStatus returns the system status topic carrying online/offline
// payloads, including the Last Will message.
//
// Example: rfcoord/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
