// Package mqtt provides the MQTT client used as rfcoord's outbound signal
// bus.
//
// The coordinator publishes cross-cutting notifications here: new entities
// per platform category, per-device "updated" signals, and fan parameter
// updates. Other services (dashboards, recorders, automations) subscribe;
// rfcoord itself only publishes, apart from its own status topic.
//
// The client wraps paho.mqtt.golang with connection management, automatic
// re-subscription after reconnect, Last Will and Testament on
// rfcoord/system/status, and panic-safe handler dispatch.
//
// All methods are safe for concurrent use from multiple goroutines.
package mqtt
