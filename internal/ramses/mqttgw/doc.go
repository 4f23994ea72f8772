// Package mqttgw implements the RF gateway client over an MQTT-bridged
// RAMSES-ESP style interface.
//
// The firmware publishes every received RF frame as JSON on
// <topic_root>/rx and transmits frames posted to <topic_root>/tx. This
// package subscribes to the rx stream, maintains the live entity model
// and the packet log, and surfaces decoded activity as ramses.Events.
package mqttgw
