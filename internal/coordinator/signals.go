package coordinator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quietmesh/rfcoord/internal/infrastructure/mqtt"
	"github.com/quietmesh/rfcoord/internal/ramses"
)

// Entity categories announced on the signal bus.
const (
	CategorySystems   = "systems"
	CategoryZones     = "zones"
	CategoryDhw       = "dhw"
	CategoryDevices   = "devices"
	CategoryFanParams = "fan_params"
)

// EntityAnnouncement is the bus-facing handle for one discovered entity.
type EntityAnnouncement struct {
	DeviceID  string   `json:"device_id"`
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	Model     string   `json:"model,omitempty"`
	ViaDevice string   `json:"via_device,omitempty"`
	Params    []string `json:"params,omitempty"`
}

// Publisher is the outbound signal surface the coordinator publishes to.
// Nothing is ever consumed back; the bus is one-way.
type Publisher interface {
	// NewEntities announces newly discovered entities for one category.
	NewEntities(category string, entities []EntityAnnouncement) error

	// DeviceUpdated signals that a device's registry descriptor changed.
	DeviceUpdated(device ramses.DeviceID) error

	// ParamUpdated publishes a fan parameter value change.
	ParamUpdated(device ramses.DeviceID, paramID, value string) error
}

// PublishClient is the slice of the MQTT client the signal bus needs.
type PublishClient interface {
	Publish(topic string, payload []byte) error
}

// SignalBus publishes coordinator signals as JSON over MQTT.
type SignalBus struct {
	client PublishClient
	logger Logger
}

// NewSignalBus creates a signal bus over the given MQTT client.
func NewSignalBus(client PublishClient, logger Logger) *SignalBus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SignalBus{client: client, logger: logger}
}

// NewEntities implements Publisher.
func (b *SignalBus) NewEntities(category string, entities []EntityAnnouncement) error {
	payload, err := json.Marshal(map[string]any{
		"category":  category,
		"entities":  entities,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding new entities signal: %w", err)
	}
	return b.client.Publish(mqtt.Topics{}.NewEntities(category), payload)
}

// DeviceUpdated implements Publisher.
func (b *SignalBus) DeviceUpdated(device ramses.DeviceID) error {
	payload, err := json.Marshal(map[string]any{
		"device_id": string(device),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding device updated signal: %w", err)
	}
	return b.client.Publish(mqtt.Topics{}.DeviceUpdated(string(device)), payload)
}

// ParamUpdated implements Publisher.
func (b *SignalBus) ParamUpdated(device ramses.DeviceID, paramID, value string) error {
	payload, err := json.Marshal(map[string]any{
		"device_id": string(device),
		"param_id":  paramID,
		"value":     value,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding param updated signal: %w", err)
	}
	return b.client.Publish(mqtt.Topics{}.ParamUpdated(string(device)), payload)
}
