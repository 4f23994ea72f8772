package mqtt

import "fmt"

// maxPayloadSize limits published payloads to 1MB. Signal payloads are
// small JSON documents; anything larger indicates a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends a message to the given topic at the configured QoS level.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.publish(topic, payload, false)
}

// PublishRetained sends a retained message to the given topic. The broker
// delivers the last retained message to new subscribers immediately.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.publish(topic, payload, true)
}

// PublishString is a convenience wrapper for publishing string payloads.
func (c *Client) PublishString(topic, payload string) error {
	return c.Publish(topic, []byte(payload))
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return fmt.Errorf("%w: topic must not be empty", ErrInvalidTopic)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds limit %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout publishing to %s", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
