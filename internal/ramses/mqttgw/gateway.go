package mqttgw

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quietmesh/rfcoord/internal/infrastructure/config"
	"github.com/quietmesh/rfcoord/internal/infrastructure/mqtt"
	"github.com/quietmesh/rfcoord/internal/ramses"
)

// maxPacketLog bounds the in-memory packet log. When the cap is hit the
// lexicographically smallest timestamp key is evicted; RFC 3339 keys
// sort chronologically so this drops the oldest packet.
const maxPacketLog = 5000

// Broker is the MQTT surface the gateway needs; *mqtt.Client satisfies it.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the logging surface this package consumes.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Gateway is the MQTT-bridged ramses.Gateway implementation.
type Gateway struct {
	broker         Broker
	topicRoot      string
	ownID          ramses.DeviceID
	disableSending bool
	logger         Logger

	mu      sync.Mutex
	started bool
	schema  ramses.Schema
	packets map[string]string
	model   *model
	onEvent func(ramses.Event)
}

// New builds a gateway over the given broker. The gateway's own device
// id comes from cfg.OwnID or, failing that, the last segment of the
// topic root.
func New(cfg config.GatewayConfig, broker Broker, logger Logger) *Gateway {
	if logger == nil {
		logger = noopLogger{}
	}
	g := &Gateway{
		broker:         broker,
		topicRoot:      strings.TrimSuffix(cfg.TopicRoot, "/"),
		disableSending: cfg.DisableSending,
		logger:         logger,
		packets:        make(map[string]string),
		model:          newModel(),
	}
	g.ownID = deriveOwnID(cfg)
	return g
}

// deriveOwnID resolves the gateway's identity: an explicit override
// wins, otherwise the trailing topic segment when it parses as an id.
func deriveOwnID(cfg config.GatewayConfig) ramses.DeviceID {
	if cfg.OwnID != "" {
		if id, err := ramses.ParseDeviceID(cfg.OwnID); err == nil {
			return id
		}
		return ""
	}
	segments := strings.Split(strings.TrimSuffix(cfg.TopicRoot, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	id, err := ramses.ParseDeviceID(segments[len(segments)-1])
	if err != nil {
		return ""
	}
	return id
}

func (g *Gateway) rxTopic() string { return g.topicRoot + "/rx" }
func (g *Gateway) txTopic() string { return g.topicRoot + "/tx" }

// Start validates the schema, seeds the live model, replays the cached
// packets and subscribes to the firmware's rx stream.
func (g *Gateway) Start(ctx context.Context, schema ramses.Schema, cachedPackets map[string]string) error {
	if g.topicRoot == "" || !g.ownID.Valid() {
		return fmt.Errorf("%w: topic root %q gives no usable gateway identity",
			ramses.ErrInterfaceUnavailable, g.topicRoot)
	}
	if err := validateSchema(schema); err != nil {
		return err
	}

	g.mu.Lock()
	g.started = true
	g.schema = schema.DeepCopy()
	g.model = newModel()
	g.model.seedFromSchema(g.schema)
	g.mu.Unlock()

	for ts, line := range cachedPackets {
		g.ingest(line, ts)
	}

	if err := g.broker.Subscribe(g.rxTopic(), g.handleRx); err != nil {
		g.mu.Lock()
		g.started = false
		g.mu.Unlock()
		return fmt.Errorf("mqttgw: subscribing to %s: %w", g.rxTopic(), err)
	}

	g.logger.Info("gateway started",
		"topic_root", g.topicRoot,
		"own_id", string(g.ownID),
		"replayed", len(cachedPackets),
	)
	return nil
}

// validateSchema checks that every top-level key is either a reserved
// list or a device id. Anything else is a schema the firmware side
// cannot represent.
func validateSchema(schema ramses.Schema) error {
	for key := range schema {
		if key == ramses.SchemaKeyBlockList || key == ramses.SchemaKeyKnownList {
			continue
		}
		if _, err := ramses.ParseDeviceID(key); err != nil {
			return fmt.Errorf("%w: top-level key %q", ramses.ErrInvalidSchema, key)
		}
	}
	return nil
}

// Stop unsubscribes from the rx stream. Safe to call more than once.
func (g *Gateway) Stop() error {
	g.mu.Lock()
	started := g.started
	g.started = false
	g.mu.Unlock()
	if !started {
		return nil
	}
	if err := g.broker.Unsubscribe(g.rxTopic()); err != nil {
		return fmt.Errorf("mqttgw: unsubscribing: %w", err)
	}
	return nil
}

// State snapshots the current schema and packet log for persistence.
func (g *Gateway) State(_ context.Context) (ramses.Schema, map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	packets := make(map[string]string, len(g.packets))
	for ts, line := range g.packets {
		packets[ts] = line
	}
	return g.schema.DeepCopy(), packets, nil
}

// SendCommand publishes the command's frame to the firmware's tx topic.
// In listen-only mode the command is logged and dropped.
func (g *Gateway) SendCommand(ctx context.Context, cmd *ramses.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.disableSending {
		g.logger.Warn("sending disabled, dropping command", "frame", cmd.Frame())
		return nil
	}

	payload, err := json.Marshal(txMessage{Msg: cmd.Frame()})
	if err != nil {
		return fmt.Errorf("mqttgw: encoding command: %w", err)
	}
	if err := g.broker.Publish(g.txTopic(), payload); err != nil {
		return fmt.Errorf("mqttgw: publishing command: %w", err)
	}
	g.logger.Debug("command sent", "frame", cmd.Frame())
	return nil
}

// SetOnEvent registers the event handler. Must be called before Start.
func (g *Gateway) SetOnEvent(fn func(ramses.Event)) {
	g.mu.Lock()
	g.onEvent = fn
	g.mu.Unlock()
}

// Systems snapshots the live model's systems in discovery order.
func (g *Gateway) Systems() []ramses.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model.snapshot(ramses.KindSystem)
}

// Zones snapshots the live model's zones in discovery order.
func (g *Gateway) Zones() []ramses.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model.snapshot(ramses.KindZone)
}

// DhwZones snapshots the live model's stored-hot-water zones.
func (g *Gateway) DhwZones() []ramses.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model.snapshot(ramses.KindDhw)
}

// Devices snapshots the live model's plain devices in discovery order.
func (g *Gateway) Devices() []ramses.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model.snapshot(ramses.KindDevice)
}

// OwnID returns the gateway's own device identifier.
func (g *Gateway) OwnID() ramses.DeviceID { return g.ownID }

// handleRx is the broker callback for the firmware's rx stream.
func (g *Gateway) handleRx(_ string, payload []byte) error {
	line, ts := decodeRx(payload)
	if line == "" {
		return nil
	}
	g.ingest(line, ts)
	return nil
}

// ingest decodes one frame line, records it in the packet log, updates
// the live model and fires events. Undecodable lines are logged and
// dropped; a flaky RF medium produces them routinely.
func (g *Gateway) ingest(line, ts string) {
	f, err := parseFrame(line)
	if err != nil {
		g.logger.Debug("dropping undecodable frame", "error", err)
		return
	}
	if ts == "" {
		ts = time.Now().Format(time.RFC3339Nano)
	}

	var events []ramses.Event

	g.mu.Lock()
	g.packets[ts] = line
	g.prunePacketsLocked()

	src := f.src()
	if src.Valid() && src != g.ownID {
		if seen := g.markSeenLocked(src, f); seen {
			events = append(events, ramses.Event{Type: ramses.EventDeviceSeen, Device: src})
		}
	}
	if ev, ok := paramUpdateEvent(f); ok {
		events = append(events, ev)
	}
	onEvent := g.onEvent
	g.mu.Unlock()

	if onEvent == nil {
		return
	}
	for _, ev := range events {
		onEvent(ev)
	}
}

// markSeenLocked updates the model for an inbound frame from src and
// reports whether this was the device's first decoded message. Newly
// seen devices are also appended to the schema's known list so the
// persisted schema grows with observed traffic.
func (g *Gateway) markSeenLocked(src ramses.DeviceID, f *frame) bool {
	e := g.model.ensure(src, kindForPrefix(src))
	if e.Class == "" {
		e.Class = classForFrame(src, f)
	}

	first := !e.Initialized
	e.Initialized = true
	if first {
		g.recordKnownLocked(src)
	}
	return first
}

// recordKnownLocked adds src under the schema's known_list key.
func (g *Gateway) recordKnownLocked(src ramses.DeviceID) {
	known, ok := toMap(g.schema[ramses.SchemaKeyKnownList])
	if !ok {
		known = make(map[string]any)
		g.schema[ramses.SchemaKeyKnownList] = known
	}
	if _, exists := known[string(src)]; !exists {
		known[string(src)] = map[string]any{}
	}
}

// prunePacketsLocked evicts the oldest log entry once the cap is hit.
func (g *Gateway) prunePacketsLocked() {
	for len(g.packets) > maxPacketLog {
		oldest := ""
		for ts := range g.packets {
			if oldest == "" || ts < oldest {
				oldest = ts
			}
		}
		delete(g.packets, oldest)
	}
}

// paramUpdateEvent recognises fan parameter responses: a 2411 reply or
// report whose payload carries a parameter id and value.
func paramUpdateEvent(f *frame) (ramses.Event, bool) {
	if f.code != ramses.CodeFanParam {
		return ramses.Event{}, false
	}
	if f.verb != ramses.VerbRP && f.verb != ramses.VerbI {
		return ramses.Event{}, false
	}
	// Layout: 4-char header, 2-char parameter id, value.
	if len(f.payload) <= 6 {
		return ramses.Event{}, false
	}
	return ramses.Event{
		Type:    ramses.EventParamUpdated,
		Device:  f.src(),
		ParamID: f.payload[4:6],
		Value:   f.payload[6:],
	}, true
}

// kindForPrefix classifies a device id seen in traffic. Controllers
// surface as systems; everything else is a plain device until the
// declared schema says otherwise.
func kindForPrefix(id ramses.DeviceID) ramses.EntityKind {
	if id.TypePrefix() == "01" {
		return ramses.KindSystem
	}
	return ramses.KindDevice
}

// classForFrame infers a device class from the id's type prefix and the
// message code. Fan state reports pin the sender down as a fan.
func classForFrame(id ramses.DeviceID, f *frame) string {
	if f.code == "31D9" || f.code == "31DA" || (f.code == ramses.CodeFanParam && f.verb == ramses.VerbRP) {
		return ramses.ClassFan
	}
	switch id.TypePrefix() {
	case "01":
		return ramses.ClassController
	case "18":
		return ramses.ClassGateway
	case "29", "37":
		return ramses.ClassRemote
	case "20", "30", "32":
		return ramses.ClassFan
	}
	return ""
}
