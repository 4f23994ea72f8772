package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quietmesh/rfcoord/internal/infrastructure/config"
	"github.com/quietmesh/rfcoord/internal/ramses"
	"github.com/quietmesh/rfcoord/internal/storage"
)

// StateStore persists the coordinator state blob.
type StateStore interface {
	Load(ctx context.Context) (*storage.Blob, error)
	Save(ctx context.Context, blob *storage.Blob) error
}

// RegistryClient is the registry surface the coordinator consumes.
type RegistryClient interface {
	Registrar
	Directory
}

// HistoryWriter records parameter updates. Writes must never block or
// fail coordination; a nil writer disables history entirely.
type HistoryWriter interface {
	WriteParamUpdate(deviceID, paramID, value string)
}

// Coordinator owns the integration lifecycle and composes schema
// reconciliation, packet cache filtering, discovery and the fan
// parameter protocol. All mutable state is guarded by one coarse mutex;
// gateway events arrive on the gateway's goroutine and service calls on
// API goroutines.
type Coordinator struct {
	cfg     *config.Config
	gw      ramses.Gateway
	store   StateStore
	reg     RegistryClient
	bus     Publisher
	history HistoryWriter
	logger  Logger

	tracker   *RequestTracker
	fanParams *FanParams
	discovery *Discovery
	resolver  *Resolver

	mu      sync.Mutex
	remotes map[ramses.DeviceID]ramses.DeviceID

	// schema is the schema the gateway was started with, kept only for
	// persistence until the gateway reports its own grown schema.
	schema ramses.Schema

	// discoveryInFlight guards against overlapping discovery passes. A
	// tick that lands during a running pass is skipped, never queued.
	discoveryInFlight atomic.Bool

	runCtx     context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	unloadOnce sync.Once
}

// New wires a coordinator. history may be nil.
func New(
	cfg *config.Config,
	gw ramses.Gateway,
	store StateStore,
	reg RegistryClient,
	bus Publisher,
	history HistoryWriter,
	logger Logger,
) *Coordinator {
	if logger == nil {
		logger = noopLogger{}
	}

	c := &Coordinator{
		cfg:     cfg,
		gw:      gw,
		store:   store,
		reg:     reg,
		bus:     bus,
		history: history,
		logger:  logger,
		tracker: NewRequestTracker(),
		remotes: make(map[ramses.DeviceID]ramses.DeviceID),
	}

	c.fanParams = NewFanParams(
		gw,
		c.tracker,
		c.boundRemote,
		cfg.GetRequestTimeout(),
		cfg.GetParamDelay(),
		logger,
	)
	c.discovery = NewDiscovery(gw, reg, bus, logger)
	c.resolver = NewResolver(reg, logger)

	return c
}

// Setup loads persisted state, reconciles the schema, filters the packet
// cache and starts the gateway. A schema that fails to construct a
// usable client falls back from merged to declared-only exactly once;
// only a declared-only failure surfaces as ErrSchema.
func (c *Coordinator) Setup(ctx context.Context) error {
	blob := c.loadState(ctx)

	declared := ramses.Schema(c.cfg.Schema.Declared)
	merged := MergeSchemas(declared, blob.ClientState.Schema)
	usedCached := merged != nil && len(blob.ClientState.Schema) > 0
	if merged == nil {
		c.logger.Warn("cached schema has no valid superset relation with declared schema, using declared only")
		merged = declared.DeepCopy()
	}

	if ok, reason := IsMinimal(declared); !ok {
		c.logger.Warn("declared schema is not minimal", "reason", reason)
	}

	c.loadRemotes(blob)

	filtered := FilterCachedPackets(
		blob.ClientState.Packets,
		time.Now(),
		c.cfg.GetPacketMaxAge(),
		c.knownList(merged),
		c.cfg.Schema.EnforceKnownList,
	)
	c.logger.Info("packet cache filtered",
		"total", len(blob.ClientState.Packets),
		"kept", len(filtered),
	)

	c.gw.SetOnEvent(c.handleEvent)

	err := c.gw.Start(ctx, merged, filtered)
	if errors.Is(err, ramses.ErrInvalidSchema) && usedCached {
		c.logger.Warn("merged schema rejected by gateway, retrying with declared schema", "error", err)
		merged = declared.DeepCopy()
		err = c.gw.Start(ctx, merged, filtered)
	}
	if err != nil {
		switch {
		case errors.Is(err, ramses.ErrInvalidSchema):
			return fmt.Errorf("%w: %w", ErrSchema, err)
		case errors.Is(err, ramses.ErrInterfaceUnavailable):
			return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		default:
			return fmt.Errorf("%w: starting gateway: %w", ErrTransport, err)
		}
	}

	c.mu.Lock()
	c.schema = merged
	c.mu.Unlock()

	return nil
}

// Start runs the initial discovery pass and launches the periodic
// discovery and state-save loops. Call after Setup.
func (c *Coordinator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.runCtx = runCtx
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.runDiscovery(ctx); err != nil && !errors.Is(err, ErrBusy) {
		c.logger.Error("initial discovery failed", "error", err)
	}

	c.wg.Add(2)
	go c.discoveryLoop(runCtx)
	go c.saveLoop(runCtx)

	return nil
}

// Unload shuts the coordinator down: gateway stopped, timers cancelled,
// state flushed exactly once. Safe to call more than once.
//
// The gateway is stopped before the wait group is drained: events keep
// arriving until Stop returns and every event may add a tracked worker,
// so draining first would race the add against the wait.
func (c *Coordinator) Unload(ctx context.Context) error {
	var err error
	c.unloadOnce.Do(func() {
		if stopErr := c.gw.Stop(); stopErr != nil {
			c.logger.Error("stopping gateway", "error", stopErr)
			err = fmt.Errorf("%w: stopping gateway: %w", ErrTransport, stopErr)
		}

		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.wg.Wait()

		c.tracker.CancelAll()

		if saveErr := c.saveState(ctx); saveErr != nil {
			c.logger.Error("final state save failed", "error", saveErr)
			if err == nil {
				err = saveErr
			}
		}
	})
	return err
}

// discoveryLoop runs discovery on the configured interval until cancelled.
func (c *Coordinator) discoveryLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.GetDiscoveryInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.runDiscovery(ctx); err != nil && !errors.Is(err, ErrBusy) {
				c.logger.Error("discovery pass failed", "error", err)
			}
		}
	}
}

// saveLoop flushes state on the configured interval until cancelled.
func (c *Coordinator) saveLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.GetSaveInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.saveState(ctx); err != nil {
				c.logger.Error("periodic state save failed", "error", err)
			}
		}
	}
}

// runDiscovery executes one discovery pass under the in-flight guard.
func (c *Coordinator) runDiscovery(ctx context.Context) error {
	if !c.discoveryInFlight.CompareAndSwap(false, true) {
		c.logger.Debug("discovery tick skipped, pass already running")
		return ErrBusy
	}
	defer c.discoveryInFlight.Store(false)

	c.mu.Lock()
	result, err := c.discovery.Reconcile(ctx)
	for _, fan := range result.InitializedFans {
		c.discovery.AnnounceFanParams(fan)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	// Bulk parameter reads take seconds per fan; keep them off the
	// discovery path.
	for _, fan := range result.InitializedFans {
		c.spawnBulkUpdate(ctx, fan)
	}

	if result.NewEntities {
		if err := c.saveState(ctx); err != nil {
			c.logger.Error("state save after discovery failed", "error", err)
		}
	}
	return nil
}

// handleEvent is the single gateway event callback. It runs on the
// gateway's goroutine.
func (c *Coordinator) handleEvent(ev ramses.Event) {
	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	switch ev.Type {
	case ramses.EventDeviceSeen:
		c.mu.Lock()
		first := c.discovery.FanSeen(ev.Device)
		if first {
			c.discovery.AnnounceFanParams(ev.Device)
		}
		c.mu.Unlock()

		if first {
			c.logger.Info("fan initialised by first inbound message", "device_id", string(ev.Device))
			c.spawnBulkUpdate(ctx, ev.Device)
		}

	case ramses.EventParamUpdated:
		c.tracker.Resolve(ev.Device, ev.ParamID, ev.Value)

		if err := c.bus.ParamUpdated(ev.Device, ev.ParamID, ev.Value); err != nil {
			c.logger.Warn("param updated signal failed",
				"device_id", string(ev.Device), "param_id", ev.ParamID, "error", err)
		}
		if c.history != nil {
			c.history.WriteParamUpdate(string(ev.Device), ev.ParamID, ev.Value)
		}
	}
}

// spawnBulkUpdate runs updateAllParameters in the background, tracked by
// the coordinator's wait group so Unload drains it.
func (c *Coordinator) spawnBulkUpdate(ctx context.Context, fan ramses.DeviceID) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.fanParams.UpdateAllParameters(ctx, fan, ""); err != nil {
			c.logger.Warn("bulk parameter update aborted",
				"device_id", string(fan), "error", err)
		}
	}()
}

// loadState reads the persisted blob, degrading to an empty one when
// nothing was saved yet or the blob is corrupt.
func (c *Coordinator) loadState(ctx context.Context) *storage.Blob {
	blob, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.logger.Info("no persisted state, starting fresh")
	case errors.Is(err, storage.ErrCorrupt):
		c.logger.Warn("persisted state corrupt, starting fresh", "error", err)
	case err != nil:
		c.logger.Error("loading persisted state failed, starting fresh", "error", err)
	default:
		return blob
	}
	return &storage.Blob{
		ClientState: storage.ClientState{Packets: make(map[string]string)},
		Remotes:     make(map[string]string),
	}
}

// saveState snapshots the gateway state and the bindings and persists
// them as one blob.
func (c *Coordinator) saveState(ctx context.Context) error {
	schema, packets, err := c.gw.State(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading gateway state: %w", ErrTransport, err)
	}

	c.mu.Lock()
	if len(schema) == 0 {
		schema = c.schema
	}
	remotes := make(map[string]string, len(c.remotes))
	for fan, remote := range c.remotes {
		remotes[string(fan)] = string(remote)
	}
	c.mu.Unlock()

	blob := &storage.Blob{
		ClientState: storage.ClientState{Schema: schema, Packets: packets},
		Remotes:     remotes,
	}
	if err := c.store.Save(ctx, blob); err != nil {
		return err
	}

	c.logger.Debug("state saved", "packets", len(packets))
	return nil
}

// loadRemotes seeds the fan-to-remote bindings from the declared schema
// and the persisted blob. Declared bindings win.
func (c *Coordinator) loadRemotes(blob *storage.Blob) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for fan, remote := range blob.Remotes {
		c.setRemoteLocked(fan, remote, "persisted")
	}
	for fan, remote := range c.cfg.Schema.Remotes {
		c.setRemoteLocked(fan, remote, "declared")
	}
}

func (c *Coordinator) setRemoteLocked(fan, remote, source string) {
	fanID, err := ramses.ParseDeviceID(fan)
	if err != nil {
		c.logger.Warn("ignoring binding with bad fan id", "fan", fan, "source", source)
		return
	}
	remoteID, err := ramses.ParseDeviceID(remote)
	if err != nil {
		c.logger.Warn("ignoring binding with bad remote id", "remote", remote, "source", source)
		return
	}
	c.remotes[fanID] = remoteID
}

// boundRemote is the FanParams source lookup.
func (c *Coordinator) boundRemote(fan ramses.DeviceID) (ramses.DeviceID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remote, ok := c.remotes[fan]
	return remote, ok
}

// knownList collects the allow-listed device ids for packet replay from
// the configured known list and the schema's known_list key.
func (c *Coordinator) knownList(schema ramses.Schema) map[string]bool {
	known := make(map[string]bool)
	for _, id := range c.cfg.Schema.KnownList {
		if parsed, err := ramses.ParseDeviceID(id); err == nil {
			known[string(parsed)] = true
		}
	}
	if raw, ok := asMap(schema[ramses.SchemaKeyKnownList]); ok {
		for id := range raw {
			if parsed, err := ramses.ParseDeviceID(id); err == nil {
				known[string(parsed)] = true
			}
		}
	}
	return known
}
