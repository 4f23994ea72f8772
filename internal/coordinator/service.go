package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// bindConfirmDelay is how long the bind offer is left on the air before
// the confirm is cast. The accepting device answers within this window.
const bindConfirmDelay = time.Second

// GetFanParam handles the get_fan_param service call.
func (c *Coordinator) GetFanParam(ctx context.Context, req *ParamRequest) error {
	device, err := c.resolver.Resolve(ctx, &req.CallTarget)
	if err != nil {
		return err
	}
	return c.fanParams.GetParameter(ctx, device, req.ParamID, req.FromID)
}

// SetFanParam handles the set_fan_param service call.
func (c *Coordinator) SetFanParam(ctx context.Context, req *SetParamRequest) error {
	device, err := c.resolver.Resolve(ctx, &req.CallTarget)
	if err != nil {
		return err
	}
	return c.fanParams.SetParameter(ctx, device, req.ParamID, req.Value, req.FromID)
}

// UpdateFanParams handles the update_fan_params service call: a full
// catalog walk with the configured inter-request delay. Callers should
// expect it to take seconds, not milliseconds.
func (c *Coordinator) UpdateFanParams(ctx context.Context, req *ParamRequest) error {
	device, err := c.resolver.Resolve(ctx, &req.CallTarget)
	if err != nil {
		return err
	}
	return c.fanParams.UpdateAllParameters(ctx, device, req.FromID)
}

// BindDevice handles the bind_device service call: cast a bind offer on
// behalf of the device, wait out the accept window, then cast the
// confirm. Which fan accepts the offer is the fan's decision; the call
// only puts the handshake on the air.
func (c *Coordinator) BindDevice(ctx context.Context, req *BindRequest) error {
	device, err := ramses.ParseDeviceID(req.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if len(req.Offer) == 0 {
		return fmt.Errorf("%w: bind offer must not be empty", ErrValidation)
	}

	offer, err := bindPayload(device, req.Offer)
	if err != nil {
		return err
	}
	if err := c.sendAnnouncement(ctx, device, offer); err != nil {
		return err
	}

	if len(req.Confirm) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bindConfirmDelay):
		}

		confirm, err := bindPayload(device, req.Confirm)
		if err != nil {
			return err
		}
		if err := c.sendAnnouncement(ctx, device, confirm); err != nil {
			return err
		}
	}

	c.logger.Info("bind cast complete", "device_id", string(device))
	return nil
}

// SendPacket handles the send_packet service call: an arbitrary command
// transmitted without interpretation.
func (c *Coordinator) SendPacket(ctx context.Context, req *SendPacketRequest) error {
	device, err := ramses.ParseDeviceID(req.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	src := c.gw.OwnID()
	if req.FromID != "" {
		src, err = ramses.ParseDeviceID(req.FromID)
		if err != nil {
			return fmt.Errorf("%w: from id: %w", ErrValidation, err)
		}
	}
	if !src.Valid() {
		return fmt.Errorf("%w: no from id and no gateway identity", ErrNoSourceDevice)
	}

	cmd, err := ramses.BuildCommand(req.Verb, req.Code, src, device, strings.ToUpper(req.Payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	cmd.FixSentinelAddrs(c.gw.OwnID())
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := c.gw.SendCommand(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

// ForceUpdate handles the force_update service call: an immediate
// discovery pass. Returns ErrBusy when a pass is already running.
func (c *Coordinator) ForceUpdate(ctx context.Context) error {
	return c.runDiscovery(ctx)
}

// sendAnnouncement casts an I|1FC9 with the announcement address layout:
// the device occupies both the source and the third address slot.
func (c *Coordinator) sendAnnouncement(ctx context.Context, device ramses.DeviceID, payload string) error {
	cmd := &ramses.Command{
		Verb:    ramses.VerbI,
		Code:    ramses.CodeBind,
		Addrs:   [3]ramses.DeviceID{device, ramses.NulDeviceID, device},
		Payload: payload,
	}
	if err := c.gw.SendCommand(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

// bindPayload builds a 1FC9 payload from a code map: one segment of
// zone-index, code and the device id with the colon stripped, per code,
// in sorted order for a stable frame.
func bindPayload(device ramses.DeviceID, codes map[string]string) (string, error) {
	sorted := make([]string, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, strings.ToUpper(code))
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, code := range sorted {
		if !ramses.ValidCode(code) {
			return "", fmt.Errorf("%w: bind code %q", ErrValidation, code)
		}
		idx := codes[code]
		if idx == "" {
			idx = "00"
		}
		b.WriteString(idx)
		b.WriteString(code)
		b.WriteString(device.TypePrefix())
		b.WriteString(device.Serial())
	}
	return b.String(), nil
}
