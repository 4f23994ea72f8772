package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// ParamCatalog is the ordered set of fan parameter ids walked by a bulk
// update. Order matters: values early in the list feed the display name
// of entities created from later ones.
var ParamCatalog = []string{
	"31", "32", "33", "34", "35", "36",
	"3F", "40", "41", "42",
	"4E", "4F", "50", "51", "52", "54",
	"75", "95", "96", "97", "98",
}

// CommandSender is the slice of the gateway the parameter protocol needs.
type CommandSender interface {
	SendCommand(ctx context.Context, cmd *ramses.Command) error
	OwnID() ramses.DeviceID
}

// FanParams builds and sends fan parameter commands and drives the
// request tracker. The transport gives no delivery guarantee: a request
// is fire-and-wait, resolved by a later inbound update or cleared by
// timeout.
type FanParams struct {
	sender  CommandSender
	tracker *RequestTracker

	// boundRemote returns the remote bound to a fan, if one is configured.
	boundRemote func(fan ramses.DeviceID) (ramses.DeviceID, bool)

	timeout time.Duration
	delay   time.Duration
	logger  Logger
}

// NewFanParams wires the parameter protocol. timeout bounds how long a
// request stays pending; delay spaces the requests of a bulk update to
// avoid saturating the RF medium.
func NewFanParams(
	sender CommandSender,
	tracker *RequestTracker,
	boundRemote func(ramses.DeviceID) (ramses.DeviceID, bool),
	timeout, delay time.Duration,
	logger Logger,
) *FanParams {
	if logger == nil {
		logger = noopLogger{}
	}
	return &FanParams{
		sender:      sender,
		tracker:     tracker,
		boundRemote: boundRemote,
		timeout:     timeout,
		delay:       delay,
		logger:      logger,
	}
}

// GetParameter issues a read for one parameter. The pair is marked
// pending before the send and cleared again on every failure path.
func (f *FanParams) GetParameter(ctx context.Context, device ramses.DeviceID, paramID, fromID string) error {
	param, err := normalizeParamID(paramID)
	if err != nil {
		return err
	}
	src, err := f.resolveSource(device, fromID)
	if err != nil {
		return err
	}

	return f.send(ctx, device, param, src, ramses.VerbRQ, readPayload(param))
}

// SetParameter issues a write for one parameter. value is the raw
// hex-encoded parameter payload.
func (f *FanParams) SetParameter(ctx context.Context, device ramses.DeviceID, paramID, value, fromID string) error {
	param, err := normalizeParamID(paramID)
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("%w: set of parameter %s on %s", ErrMissingValue, param, device)
	}
	src, err := f.resolveSource(device, fromID)
	if err != nil {
		return err
	}

	return f.send(ctx, device, param, src, ramses.VerbW, writePayload(param, value))
}

// UpdateAllParameters reads every parameter in the catalog with the
// configured inter-request delay. A failed read is logged and skipped;
// the walk itself never fails, only context cancellation cuts it short.
func (f *FanParams) UpdateAllParameters(ctx context.Context, device ramses.DeviceID, fromID string) error {
	for i, param := range ParamCatalog {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.delay):
			}
		}

		if err := f.GetParameter(ctx, device, param, fromID); err != nil {
			f.logger.Warn("bulk parameter read failed, continuing",
				"device_id", string(device),
				"param_id", param,
				"error", err,
			)
		}
	}
	return nil
}

// send marks the pair pending, builds the command and transmits it.
// Clearing the pending flag on every post-mark failure path is an
// invariant, not an optimisation.
func (f *FanParams) send(ctx context.Context, device ramses.DeviceID, param string, src ramses.DeviceID, verb, payload string) (err error) {
	f.tracker.MarkPending(device, param)
	defer func() {
		if err != nil {
			f.tracker.Clear(device, param)
		}
	}()

	cmd, err := ramses.BuildCommand(verb, ramses.CodeFanParam, src, device, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	cmd.FixSentinelAddrs(f.sender.OwnID())
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := f.sender.SendCommand(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	f.tracker.ScheduleTimeout(device, param, f.timeout)
	f.logger.Debug("fan parameter command sent",
		"device_id", string(device),
		"param_id", param,
		"verb", strings.TrimSpace(verb),
		"src", string(src),
	)
	return nil
}

// resolveSource picks the "from" identity: an explicit from id, the bound
// remote, then the gateway's own identity.
func (f *FanParams) resolveSource(device ramses.DeviceID, fromID string) (ramses.DeviceID, error) {
	if fromID != "" {
		src, err := ramses.ParseDeviceID(fromID)
		if err != nil {
			return "", fmt.Errorf("%w: from id: %w", ErrValidation, err)
		}
		return src, nil
	}

	if f.boundRemote != nil {
		if remote, ok := f.boundRemote(device); ok && remote.Valid() {
			return remote, nil
		}
	}

	if own := f.sender.OwnID(); own.Valid() {
		return own, nil
	}

	return "", fmt.Errorf("%w: no from id, bound remote or gateway identity for %s", ErrNoSourceDevice, device)
}

// normalizeParamID validates a parameter id: exactly two hex digits,
// canonicalised to upper case.
func normalizeParamID(paramID string) (string, error) {
	param := strings.ToUpper(strings.TrimSpace(paramID))
	if len(param) != 2 || !isHexDigits(param) {
		return "", fmt.Errorf("%w: %q", ErrInvalidParameter, paramID)
	}
	return param, nil
}

func isHexDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// Payload conventions for the 2411 parameter message.
func readPayload(param string) string {
	return "0000" + param
}

func writePayload(param, value string) string {
	return "0000" + param + value
}
