package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

func newTestFanParams(gw *mockGateway, boundRemote func(ramses.DeviceID) (ramses.DeviceID, bool)) (*FanParams, *RequestTracker) {
	tracker := NewRequestTracker()
	fp := NewFanParams(gw, tracker, boundRemote, time.Minute, 20*time.Millisecond, nil)
	return fp, tracker
}

func TestGetParameterFallsBackToGatewayIdentity(t *testing.T) {
	gw := newMockGateway("18:000730")
	fp, tracker := newTestFanParams(gw, nil)

	if err := fp.GetParameter(context.Background(), "30:123456", "4E", ""); err != nil {
		t.Fatalf("GetParameter() error = %v", err)
	}

	sent := gw.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("sent %d commands, want 1", len(sent))
	}
	cmd := sent[0]
	if cmd.Src() != "18:000730" {
		t.Errorf("src = %q, want gateway identity", cmd.Src())
	}
	if cmd.Dst() != "30:123456" {
		t.Errorf("dst = %q, want 30:123456", cmd.Dst())
	}
	if cmd.Code != ramses.CodeFanParam || cmd.Verb != ramses.VerbRQ {
		t.Errorf("verb/code = %q/%q, want RQ/2411", cmd.Verb, cmd.Code)
	}

	if !tracker.Pending("30:123456", "4E") {
		t.Error("pair not pending after successful get")
	}

	// A matching update resolves the pair.
	tracker.Resolve("30:123456", "4E", "0A")
	if tracker.State("30:123456", "4E") != StateResolved {
		t.Error("pair not resolved after matching update")
	}
}

func TestGetParameterPrefersBoundRemote(t *testing.T) {
	gw := newMockGateway("18:000730")
	fp, _ := newTestFanParams(gw, func(fan ramses.DeviceID) (ramses.DeviceID, bool) {
		if fan == "32:153289" {
			return "29:123456", true
		}
		return "", false
	})

	if err := fp.GetParameter(context.Background(), "32:153289", "4E", ""); err != nil {
		t.Fatalf("GetParameter() error = %v", err)
	}
	if src := gw.sentCommands()[0].Src(); src != "29:123456" {
		t.Errorf("src = %q, want bound remote", src)
	}
}

func TestGetParameterExplicitFromWins(t *testing.T) {
	gw := newMockGateway("18:000730")
	fp, _ := newTestFanParams(gw, func(ramses.DeviceID) (ramses.DeviceID, bool) {
		return "29:123456", true
	})

	if err := fp.GetParameter(context.Background(), "32:153289", "4E", "37:654321"); err != nil {
		t.Fatalf("GetParameter() error = %v", err)
	}
	if src := gw.sentCommands()[0].Src(); src != "37:654321" {
		t.Errorf("src = %q, want explicit from id", src)
	}
}

func TestGetParameterInvalidParamID(t *testing.T) {
	gw := newMockGateway("18:000730")
	fp, tracker := newTestFanParams(gw, nil)

	for _, bad := range []string{"", "4", "4EF", "GG"} {
		err := fp.GetParameter(context.Background(), "32:153289", bad, "")
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("GetParameter(%q) error = %v, want ErrInvalidParameter", bad, err)
		}
	}
	if len(gw.sentCommands()) != 0 {
		t.Error("command sent despite invalid parameter id")
	}
	if tracker.Pending("32:153289", "4E") {
		t.Error("pending flag set despite validation failure")
	}
}

func TestGetParameterNoSourceDevice(t *testing.T) {
	gw := newMockGateway("") // no gateway identity
	fp, _ := newTestFanParams(gw, nil)

	err := fp.GetParameter(context.Background(), "32:153289", "4E", "")
	if !errors.Is(err, ErrNoSourceDevice) {
		t.Errorf("GetParameter() error = %v, want ErrNoSourceDevice", err)
	}
	if len(gw.sentCommands()) != 0 {
		t.Error("command sent despite missing source")
	}
}

func TestGetParameterTransportFailureClearsPending(t *testing.T) {
	gw := newMockGateway("18:000730")
	gw.sendErrs = []error{ramses.ErrSendFailed}
	fp, tracker := newTestFanParams(gw, nil)

	err := fp.GetParameter(context.Background(), "32:153289", "4E", "")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("GetParameter() error = %v, want ErrTransport", err)
	}
	if tracker.Pending("32:153289", "4E") {
		t.Error("pending flag survived a transport failure")
	}
}

func TestSetParameterRequiresValue(t *testing.T) {
	gw := newMockGateway("18:000730")
	fp, _ := newTestFanParams(gw, nil)

	err := fp.SetParameter(context.Background(), "32:153289", "4E", "", "")
	if !errors.Is(err, ErrMissingValue) {
		t.Errorf("SetParameter() error = %v, want ErrMissingValue", err)
	}
}

func TestSetParameterSendsWrite(t *testing.T) {
	gw := newMockGateway("18:000730")
	fp, tracker := newTestFanParams(gw, nil)

	if err := fp.SetParameter(context.Background(), "32:153289", "4e", "000A", ""); err != nil {
		t.Fatalf("SetParameter() error = %v", err)
	}
	cmd := gw.sentCommands()[0]
	if cmd.Verb != ramses.VerbW {
		t.Errorf("verb = %q, want W", cmd.Verb)
	}
	if cmd.Payload != "00004E000A" {
		t.Errorf("payload = %q", cmd.Payload)
	}
	if !tracker.Pending("32:153289", "4E") {
		t.Error("pair not pending after set")
	}
}

func TestUpdateAllParametersContinuesPastFailures(t *testing.T) {
	saved := ParamCatalog
	ParamCatalog = []string{"31", "4E"}
	defer func() { ParamCatalog = saved }()

	gw := newMockGateway("18:000730")
	gw.sendErrs = []error{ramses.ErrSendFailed, nil} // first send fails
	fp, _ := newTestFanParams(gw, nil)

	if err := fp.UpdateAllParameters(context.Background(), "32:153289", ""); err != nil {
		t.Fatalf("UpdateAllParameters() error = %v", err)
	}

	sent := gw.sentCommands()
	if len(sent) != 2 {
		t.Fatalf("sent %d commands, want 2 despite first failure", len(sent))
	}

	gw.mu.Lock()
	gap := gw.sentAt[1].Sub(gw.sentAt[0])
	gw.mu.Unlock()
	if gap < 20*time.Millisecond {
		t.Errorf("inter-request gap = %v, want at least the configured delay", gap)
	}
}

func TestUpdateAllParametersStopsOnCancel(t *testing.T) {
	saved := ParamCatalog
	ParamCatalog = []string{"31", "4E", "4F"}
	defer func() { ParamCatalog = saved }()

	gw := newMockGateway("18:000730")
	fp, _ := newTestFanParams(gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fp.UpdateAllParameters(ctx, "32:153289", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("UpdateAllParameters() error = %v, want context.Canceled", err)
	}
	if sent := len(gw.sentCommands()); sent > 1 {
		t.Errorf("sent %d commands after cancellation, want at most 1", sent)
	}
}

func TestSentinelOwnIdentityGetIsRepairedAndSent(t *testing.T) {
	// A gateway running as an HGI clone reports the reserved announcement
	// identity as its own id. A parameter read addressed to that identity
	// sources from it too; the transposed-slot repair makes the triple
	// valid instead of the call being rejected unsent.
	gw := newMockGateway(ramses.SentinelGateway)
	fp, _ := newTestFanParams(gw, nil)

	if err := fp.GetParameter(context.Background(), ramses.SentinelGateway, "4E", ""); err != nil {
		t.Fatalf("GetParameter() error = %v", err)
	}
	sent := gw.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("sent %d commands, want 1", len(sent))
	}
	cmd := sent[0]
	if err := cmd.Validate(); err != nil {
		t.Errorf("sent command fails validation: %v", err)
	}
	if cmd.Addrs[1] != ramses.NulDeviceID || cmd.Addrs[2] != ramses.SentinelGateway {
		t.Errorf("addrs = %v, want destination moved to the announcement slot", cmd.Addrs)
	}
}

func TestSentinelAddressSwapOnSend(t *testing.T) {
	// A command sourced from the announcement sentinel and destined for
	// the gateway's own id gets its non-source slots transposed when the
	// triple is invalid; any other command passes through untouched.
	gw := newMockGateway("18:111111")
	fp, _ := newTestFanParams(gw, nil)

	if err := fp.GetParameter(context.Background(), "30:123456", "4E", string(ramses.SentinelGateway)); err != nil {
		t.Fatalf("GetParameter() error = %v", err)
	}
	cmd := gw.sentCommands()[0]
	if err := cmd.Validate(); err != nil {
		t.Errorf("sent command fails validation: %v", err)
	}
}
