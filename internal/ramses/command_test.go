package ramses

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeVerb(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "RQ", want: VerbRQ},
		{in: "rq", want: VerbRQ},
		{in: "I", want: VerbI},
		{in: " I", want: VerbI},
		{in: "W", want: VerbW},
		{in: "RP", want: VerbRP},
		{in: "XX", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeVerb(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidVerb) {
				t.Errorf("NormalizeVerb(%q) error = %v, want ErrInvalidVerb", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeVerb(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeVerb(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewCommand(t *testing.T) {
	cmd, err := NewCommand("RQ", CodeFanParam, "18:000730", "30:123456", "00004E")
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	if cmd.Src() != "18:000730" {
		t.Errorf("Src() = %q", cmd.Src())
	}
	if cmd.Dst() != "30:123456" {
		t.Errorf("Dst() = %q", cmd.Dst())
	}

	frame := cmd.Frame()
	for _, want := range []string{"RQ", "18:000730", "30:123456", "--:------", "2411"} {
		if !strings.Contains(frame, want) {
			t.Errorf("Frame() = %q, missing %q", frame, want)
		}
	}
}

func TestBuildCommandDefersTripleValidation(t *testing.T) {
	// Sourcing a command from the sentinel and addressing it to the same
	// identity builds fine; validation only passes once the fix-up has
	// moved the destination to the announcement slot.
	cmd, err := BuildCommand("RQ", CodeFanParam, SentinelGateway, SentinelGateway, "00004E")
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if err := cmd.Validate(); !errors.Is(err, ErrInvalidAddrSet) {
		t.Fatalf("Validate() before fix-up = %v, want ErrInvalidAddrSet", err)
	}

	cmd.FixSentinelAddrs(SentinelGateway)
	if err := cmd.Validate(); err != nil {
		t.Errorf("Validate() after fix-up = %v, want nil", err)
	}
	if cmd.Addrs[1] != NulDeviceID || cmd.Addrs[2] != SentinelGateway {
		t.Errorf("addrs = %v, want destination in the announcement slot", cmd.Addrs)
	}
}

func TestNewCommandRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		verb    string
		code    string
		src     DeviceID
		dst     DeviceID
		wantErr error
	}{
		{name: "bad verb", verb: "ZZ", code: "2411", src: "18:000730", dst: "30:123456", wantErr: ErrInvalidVerb},
		{name: "bad code", verb: "RQ", code: "24", src: "18:000730", dst: "30:123456", wantErr: ErrInvalidCode},
		{name: "bad src", verb: "RQ", code: "2411", src: "nope", dst: "30:123456", wantErr: ErrInvalidAddrSet},
		{name: "src equals dst", verb: "RQ", code: "2411", src: "30:123456", dst: "30:123456", wantErr: ErrInvalidAddrSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCommand(tt.verb, tt.code, tt.src, tt.dst, "00")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommandValidateAddrTriple(t *testing.T) {
	// Both non-source slots set is never a valid layout.
	cmd := &Command{
		Verb:  VerbI,
		Code:  CodeBind,
		Addrs: [3]DeviceID{"18:000730", "30:123456", "32:654321"},
	}
	if err := cmd.Validate(); !errors.Is(err, ErrInvalidAddrSet) {
		t.Errorf("Validate() = %v, want ErrInvalidAddrSet", err)
	}

	// Destination in slot 2 is a valid layout.
	cmd = &Command{
		Verb:  VerbI,
		Code:  CodeBind,
		Addrs: [3]DeviceID{"18:000730", NulDeviceID, "30:123456"},
	}
	if err := cmd.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestFixSentinelAddrs(t *testing.T) {
	own := DeviceID("18:0AB204")

	// Sentinel-sourced command to our own id with a broken triple:
	// both non-source slots populated. The fix-up swaps them only after
	// validation fails; here it must swap and drop the cached frame.
	cmd := &Command{
		Verb:  VerbI,
		Code:  CodePuzzle,
		Addrs: [3]DeviceID{SentinelGateway, own, "XX"},
	}
	before := cmd.Frame()
	cmd.FixSentinelAddrs(own)
	if cmd.Addrs[1] != "XX" || cmd.Addrs[2] != own {
		t.Errorf("addrs not swapped: %v", cmd.Addrs)
	}
	if cmd.Frame() == before {
		t.Error("cached frame should have been invalidated")
	}

	// A valid sentinel command is untouched.
	cmd, err := NewCommand("I", CodePuzzle, SentinelGateway, own, "00")
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	addrs := cmd.Addrs
	cmd.FixSentinelAddrs(own)
	if cmd.Addrs != addrs {
		t.Errorf("valid command rewritten: %v", cmd.Addrs)
	}

	// A non-sentinel command is untouched regardless of shape.
	cmd = &Command{
		Verb:  VerbI,
		Code:  CodePuzzle,
		Addrs: [3]DeviceID{"30:123456", own, "XX"},
	}
	cmd.FixSentinelAddrs(own)
	if cmd.Addrs[1] != own {
		t.Errorf("non-sentinel command rewritten: %v", cmd.Addrs)
	}
}
