package ramses

import (
	"fmt"
	"strings"
)

// Verbs understood by the RF protocol. Single-character verbs are padded to
// two characters on the wire; callers may pass either form to NormalizeVerb.
const (
	VerbI  = " I"
	VerbRQ = "RQ"
	VerbRP = "RP"
	VerbW  = " W"
)

// Message codes the coordinator cares about. Everything else passes through
// untouched.
const (
	// CodeFanParam carries fan parameter reads and writes.
	CodeFanParam = "2411"

	// CodeBind carries bind offers/confirms and device announcements.
	CodeBind = "1FC9"

	// CodePuzzle is the gateway's own trace/beacon code.
	CodePuzzle = "7FFF"
)

// ReplayDenyCodes are message codes that are meaningless to replay from the
// packet cache on startup: announcements and gateway beacons describe a
// moment in time, not device state.
var ReplayDenyCodes = map[string]bool{
	CodeBind:   true,
	CodePuzzle: true,
}

// NormalizeVerb canonicalises a verb to its two-character wire form.
// Fails with ErrInvalidVerb for anything other than I, RQ, RP or W.
func NormalizeVerb(v string) (string, error) {
	switch strings.TrimSpace(strings.ToUpper(v)) {
	case "I":
		return VerbI, nil
	case "RQ":
		return VerbRQ, nil
	case "RP":
		return VerbRP, nil
	case "W":
		return VerbW, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVerb, v)
}

// ValidCode reports whether s is a four-digit hex message code.
func ValidCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isUpperHex(s[i]) {
			return false
		}
	}
	return true
}

// Command is an outbound request: a verb, a message code, a payload and an
// address triple. Slot 0 is always the sender; exactly one of slots 1 and 2
// carries the destination, the other holds the nul filler.
type Command struct {
	Verb    string
	Code    string
	Addrs   [3]DeviceID
	Payload string

	// frame caches the textual representation built by Frame. It must be
	// discarded whenever the address triple is rewritten after construction.
	frame string
}

// BuildCommand assembles a command with the conventional src/dst/nul
// layout without validating the address triple. Callers that may source a
// command from the reserved announcement identity apply FixSentinelAddrs
// before Validate; everyone else wants NewCommand.
func BuildCommand(verb, code string, src, dst DeviceID, payload string) (*Command, error) {
	v, err := NormalizeVerb(verb)
	if err != nil {
		return nil, err
	}
	if !ValidCode(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return &Command{
		Verb:    v,
		Code:    code,
		Addrs:   [3]DeviceID{src, dst, NulDeviceID},
		Payload: payload,
	}, nil
}

// NewCommand builds a command with the conventional src/dst/nul layout and
// validates it.
func NewCommand(verb, code string, src, dst DeviceID, payload string) (*Command, error) {
	cmd, err := BuildCommand(verb, code, src, dst, payload)
	if err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Src returns the sender slot of the address triple.
func (c *Command) Src() DeviceID { return c.Addrs[0] }

// Dst returns whichever non-source slot carries a real address, or the nul
// id if neither does.
func (c *Command) Dst() DeviceID {
	if !c.Addrs[1].IsNul() {
		return c.Addrs[1]
	}
	return c.Addrs[2]
}

// Validate checks the address triple: the sender must be a real device id,
// exactly one of the remaining slots must carry a real id, and a command
// must not address its own sender through slot 1.
func (c *Command) Validate() error {
	if !c.Addrs[0].Valid() {
		return fmt.Errorf("%w: src %q", ErrInvalidAddrSet, c.Addrs[0])
	}
	set1 := !c.Addrs[1].IsNul()
	set2 := !c.Addrs[2].IsNul()
	if set1 == set2 {
		return fmt.Errorf("%w: %v", ErrInvalidAddrSet, c.Addrs)
	}
	if set1 && !c.Addrs[1].Valid() {
		return fmt.Errorf("%w: dst %q", ErrInvalidAddrSet, c.Addrs[1])
	}
	if set2 && !c.Addrs[2].Valid() {
		return fmt.Errorf("%w: dst %q", ErrInvalidAddrSet, c.Addrs[2])
	}
	if set1 && c.Addrs[0] == c.Addrs[1] {
		return fmt.Errorf("%w: src equals dst", ErrInvalidAddrSet)
	}
	return nil
}

// FixSentinelAddrs applies the one narrow wire quirk this package carries:
// a command sourced from the reserved announcement identity and addressed
// to the gateway's own id can arrive with its non-source slots transposed.
// If the triple fails validation in that case, the two non-source slots are
// swapped and the cached frame discarded. Any other command is untouched.
// Apply it between BuildCommand and Validate: the transposed triple never
// passes validation, so a pre-validated command cannot be repaired.
//
// The quirk is interface-specific; do not generalise it. Flagged for
// protocol-owner review.
func (c *Command) FixSentinelAddrs(ownID DeviceID) {
	if c.Addrs[0] != SentinelGateway || c.Dst() != ownID {
		return
	}
	if c.Validate() == nil {
		return
	}
	c.Addrs[1], c.Addrs[2] = c.Addrs[2], c.Addrs[1]
	c.frame = ""
}

// Frame returns the textual wire representation, building and caching it on
// first use.
func (c *Command) Frame() string {
	if c.frame == "" {
		c.frame = fmt.Sprintf("%s --- %s %s %s %s %03d %s",
			c.Verb, c.Addrs[0], c.Addrs[1], c.Addrs[2],
			c.Code, len(c.Payload)/2, c.Payload)
	}
	return c.frame
}
