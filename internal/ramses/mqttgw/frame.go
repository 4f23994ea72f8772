package mqttgw

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// rxMessage is the JSON envelope the firmware publishes on <root>/rx.
// Older firmware revisions publish the bare frame line instead; both
// forms are accepted.
type rxMessage struct {
	Msg string `json:"msg"`
	TS  string `json:"ts"`
}

// txMessage is the JSON envelope expected on <root>/tx.
type txMessage struct {
	Msg string `json:"msg"`
}

// frame is one decoded RF frame line, e.g.
//
//	045  I --- 18:000730 30:123456 --:------ 31D9 003 00FE00
type frame struct {
	verb    string
	addrs   [3]ramses.DeviceID
	code    string
	payload string
}

// parseFrame splits a frame line into its fields. The line layout is
// fixed-width but whitespace-delimited, so field splitting is enough.
func parseFrame(line string) (*frame, error) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return nil, fmt.Errorf("mqttgw: short frame %q", line)
	}

	verb, err := ramses.NormalizeVerb(fields[1])
	if err != nil {
		return nil, fmt.Errorf("mqttgw: frame %q: %w", line, err)
	}

	code := fields[6]
	if !ramses.ValidCode(code) {
		return nil, fmt.Errorf("mqttgw: frame %q: bad code %q", line, code)
	}

	f := &frame{
		verb: verb,
		code: code,
	}
	for i := 0; i < 3; i++ {
		addr := fields[3+i]
		if addr == string(ramses.NulDeviceID) {
			f.addrs[i] = ramses.NulDeviceID
			continue
		}
		id, err := ramses.ParseDeviceID(addr)
		if err != nil {
			return nil, fmt.Errorf("mqttgw: frame %q: %w", line, err)
		}
		f.addrs[i] = id
	}
	if len(fields) > 8 {
		f.payload = fields[8]
	}
	return f, nil
}

// src returns the originating device of the frame: the first address
// slot, or the last one for announcement-layout frames where slot 0 is
// the nul filler.
func (f *frame) src() ramses.DeviceID {
	if !f.addrs[0].IsNul() {
		return f.addrs[0]
	}
	return f.addrs[2]
}

// decodeRx unpacks an rx payload into a frame line and its timestamp.
// A payload that is not JSON is taken as a bare line with no timestamp.
func decodeRx(payload []byte) (line, ts string) {
	var msg rxMessage
	if err := json.Unmarshal(payload, &msg); err == nil && msg.Msg != "" {
		return msg.Msg, msg.TS
	}
	return strings.TrimSpace(string(payload)), ""
}
