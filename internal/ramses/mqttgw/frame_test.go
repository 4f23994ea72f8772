package mqttgw

import (
	"testing"
)

func TestParseFrame(t *testing.T) {
	f, err := parseFrame("045  I --- 18:000730 30:123456 --:------ 31D9 003 00FE00")
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f.verb != " I" {
		t.Errorf("verb = %q, want padded I", f.verb)
	}
	if f.addrs[0] != "18:000730" || f.addrs[1] != "30:123456" || !f.addrs[2].IsNul() {
		t.Errorf("addrs = %v", f.addrs)
	}
	if f.code != "31D9" || f.payload != "00FE00" {
		t.Errorf("code/payload = %q/%q", f.code, f.payload)
	}
	if f.src() != "18:000730" {
		t.Errorf("src() = %q", f.src())
	}
}

func TestParseFrameAnnouncementLayout(t *testing.T) {
	f, err := parseFrame("045  I --- --:------ --:------ 32:153289 1FC9 006 0031D9799AC9")
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f.src() != "32:153289" {
		t.Errorf("src() = %q, want the announcing device from slot 2", f.src())
	}
}

func TestParseFrameRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"short line", "045  I ---"},
		{"bad verb", "045 XX --- 18:000730 30:123456 --:------ 31D9 003 00FE00"},
		{"bad code", "045  I --- 18:000730 30:123456 --:------ 31D 003 00FE00"},
		{"bad address", "045  I --- 18:00073Z 30:123456 --:------ 31D9 003 00FE00"},
		{"line noise", "!\x02garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFrame(tt.line); err == nil {
				t.Errorf("parseFrame(%q) = nil error", tt.line)
			}
		})
	}
}

func TestDecodeRx(t *testing.T) {
	line, ts := decodeRx([]byte(`{"msg":"045  I --- 18:000730 30:123456 --:------ 31D9 003 00FE00","ts":"2026-08-30T10:00:00Z"}`))
	if ts != "2026-08-30T10:00:00Z" {
		t.Errorf("ts = %q", ts)
	}
	if line == "" {
		t.Fatal("line empty")
	}

	// Bare-line fallback for older firmware.
	line, ts = decodeRx([]byte("045  I --- 18:000730 30:123456 --:------ 31D9 003 00FE00\n"))
	if ts != "" {
		t.Errorf("bare line ts = %q, want empty", ts)
	}
	if line != "045  I --- 18:000730 30:123456 --:------ 31D9 003 00FE00" {
		t.Errorf("bare line = %q", line)
	}
}
