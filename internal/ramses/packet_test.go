package ramses

import "testing"

func TestPacketFields(t *testing.T) {
	p := Packet("045  I --- 18:000730 30:123456 --:------ 31D9 003 00FE00")

	if !p.Valid() {
		t.Fatal("packet should be valid")
	}
	if got := p.Addr0(); got != "18:000730" {
		t.Errorf("Addr0() = %q, want %q", got, "18:000730")
	}
	if got := p.Addr1(); got != "30:123456" {
		t.Errorf("Addr1() = %q, want %q", got, "30:123456")
	}
	if got := p.Code(); got != "31D9" {
		t.Errorf("Code() = %q, want %q", got, "31D9")
	}
}

func TestPacketShortLine(t *testing.T) {
	p := Packet("045  I --- 18:000730")

	if p.Valid() {
		t.Error("short line should not be valid")
	}
	if p.Addr0() != "" || p.Addr1() != "" || p.Code() != "" {
		t.Error("short line fields should be empty, not panic")
	}
}

func TestPacketNulAddressSlot(t *testing.T) {
	p := Packet("051  I --- --:------ --:------ 30:123456 1FC9 006 0031D9")

	if got := p.Addr0(); got != "--:------" {
		t.Errorf("Addr0() = %q, want nul filler", got)
	}
	if got := p.Code(); got != "1FC9" {
		t.Errorf("Code() = %q, want %q", got, "1FC9")
	}
}
