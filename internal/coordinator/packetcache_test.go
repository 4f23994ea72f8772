package coordinator

import (
	"fmt"
	"testing"
	"time"
)

// testPacket builds a packet line with the fixed-offset address and code
// fields populated.
func testPacket(addr0, addr1, code string) string {
	return fmt.Sprintf("000  I --- %s %s --:------ %s 003 000000", addr0, addr1, code)
}

func TestFilterCachedPacketsAgeWindow(t *testing.T) {
	now := time.Now()
	raw := map[string]string{
		now.Add(-25 * time.Hour).Format(time.RFC3339): testPacket("32:153289", "--:------", "31D9"),
		now.Add(-1 * time.Hour).Format(time.RFC3339):  testPacket("32:153289", "--:------", "31D9"),
	}

	kept := FilterCachedPackets(raw, now, 24*time.Hour, nil, false)
	if len(kept) != 1 {
		t.Fatalf("kept %d packets, want 1", len(kept))
	}
	if _, ok := kept[now.Add(-1*time.Hour).Format(time.RFC3339)]; !ok {
		t.Error("the fresh packet was dropped")
	}
}

func TestFilterCachedPacketsUnparsableTimestamp(t *testing.T) {
	raw := map[string]string{
		"not-a-timestamp": testPacket("32:153289", "--:------", "31D9"),
	}

	kept := FilterCachedPackets(raw, time.Now(), 24*time.Hour, nil, false)
	if len(kept) != 0 {
		t.Errorf("kept %d packets with unparsable timestamps, want 0", len(kept))
	}
}

func TestFilterCachedPacketsNaiveTimestampIsLocal(t *testing.T) {
	now := time.Now()
	stamp := now.Add(-time.Hour).Format("2006-01-02T15:04:05.999999")
	raw := map[string]string{stamp: testPacket("32:153289", "--:------", "31D9")}

	kept := FilterCachedPackets(raw, now, 24*time.Hour, nil, false)
	if len(kept) != 1 {
		t.Errorf("naive local timestamp one hour old was dropped")
	}
}

func TestFilterCachedPacketsDenyListedCodes(t *testing.T) {
	now := time.Now()
	stamp := now.Add(-time.Hour).Format(time.RFC3339)

	for _, code := range []string{"1FC9", "7FFF"} {
		raw := map[string]string{stamp: testPacket("32:153289", "--:------", code)}
		if kept := FilterCachedPackets(raw, now, 24*time.Hour, nil, false); len(kept) != 0 {
			t.Errorf("code %s survived the replay deny-list", code)
		}
	}
}

func TestFilterCachedPacketsKnownList(t *testing.T) {
	now := time.Now()
	stamp1 := now.Add(-time.Hour).Format(time.RFC3339)
	stamp2 := now.Add(-2 * time.Hour).Format(time.RFC3339)
	raw := map[string]string{
		stamp1: testPacket("32:153289", "--:------", "31D9"),
		stamp2: testPacket("29:999999", "--:------", "31D9"),
	}
	known := map[string]bool{"32:153289": true}

	kept := FilterCachedPackets(raw, now, 24*time.Hour, known, true)
	if len(kept) != 1 {
		t.Fatalf("kept %d packets, want 1", len(kept))
	}
	if _, ok := kept[stamp1]; !ok {
		t.Error("known-device packet was dropped")
	}

	// Without enforcement both survive.
	kept = FilterCachedPackets(raw, now, 24*time.Hour, known, false)
	if len(kept) != 2 {
		t.Errorf("kept %d packets without enforcement, want 2", len(kept))
	}
}
