package coordinator

import (
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// Timestamp layouts found in persisted packet caches. Layouts without a
// zone are assumed to be local time.
var packetTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// FilterCachedPackets reduces a persisted packet cache to the replay-safe
// subset: entries younger than maxAge whose message code is not in the
// replay deny-list and, when enforceKnownList is set, whose source or
// destination address appears in knownList.
//
// Entries with unparsable timestamps are dropped silently; a corrupt
// cache entry must never block startup.
func FilterCachedPackets(
	raw map[string]string,
	now time.Time,
	maxAge time.Duration,
	knownList map[string]bool,
	enforceKnownList bool,
) map[string]string {
	kept := make(map[string]string, len(raw))

	for stamp, packet := range raw {
		ts, ok := parsePacketTimestamp(stamp)
		if !ok {
			continue
		}
		if now.Sub(ts) >= maxAge {
			continue
		}

		p := ramses.Packet(packet)
		if ramses.ReplayDenyCodes[p.Code()] {
			continue
		}
		if enforceKnownList && !knownList[p.Addr0()] && !knownList[p.Addr1()] {
			continue
		}

		kept[stamp] = packet
	}

	return kept
}

func parsePacketTimestamp(stamp string) (time.Time, bool) {
	for _, layout := range packetTimestampLayouts {
		var (
			ts  time.Time
			err error
		)
		if layoutHasZone(layout) {
			ts, err = time.Parse(layout, stamp)
		} else {
			ts, err = time.ParseInLocation(layout, stamp, time.Local)
		}
		if err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func layoutHasZone(layout string) bool {
	return layout == time.RFC3339 || layout == time.RFC3339Nano
}
