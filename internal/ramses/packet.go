package ramses

// Packet is a raw packet line as persisted in the cached-state blob.
//
// The line is a fixed-width text record. The coordinator never parses it
// semantically; the three fields it needs are sliced by character position:
//
//	045  I --- 18:000730 30:123456 --:------ 31D9 003 00FE00
//	           ^^^^^^^^^ ^^^^^^^^^            ^^^^
//	           11     20 21     30            41 45
type Packet string

// Field offsets within a packet line.
const (
	pktAddr0Start = 11
	pktAddr0End   = 20
	pktAddr1Start = 21
	pktAddr1End   = 30
	pktCodeStart  = 41
	pktCodeEnd    = 45

	// minPacketLen is the shortest line that still carries the code field.
	minPacketLen = pktCodeEnd
)

// Valid reports whether the line is long enough to carry all fixed fields.
func (p Packet) Valid() bool {
	return len(p) >= minPacketLen
}

// Addr0 returns the first embedded address field, or "" for a short line.
// The field is returned verbatim; it may be the nul filler address.
func (p Packet) Addr0() string {
	if !p.Valid() {
		return ""
	}
	return string(p[pktAddr0Start:pktAddr0End])
}

// Addr1 returns the second embedded address field, or "" for a short line.
func (p Packet) Addr1() string {
	if !p.Valid() {
		return ""
	}
	return string(p[pktAddr1Start:pktAddr1End])
}

// Code returns the four-character message code field, or "" for a short line.
func (p Packet) Code() string {
	if !p.Valid() {
		return ""
	}
	return string(p[pktCodeStart:pktCodeEnd])
}
