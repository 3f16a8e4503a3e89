package repeater

import (
	"bytes"
	"encoding/binary"
)

// Stats mirrors the reference firmware's RepeaterStats struct
// (examples/simple_repeater/main.cpp), returned wholesale by the
// GET_STATS admin command. Field order and widths are the wire
// format; changing either changes what a compatible client parses.
type Stats struct {
	BattMilliVolts   uint16
	CurrTxQueueLen   uint16
	CurrFreeQueueLen uint16
	LastRSSI         int16

	NPacketsRecv uint32
	NPacketsSent uint32

	TotalAirTimeSecs uint32
	TotalUpTimeSecs  uint32

	NSentFlood  uint32
	NSentDirect uint32
	NRecvFlood  uint32
	NRecvDirect uint32

	NFullEvents uint32
}

// Encode serializes currentTime (the CLI reply's leading timestamp)
// followed by every Stats field, little-endian, in declaration order.
func (s Stats) Encode(currentTime uint32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(4 + 2*3 + 2 + 4*9)
	binary.Write(buf, binary.LittleEndian, currentTime)
	binary.Write(buf, binary.LittleEndian, s.BattMilliVolts)
	binary.Write(buf, binary.LittleEndian, s.CurrTxQueueLen)
	binary.Write(buf, binary.LittleEndian, s.CurrFreeQueueLen)
	binary.Write(buf, binary.LittleEndian, s.LastRSSI)
	binary.Write(buf, binary.LittleEndian, s.NPacketsRecv)
	binary.Write(buf, binary.LittleEndian, s.NPacketsSent)
	binary.Write(buf, binary.LittleEndian, s.TotalAirTimeSecs)
	binary.Write(buf, binary.LittleEndian, s.TotalUpTimeSecs)
	binary.Write(buf, binary.LittleEndian, s.NSentFlood)
	binary.Write(buf, binary.LittleEndian, s.NSentDirect)
	binary.Write(buf, binary.LittleEndian, s.NRecvFlood)
	binary.Write(buf, binary.LittleEndian, s.NRecvDirect)
	binary.Write(buf, binary.LittleEndian, s.NFullEvents)
	return buf.Bytes()
}
