package interpreter

import "encoding/binary"

// Event status flags. The flags accumulate per event and are copied onto
// every hit of the event when it is stored.
const (
	EvtServiceRecord  uint16 = 1 << 0 // event contains at least one service record
	EvtNoTrigger      uint16 = 1 << 1 // event was opened without a trigger word
	EvtStructureWrong uint16 = 1 << 2 // data record arrived before any data header
	EvtUnknownWord    uint16 = 1 << 3 // event contains an unclassifiable word
	EvtIncomplete     uint16 = 1 << 4 // fewer data headers than the trigger count
	EvtTriggerError   uint16 = 1 << 5 // trigger number did not increase by one
)

// Hit is one interpreted pixel hit.
type Hit struct {
	EventNumber   int64
	TriggerNumber uint32
	RelativeBCID  uint8 // data-header index within the event
	LV1ID         uint16
	Column        uint8  // 1..80
	Row           uint16 // 1..336
	Tot           uint8
	BCID          uint16
	TDC           uint16
	TDCTimeStamp  uint8
	TriggerStatus uint8
	ServiceRecord uint32
	EventStatus   uint16
}

// HitSize is the packed on-disk size of a hit record in bytes. The wire
// layout is fixed; readers on other platforms depend on it, so it is pinned
// by a test rather than derived from the struct.
const HitSize = 31

// Encode appends the packed little-endian representation of h to buf.
func (h *Hit) Encode(buf []byte) []byte {
	var b [HitSize]byte
	binary.LittleEndian.PutUint64(b[0:], uint64(h.EventNumber))
	binary.LittleEndian.PutUint32(b[8:], h.TriggerNumber)
	b[12] = h.RelativeBCID
	binary.LittleEndian.PutUint16(b[13:], h.LV1ID)
	b[15] = h.Column
	binary.LittleEndian.PutUint16(b[16:], h.Row)
	b[18] = h.Tot
	binary.LittleEndian.PutUint16(b[19:], h.BCID)
	binary.LittleEndian.PutUint16(b[21:], h.TDC)
	b[23] = h.TDCTimeStamp
	b[24] = h.TriggerStatus
	binary.LittleEndian.PutUint32(b[25:], h.ServiceRecord)
	binary.LittleEndian.PutUint16(b[29:], h.EventStatus)
	return append(buf, b[:]...)
}

// DecodeHit unpacks one hit record from b, which must hold at least
// HitSize bytes.
func DecodeHit(b []byte) Hit {
	return Hit{
		EventNumber:   int64(binary.LittleEndian.Uint64(b[0:])),
		TriggerNumber: binary.LittleEndian.Uint32(b[8:]),
		RelativeBCID:  b[12],
		LV1ID:         binary.LittleEndian.Uint16(b[13:]),
		Column:        b[15],
		Row:           binary.LittleEndian.Uint16(b[16:]),
		Tot:           b[18],
		BCID:          binary.LittleEndian.Uint16(b[19:]),
		TDC:           binary.LittleEndian.Uint16(b[21:]),
		TDCTimeStamp:  b[23],
		TriggerStatus: b[24],
		ServiceRecord: binary.LittleEndian.Uint32(b[25:]),
		EventStatus:   binary.LittleEndian.Uint16(b[29:]),
	}
}
