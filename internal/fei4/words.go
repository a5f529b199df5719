// Package fei4 decodes the 32-bit raw data words produced by an FE-I4
// pixel-detector readout. The front-end record occupies the low 24 bits of
// each word; bit 31 marks words injected by the trigger logic.
//
// Record layouts (low 24 bits):
//
//	data header     0xE9 in bits 16-23, LV1ID in bits 10-14, BCID in bits 0-9
//	address record  0xEA in bits 16-23, type in bit 15, address in bits 0-14
//	value record    0xEC in bits 16-23, value in bits 0-15
//	service record  0xEF in bits 16-23, code in bits 10-15, counter in bits 0-9
//	data record     column in bits 17-23 (1..80), row in bits 8-16 (1..336),
//	                ToT1 in bits 4-7, ToT2 in bits 0-3
package fei4

// Detector geometry. Column and row addresses in data records are 1-based.
const (
	NColumns = 80
	NRows    = 336
)

// NoTot is the ToT2 code meaning "no second hit in this record".
const NoTot = 0xF

const (
	triggerMask = 0x80000000
	recordMask  = 0x00FF0000

	dataHeaderTag    = 0x00E90000
	addressRecordTag = 0x00EA0000
	valueRecordTag   = 0x00EC0000
	serviceRecordTag = 0x00EF0000

	columnMask = 0x00FE0000
	rowMask    = 0x0001FF00
)

// IsTriggerWord reports whether w was injected by the trigger logic.
func IsTriggerWord(w uint32) bool { return w&triggerMask != 0 }

// IsDataHeader reports whether w is a data header record.
func IsDataHeader(w uint32) bool { return w&recordMask == dataHeaderTag }

// IsAddressRecord reports whether w is an address record.
func IsAddressRecord(w uint32) bool { return w&recordMask == addressRecordTag }

// IsValueRecord reports whether w is a value record.
func IsValueRecord(w uint32) bool { return w&recordMask == valueRecordTag }

// IsServiceRecord reports whether w is a service record.
func IsServiceRecord(w uint32) bool { return w&recordMask == serviceRecordTag }

// IsDataRecord reports whether w is a data record, i.e. whether its column
// and row fields fall inside the detector geometry. Words with column 0 or
// row 0 are not data records; neither are the tagged record types above,
// whose tag bytes place the column field outside 1..80.
func IsDataRecord(w uint32) bool {
	col := w & columnMask
	row := w & rowMask
	return col >= 1<<17 && col <= NColumns<<17 && row >= 1<<8 && row <= NRows<<8
}

// TriggerNumber returns the trigger counter of a trigger word (bits 0-30).
func TriggerNumber(w uint32) uint32 { return w &^ triggerMask }

// DataHeader holds the decoded fields of a data header record.
type DataHeader struct {
	LV1ID uint8  // level-1 trigger ID, 5 bits
	BCID  uint16 // bunch-crossing ID, 10 bits
}

// DecodeDataHeader decodes a data header word. The caller is expected to
// have checked IsDataHeader.
func DecodeDataHeader(w uint32) DataHeader {
	return DataHeader{
		LV1ID: uint8(w >> 10 & 0x1F),
		BCID:  uint16(w & 0x3FF),
	}
}

// ServiceRecord holds the decoded fields of a service record.
type ServiceRecord struct {
	Code    uint8  // 6 bits
	Counter uint16 // 10 bits
}

// DecodeServiceRecord decodes a service record word.
func DecodeServiceRecord(w uint32) ServiceRecord {
	return ServiceRecord{
		Code:    uint8(w >> 10 & 0x3F),
		Counter: uint16(w & 0x3FF),
	}
}

// DataRecord holds the decoded fields of a data record. A single record
// addresses up to two vertically adjacent pixels: (Column, Row, Tot1) and,
// when Tot2 != NoTot, (Column, Row+1, Tot2).
type DataRecord struct {
	Column uint8  // 1..80
	Row    uint16 // 1..336
	Tot1   uint8
	Tot2   uint8
}

// DecodeDataRecord decodes a data record word.
func DecodeDataRecord(w uint32) DataRecord {
	return DataRecord{
		Column: uint8(w >> 17 & 0x7F),
		Row:    uint16(w >> 8 & 0x1FF),
		Tot1:   uint8(w >> 4 & 0xF),
		Tot2:   uint8(w & 0xF),
	}
}

// HasSecondHit reports whether the record carries a hit at Row+1.
func (r DataRecord) HasSecondHit() bool { return r.Tot2 != NoTot }

// AddressRecord holds the decoded fields of an address record.
type AddressRecord struct {
	Shift   bool   // true when the record addresses the shift register
	Address uint16 // 15 bits
}

// DecodeAddressRecord decodes an address record word.
func DecodeAddressRecord(w uint32) AddressRecord {
	return AddressRecord{
		Shift:   w&0x8000 != 0,
		Address: uint16(w & 0x7FFF),
	}
}

// ValueRecord returns the 16-bit payload of a value record word.
func ValueRecord(w uint32) uint16 { return uint16(w & 0xFFFF) }

// ColRowFromDataRecords extracts the first-hit column and row address of
// every data record in words, skipping all other word types. The two
// returned slices have equal length.
func ColRowFromDataRecords(words []uint32) (cols []uint8, rows []uint16) {
	for _, w := range words {
		if !IsDataRecord(w) {
			continue
		}
		r := DecodeDataRecord(w)
		cols = append(cols, r.Column)
		rows = append(rows, r.Row)
	}
	return cols, rows
}
