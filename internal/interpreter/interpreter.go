// Package interpreter turns FE-I4 raw data word streams into event-ordered
// hit tables. Events are delimited by trigger words when present, or by the
// configured number of data headers otherwise. Malformed structure never
// aborts interpretation; it is recorded in per-event status flags and in the
// word counters.
package interpreter

import (
	"github.com/quarklab/pixelci/internal/fei4"
)

// Counters aggregates per-word-class totals over an interpretation run.
type Counters struct {
	Words          int64
	TriggerWords   int64
	DataHeaders    int64
	DataRecords    int64
	ServiceRecords int64
	AddressRecords int64
	ValueRecords   int64
	UnknownWords   int64
	Events         int64
}

// Interpreter is a streaming interpreter. Feed raw words with Interpret in
// any chunking; call StoreEvent after the last chunk to flush the open
// event. The zero value is not ready for use; call New.
type Interpreter struct {
	trigCount int

	counters Counters
	hits     []Hit
	event    []Hit // hits of the event being built

	eventNumber   int64
	triggerNumber uint32
	haveTrigger   bool
	dhIndex       int // data headers seen in the current open event
	lastHeader    fei4.DataHeader
	status        uint16
	serviceRecord uint32
	eventOpen     bool
}

// New returns an interpreter expecting trigCount data headers per event.
// Zero selects the FE-I4 encoding of 16 (the front end reports a trig count
// of 0 when all 16 consecutive bunch crossings are read out).
func New(trigCount int) *Interpreter {
	if trigCount <= 0 {
		trigCount = 16
	}
	return &Interpreter{trigCount: trigCount, eventNumber: -1}
}

// TriggerCount returns the configured data headers per event.
func (it *Interpreter) TriggerCount() int { return it.trigCount }

// Interpret processes a chunk of raw words.
func (it *Interpreter) Interpret(words []uint32) {
	for _, w := range words {
		it.counters.Words++
		switch {
		case fei4.IsTriggerWord(w):
			it.counters.TriggerWords++
			it.flushEvent()
			n := fei4.TriggerNumber(w)
			if it.haveTrigger && n != it.triggerNumber+1 {
				it.status |= EvtTriggerError
			}
			it.triggerNumber = n
			it.haveTrigger = true
			it.eventOpen = true

		case fei4.IsDataHeader(w):
			it.counters.DataHeaders++
			if !it.eventOpen {
				// Self-triggered: events are delimited by data headers alone.
				it.status |= EvtNoTrigger
				it.eventOpen = true
			} else if it.dhIndex >= it.trigCount {
				it.flushEvent()
				it.status |= EvtNoTrigger
				it.eventOpen = true
			}
			it.lastHeader = fei4.DecodeDataHeader(w)
			it.dhIndex++

		case fei4.IsDataRecord(w):
			it.counters.DataRecords++
			if !it.eventOpen || it.dhIndex == 0 {
				it.status |= EvtStructureWrong
				it.eventOpen = true
			}
			it.addHits(fei4.DecodeDataRecord(w))

		case fei4.IsServiceRecord(w):
			it.counters.ServiceRecords++
			it.status |= EvtServiceRecord
			sr := fei4.DecodeServiceRecord(w)
			it.serviceRecord = uint32(sr.Code)<<10 | uint32(sr.Counter)

		case fei4.IsAddressRecord(w):
			it.counters.AddressRecords++

		case fei4.IsValueRecord(w):
			it.counters.ValueRecords++

		default:
			it.counters.UnknownWords++
			it.status |= EvtUnknownWord
		}
	}
}

// addHits appends the one or two hits of a data record to the open event.
func (it *Interpreter) addHits(r fei4.DataRecord) {
	rel := it.dhIndex - 1
	if rel < 0 {
		rel = 0
	}
	base := Hit{
		TriggerNumber: it.triggerNumber,
		RelativeBCID:  uint8(rel),
		LV1ID:         uint16(it.lastHeader.LV1ID),
		BCID:          it.lastHeader.BCID,
		Column:        r.Column,
		Row:           r.Row,
		Tot:           r.Tot1,
		ServiceRecord: it.serviceRecord,
	}
	it.event = append(it.event, base)
	if r.HasSecondHit() && r.Row < fei4.NRows {
		second := base
		second.Row = r.Row + 1
		second.Tot = r.Tot2
		it.event = append(it.event, second)
	}
}

// flushEvent closes the open event and moves its hits to the output table.
func (it *Interpreter) flushEvent() {
	if !it.eventOpen {
		return
	}
	if it.dhIndex > 0 && it.dhIndex < it.trigCount {
		it.status |= EvtIncomplete
	}
	it.eventNumber++
	it.counters.Events++
	for i := range it.event {
		it.event[i].EventNumber = it.eventNumber
		it.event[i].EventStatus = it.status
	}
	it.hits = append(it.hits, it.event...)
	it.event = it.event[:0]
	it.dhIndex = 0
	it.status = 0
	it.serviceRecord = 0
	it.eventOpen = false
}

// StoreEvent flushes the event currently being built. Call it once after
// the final Interpret chunk.
func (it *Interpreter) StoreEvent() {
	it.flushEvent()
}

// Hits returns the interpreted hit table accumulated so far.
func (it *Interpreter) Hits() []Hit { return it.hits }

// TakeHits returns the accumulated hits and resets the table, keeping event
// numbering intact. Use it between chunks to bound memory.
func (it *Interpreter) TakeHits() []Hit {
	h := it.hits
	it.hits = nil
	return h
}

// Counters returns the word-class totals.
func (it *Interpreter) Counters() Counters { return it.counters }

// EventCount returns the number of completed events.
func (it *Interpreter) EventCount() int64 { return it.counters.Events }
