package interpreter

import (
	"testing"

	"github.com/quarklab/pixelci/internal/fei4"
)

func dr(col, row, tot1, tot2 uint32) uint32 { return col<<17 | row<<8 | tot1<<4 | tot2 }
func dh(lv1id, bcid uint32) uint32          { return 0x00E90000 | lv1id<<10 | bcid }
func trg(n uint32) uint32                   { return 0x80000000 | n }

func TestHitEncodeSize(t *testing.T) {
	var h Hit
	buf := h.Encode(nil)
	if len(buf) != HitSize {
		t.Fatalf("Encode() produced %d bytes, want HitSize=%d", len(buf), HitSize)
	}
}

func TestHitEncodeRoundTrip(t *testing.T) {
	h := Hit{
		EventNumber:   40000000000,
		TriggerNumber: 123456,
		RelativeBCID:  3,
		LV1ID:         17,
		Column:        80,
		Row:           336,
		Tot:           13,
		BCID:          1001,
		TDC:           512,
		TDCTimeStamp:  7,
		TriggerStatus: 1,
		ServiceRecord: 9<<10 | 5,
		EventStatus:   EvtServiceRecord | EvtTriggerError,
	}
	got := DecodeHit(h.Encode(nil))
	if got != h {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, h)
	}
}

func TestTriggeredEvents(t *testing.T) {
	words := []uint32{
		trg(1),
		dh(1, 10), dr(5, 5, 3, fei4.NoTot),
		dh(1, 11), dr(5, 6, 4, 2), // dual record: second hit at row 7
		trg(2),
		dh(2, 26), dr(9, 100, 6, fei4.NoTot),
		dh(2, 27),
		trg(4), // skipped trigger number
		dh(3, 42), dr(1, 1, 1, fei4.NoTot),
	}

	it := New(2)
	it.Interpret(words)
	it.StoreEvent()

	hits := it.Hits()
	if len(hits) != 5 {
		t.Fatalf("got %d hits, want 5", len(hits))
	}

	// Event 0: three hits, one from the dual data record.
	want0 := []struct {
		col  uint8
		row  uint16
		tot  uint8
		rel  uint8
		bcid uint16
	}{
		{5, 5, 3, 0, 10},
		{5, 6, 4, 1, 11},
		{5, 7, 2, 1, 11},
	}
	for i, w := range want0 {
		h := hits[i]
		if h.EventNumber != 0 {
			t.Errorf("hit %d: EventNumber = %d, want 0", i, h.EventNumber)
		}
		if h.TriggerNumber != 1 {
			t.Errorf("hit %d: TriggerNumber = %d, want 1", i, h.TriggerNumber)
		}
		if h.Column != w.col || h.Row != w.row || h.Tot != w.tot {
			t.Errorf("hit %d: got (%d,%d,%d), want (%d,%d,%d)", i, h.Column, h.Row, h.Tot, w.col, w.row, w.tot)
		}
		if h.RelativeBCID != w.rel {
			t.Errorf("hit %d: RelativeBCID = %d, want %d", i, h.RelativeBCID, w.rel)
		}
		if h.BCID != w.bcid {
			t.Errorf("hit %d: BCID = %d, want %d", i, h.BCID, w.bcid)
		}
		if h.EventStatus != 0 {
			t.Errorf("hit %d: EventStatus = %#x, want 0", i, h.EventStatus)
		}
	}

	// Event 1: complete, clean.
	if hits[3].EventNumber != 1 || hits[3].TriggerNumber != 2 {
		t.Errorf("hit 3: event %d trigger %d, want event 1 trigger 2", hits[3].EventNumber, hits[3].TriggerNumber)
	}
	if hits[3].EventStatus != 0 {
		t.Errorf("hit 3: EventStatus = %#x, want 0", hits[3].EventStatus)
	}

	// Event 2: trigger number jumped 2 -> 4 and only one data header arrived.
	h := hits[4]
	if h.EventNumber != 2 || h.TriggerNumber != 4 {
		t.Errorf("hit 4: event %d trigger %d, want event 2 trigger 4", h.EventNumber, h.TriggerNumber)
	}
	if h.EventStatus&EvtTriggerError == 0 {
		t.Error("hit 4: EvtTriggerError should be set after a skipped trigger number")
	}
	if h.EventStatus&EvtIncomplete == 0 {
		t.Error("hit 4: EvtIncomplete should be set with one of two data headers")
	}

	c := it.Counters()
	if c.Events != 3 {
		t.Errorf("Events = %d, want 3", c.Events)
	}
	if c.TriggerWords != 3 || c.DataHeaders != 6 || c.DataRecords != 4 {
		t.Errorf("counters = %+v", c)
	}
}

func TestSelfTriggeredEvents(t *testing.T) {
	// trig count 1: every data header opens a new event.
	words := []uint32{
		dh(0, 1), dr(10, 20, 5, fei4.NoTot),
		dh(0, 2), dr(11, 21, 6, fei4.NoTot), dr(12, 22, 7, fei4.NoTot),
		dh(0, 3),
	}

	it := New(1)
	it.Interpret(words)
	it.StoreEvent()

	hits := it.Hits()
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	wantEvents := []int64{0, 1, 1}
	for i, h := range hits {
		if h.EventNumber != wantEvents[i] {
			t.Errorf("hit %d: EventNumber = %d, want %d", i, h.EventNumber, wantEvents[i])
		}
		if h.EventStatus&EvtNoTrigger == 0 {
			t.Errorf("hit %d: EvtNoTrigger should be set in self-triggered data", i)
		}
	}
	if it.EventCount() != 3 {
		t.Errorf("EventCount = %d, want 3 (trailing empty event counts)", it.EventCount())
	}
}

func TestStructureFlags(t *testing.T) {
	// A data record before any data header is broken structure.
	words := []uint32{
		dr(4, 4, 1, fei4.NoTot),
		0x00EF0000 | 9<<10 | 2, // service record, code 9 counter 2
		0x00000001,             // column 0, row 0: not classifiable as any record type
	}

	it := New(1)
	it.Interpret(words)
	it.StoreEvent()

	hits := it.Hits()
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	h := hits[0]
	if h.EventStatus&EvtStructureWrong == 0 {
		t.Error("EvtStructureWrong should be set")
	}
	if h.EventStatus&EvtServiceRecord == 0 {
		t.Error("EvtServiceRecord should be set")
	}
	if h.EventStatus&EvtUnknownWord == 0 {
		t.Error("EvtUnknownWord should be set")
	}

	c := it.Counters()
	if c.ServiceRecords != 1 || c.UnknownWords != 1 {
		t.Errorf("counters = %+v", c)
	}
}

func TestChunkingInvariance(t *testing.T) {
	var words []uint32
	for i := uint32(1); i <= 50; i++ {
		words = append(words, trg(i), dh(0, i), dr(i%80+1, i%336+1, 5, fei4.NoTot))
	}

	whole := New(1)
	whole.Interpret(words)
	whole.StoreEvent()

	chunked := New(1)
	for i := 0; i < len(words); i += 7 {
		end := i + 7
		if end > len(words) {
			end = len(words)
		}
		chunked.Interpret(words[i:end])
	}
	chunked.StoreEvent()

	a, b := whole.Hits(), chunked.Hits()
	if len(a) != len(b) {
		t.Fatalf("whole=%d hits, chunked=%d hits", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("hit %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
