package writer

import (
	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/record"
)

// WriteArrayEvent writes ae as the packet whose index is its event number,
// along with any overflow datums. An array event with no datums goes to
// the next index.
func (w *Writer) WriteArrayEvent(ae *record.ArrayEvent, overflow *record.EventOverflow) error {
	p := format.NewPacket()
	p.Put(record.ARRAY_EVENT_BANK, ae)
	if overflow != nil && len(overflow.Datums) > 0 {
		p.Put(record.EVENT_OVERFLOW_BANK, overflow)
	}

	n, ok := ae.EventNumber()
	if !ok {
		return w.WritePacket(p)
	}
	return w.WritePacketAt(n, p)
}

// WriteSimulationHeader puts a simulation header in a packet of its own.
func (w *Writer) WriteSimulationHeader(h *record.SimulationHeader) error {
	p := format.NewPacket()
	p.Put(record.SIMULATION_HEADER_BANK, h)
	return w.WritePacket(p)
}
