package record

import (
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/pkg/errors"
)

// MAX_EVENTS is one event per telescope node.
const MAX_EVENTS = format.MAX_NODES

// ArrayEvent is everything recorded for one array trigger: the trigger
// record itself, if it made it, and the telescope events.
type ArrayEvent struct {
	RunNumber uint32
	RunSet    bool
	Trigger   *ArrayTrigger
	Events    []*Event
}

func NewArrayEvent(run uint32) *ArrayEvent {
	return &ArrayEvent{RunNumber: run, RunSet: true}
}

func (ae *ArrayEvent) HasEventNumber() bool {
	return ae.Trigger != nil || len(ae.Events) > 0
}

// EventNumber comes from the trigger, or from the first event when there
// is no trigger.
func (ae *ArrayEvent) EventNumber() (uint32, bool) {
	if ae.Trigger != nil {
		return ae.Trigger.EventNumber, true
	}
	if len(ae.Events) > 0 {
		return ae.Events[0].EventNumber, true
	}
	return 0, false
}

// GPS is the clock reading of the trigger, or of the first event when there
// is no trigger.
func (ae *ArrayEvent) GPS() (GPSTime, bool) {
	if ae.Trigger != nil {
		return ae.Trigger.DecodeGPS(), true
	}
	if len(ae.Events) > 0 {
		return ae.Events[0].DecodeGPS(), true
	}
	return GPSTime{}, false
}

func (ae *ArrayEvent) checkEventNumber(n uint32) error {
	if have, ok := ae.EventNumber(); ok && have != n {
		return errors.Wrapf(format.ErrEventNumberConflict, "array event %d, datum %d", have, n)
	}
	return nil
}

// SetTrigger replaces the trigger. The trigger's run number must agree
// with the array event's.
func (ae *ArrayEvent) SetTrigger(at *ArrayTrigger) error {
	if err := ae.checkEventNumber(at.EventNumber); err != nil {
		return err
	}
	if ae.RunSet && ae.RunNumber != at.RunNumber {
		return errors.Wrapf(format.ErrRunConflict, "array event run %d, trigger run %d", ae.RunNumber, at.RunNumber)
	}
	ae.RunNumber = at.RunNumber
	ae.RunSet = true
	ae.Trigger = at
	return nil
}

func (ae *ArrayEvent) AddEvent(ev *Event) error {
	if len(ae.Events) >= MAX_EVENTS {
		return errors.Wrapf(format.ErrArrayEventFull, "array event already holds %d events", len(ae.Events))
	}
	if err := ae.checkEventNumber(ev.EventNumber); err != nil {
		return err
	}
	ae.Events = append(ae.Events, ev)
	return nil
}

// AddDatum files a trigger or an event. A second trigger is refused.
func (ae *ArrayEvent) AddDatum(d Datum) error {
	switch d := d.(type) {
	case *ArrayTrigger:
		if ae.Trigger != nil {
			return errors.Wrap(format.ErrArrayEventFull, "array event already has a trigger")
		}
		return ae.SetTrigger(d)
	case *Event:
		return ae.AddEvent(d)
	}
	return errors.Errorf("unknown datum type %T", d)
}

// RemoveEvent does not keep the order of the remaining events.
func (ae *ArrayEvent) RemoveEvent(node uint8) {
	for i, ev := range ae.Events {
		if ev.NodeNumber == node {
			last := len(ae.Events) - 1
			ae.Events[i] = ae.Events[last]
			ae.Events[last] = nil
			ae.Events = ae.Events[:last]
			return
		}
	}
}

func (ae *ArrayEvent) EventByNode(node uint8) *Event {
	for _, ev := range ae.Events {
		if ev.NodeNumber == node {
			return ev
		}
	}
	return nil
}

func (ae *ArrayEvent) DatumByNode(node uint8) Datum {
	if node == format.ARRAY_TRIGGER_NODE {
		if ae.Trigger == nil {
			return nil
		}
		return ae.Trigger
	}
	if ev := ae.EventByNode(node); ev != nil {
		return ev
	}
	return nil
}

// Expected is the set of telescopes the trigger says took part.
func (ae *ArrayEvent) Expected() format.ConfigMask {
	var m format.ConfigMask
	if ae.Trigger == nil {
		return m
	}
	for _, id := range ae.Trigger.TriggerTelescopes {
		if id < format.ARRAY_TRIGGER_NODE {
			m.Set(int(id))
		}
	}
	return m
}

// Present is the set of telescopes that actually sent an event.
func (ae *ArrayEvent) Present() format.ConfigMask {
	var m format.ConfigMask
	for _, ev := range ae.Events {
		m.Set(int(ev.NodeNumber))
	}
	return m
}

func (ae *ArrayEvent) IsSane() bool {
	return ae.Trigger != nil && ae.Expected() == ae.Present()
}

func (ae *ArrayEvent) datums() []Datum {
	var ds []Datum
	if ae.Trigger != nil {
		ds = append(ds, ae.Trigger)
	}
	for _, ev := range ae.Events {
		ds = append(ds, ev)
	}
	return ds
}

func (ae *ArrayEvent) Version() uint32 {
	v, _ := commonVersion(ae.datums())
	return uint32(v)
}

func (ae *ArrayEvent) Size() uint32 {
	return datumsSize(ae.datums())
}

// Encode writes the trigger first, then the events in order.
func (ae *ArrayEvent) Encode(w io.Writer) error {
	return encodeDatums(w, ae.datums())
}

// commonVersion is the record version shared by every datum. An empty list
// gets the current version.
func commonVersion(ds []Datum) (Version, error) {
	if len(ds) == 0 {
		return CURRENT_VERSION, nil
	}
	v := ds[0].Header().Version
	for _, d := range ds[1:] {
		if d.Header().Version != v {
			return v, errors.Wrapf(format.ErrBankVersion, "datums mix record versions %s and %s", v, d.Header().Version)
		}
	}
	return v, nil
}

func datumsSize(ds []Datum) uint32 {
	var n uint32
	for _, d := range ds {
		n += d.Size()
	}
	return n
}

func encodeDatums(w io.Writer, ds []Datum) error {
	if _, err := commonVersion(ds); err != nil {
		return err
	}
	for _, d := range ds {
		if err := d.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

func bankVersion(v uint32) (Version, error) {
	version := Version(v)
	if !version.valid() {
		return 0, errors.Wrapf(format.ErrBankVersion, "bank version %d", v)
	}
	return version, nil
}

func buildArrayEvent(ctx format.BankContext, body []byte) (format.Bank, error) {
	version, err := bankVersion(ctx.Version)
	if err != nil {
		return nil, err
	}
	datums, err := ParseDatums(body, version)
	if err != nil {
		return nil, err
	}
	ae := NewArrayEvent(ctx.RunNumber)
	for _, d := range datums {
		if err = ae.AddDatum(d); err != nil {
			return nil, err
		}
	}
	if n, ok := ae.EventNumber(); ok && ctx.EventNumber >= 0 && int64(n) != ctx.EventNumber {
		return nil, errors.Wrapf(format.ErrEventNumberConflict, "packet %d holds array event %d", ctx.EventNumber, n)
	}
	return ae, nil
}

var ArrayEventBuilder format.Builder = format.BuilderFunc(buildArrayEvent)

// EventOverflow holds datums that did not fit, or did not belong, in the
// packet's array event. Nothing checks their event numbers.
type EventOverflow struct {
	Datums []Datum
}

func (eo *EventOverflow) Add(d Datum) {
	eo.Datums = append(eo.Datums, d)
}

func (eo *EventOverflow) Version() uint32 {
	v, _ := commonVersion(eo.Datums)
	return uint32(v)
}

func (eo *EventOverflow) Size() uint32 {
	return datumsSize(eo.Datums)
}

func (eo *EventOverflow) Encode(w io.Writer) error {
	return encodeDatums(w, eo.Datums)
}

func buildEventOverflow(ctx format.BankContext, body []byte) (format.Bank, error) {
	version, err := bankVersion(ctx.Version)
	if err != nil {
		return nil, err
	}
	datums, err := ParseDatums(body, version)
	if err != nil {
		return nil, err
	}
	return &EventOverflow{Datums: datums}, nil
}

var EventOverflowBuilder format.Builder = format.BuilderFunc(buildEventOverflow)
