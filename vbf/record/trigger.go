package record

import (
	"bytes"
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

const (
	LEGACY_SUBARRAY_TEL_SIZE  = 44
	CURRENT_SUBARRAY_TEL_SIZE = 52
	TRIGGER_COUNTERS_SIZE     = 4*4 + 3*4 + 3*4
)

// SubarrayTelescope is the trigger's view of one telescope. Which fields
// are written depends on the record version.
type SubarrayTelescope struct {
	TelescopeID uint32
	TDCTime     uint32
	Azimuth     float32
	Altitude    float32

	// AUG_2004
	Delay        uint32
	L2ScalarRate uint32
	L2Pattern    [3]uint32
	TenMHzClock  uint32
	VetoedClock  uint32

	// AUG_2005
	EventType   uint32
	ShowerDelay uint32
	CompDelay   uint32
	L2Counts    [3]uint32
	CalCounts   [3]uint32
}

// ArrayTrigger is the record the array-level trigger writes for each event.
// It always sits on node 255.
type ArrayTrigger struct {
	Base
	// Only the low byte survives an AUG_2005 encode.
	ATFlags    uint16
	ConfigMask uint8
	RunNumber  uint32

	// AUG_2005 counters.
	TenMHzClock [4]uint32
	OptCalCount [3]uint32
	PedCount    [3]uint32

	SubarrayTelescopes []SubarrayTelescope
	// Ids of the telescopes that triggered. AUG_2004 does not store this
	// list; decoding fills it from the subarray ids.
	TriggerTelescopes []uint32
}

func NewArrayTrigger(run uint32) *ArrayTrigger {
	return &ArrayTrigger{
		Base: Base{
			Version:    CURRENT_VERSION,
			NodeNumber: format.ARRAY_TRIGGER_NODE,
		},
		RunNumber: run,
	}
}

func (at *ArrayTrigger) kindBody() ([]byte, error) {
	if len(at.SubarrayTelescopes) > 0xff {
		return nil, errors.Wrapf(format.ErrSizeInvalid, "%d subarray telescopes", len(at.SubarrayTelescopes))
	}
	if at.Version == VERSION_AUG_2005 && len(at.TriggerTelescopes) > 0xff {
		return nil, errors.Wrapf(format.ErrSizeInvalid, "%d trigger telescopes", len(at.TriggerTelescopes))
	}
	body := new(bytes.Buffer)
	ww := ioutil.NewWordWriter(body)
	switch at.Version {
	case VERSION_AUG_2004:
		ww.Uint16(at.ATFlags)
		ww.Uint8(at.ConfigMask)
		ww.Uint8(uint8(len(at.SubarrayTelescopes)))
		ww.Uint32(at.RunNumber)
		for _, t := range at.SubarrayTelescopes {
			ww.Uint32(t.TelescopeID)
			ww.Float32(t.Altitude)
			ww.Float32(t.Azimuth)
			ww.Uint32(t.TDCTime)
			ww.Uint32(t.Delay)
			ww.Uint32(t.L2ScalarRate)
			for _, v := range t.L2Pattern {
				ww.Uint32(v)
			}
			ww.Uint32(t.TenMHzClock)
			ww.Uint32(t.VetoedClock)
		}
	case VERSION_AUG_2005:
		ww.Uint8(uint8(at.ATFlags))
		ww.Uint8(at.ConfigMask)
		ww.Uint8(uint8(len(at.SubarrayTelescopes)))
		ww.Uint8(uint8(len(at.TriggerTelescopes)))
		ww.Uint32(at.RunNumber)
		for _, v := range at.TenMHzClock {
			ww.Uint32(v)
		}
		for _, v := range at.OptCalCount {
			ww.Uint32(v)
		}
		for _, v := range at.PedCount {
			ww.Uint32(v)
		}
		for _, t := range at.SubarrayTelescopes {
			ww.Uint32(t.TelescopeID)
			ww.Uint32(t.TDCTime)
			ww.Uint32(t.EventType)
			ww.Float32(t.Azimuth)
			ww.Float32(t.Altitude)
			ww.Uint32(t.ShowerDelay)
			ww.Uint32(t.CompDelay)
			for _, v := range t.L2Counts {
				ww.Uint32(v)
			}
			for _, v := range t.CalCounts {
				ww.Uint32(v)
			}
		}
		for _, id := range at.TriggerTelescopes {
			ww.Uint32(id)
		}
	default:
		return nil, errors.Wrapf(format.ErrBankVersion, "record version %d", at.Version)
	}
	return body.Bytes(), ww.Err()
}

func (at *ArrayTrigger) Size() uint32 {
	n := DATUM_BASE_SIZE + 8 + len(at.Wilderness)
	switch at.Version {
	case VERSION_AUG_2004:
		n += LEGACY_SUBARRAY_TEL_SIZE * len(at.SubarrayTelescopes)
	case VERSION_AUG_2005:
		n += TRIGGER_COUNTERS_SIZE + CURRENT_SUBARRAY_TEL_SIZE*len(at.SubarrayTelescopes) + 4*len(at.TriggerTelescopes)
	}
	return uint32(n)
}

func (at *ArrayTrigger) Encode(w io.Writer) error {
	body, err := at.kindBody()
	if err != nil {
		return errors.Wrap(err, "failed to encode array trigger")
	}
	return writeDatum(w, &at.Base, at.Flags, body)
}

func (at *ArrayTrigger) decode(wr *ioutil.WordReader, version Version, f frame) error {
	if err := readCommon(wr, version, f, &at.Base); err != nil {
		return err
	}
	if wr.Remaining() < 8 {
		return errors.Wrapf(format.ErrSizeInvalid, "array trigger body of %d bytes", wr.Remaining())
	}
	switch version {
	case VERSION_AUG_2004:
		at.ATFlags = wr.Uint16()
		at.ConfigMask = wr.Uint8()
		n := int(wr.Uint8())
		at.RunNumber = wr.Uint32()
		if wr.Remaining() < LEGACY_SUBARRAY_TEL_SIZE*n {
			return errors.Wrapf(format.ErrSizeInvalid, "no room for %d telescopes", n)
		}
		at.SubarrayTelescopes = make([]SubarrayTelescope, n)
		at.TriggerTelescopes = make([]uint32, n)
		for i := range at.SubarrayTelescopes {
			t := &at.SubarrayTelescopes[i]
			t.TelescopeID = wr.Uint32()
			at.TriggerTelescopes[i] = t.TelescopeID
			t.Altitude = wr.Float32()
			t.Azimuth = wr.Float32()
			t.TDCTime = wr.Uint32()
			t.Delay = wr.Uint32()
			t.L2ScalarRate = wr.Uint32()
			for j := range t.L2Pattern {
				t.L2Pattern[j] = wr.Uint32()
			}
			t.TenMHzClock = wr.Uint32()
			t.VetoedClock = wr.Uint32()
		}
	case VERSION_AUG_2005:
		at.ATFlags = uint16(wr.Uint8())
		at.ConfigMask = wr.Uint8()
		nsub := int(wr.Uint8())
		ntrig := int(wr.Uint8())
		at.RunNumber = wr.Uint32()
		if wr.Remaining() < TRIGGER_COUNTERS_SIZE+CURRENT_SUBARRAY_TEL_SIZE*nsub+4*ntrig {
			return errors.Wrapf(format.ErrSizeInvalid, "no room for %d subarray and %d trigger telescopes", nsub, ntrig)
		}
		for i := range at.TenMHzClock {
			at.TenMHzClock[i] = wr.Uint32()
		}
		for i := range at.OptCalCount {
			at.OptCalCount[i] = wr.Uint32()
		}
		for i := range at.PedCount {
			at.PedCount[i] = wr.Uint32()
		}
		at.SubarrayTelescopes = make([]SubarrayTelescope, nsub)
		for i := range at.SubarrayTelescopes {
			t := &at.SubarrayTelescopes[i]
			t.TelescopeID = wr.Uint32()
			t.TDCTime = wr.Uint32()
			t.EventType = wr.Uint32()
			t.Azimuth = wr.Float32()
			t.Altitude = wr.Float32()
			t.ShowerDelay = wr.Uint32()
			t.CompDelay = wr.Uint32()
			for j := range t.L2Counts {
				t.L2Counts[j] = wr.Uint32()
			}
			for j := range t.CalCounts {
				t.CalCounts[j] = wr.Uint32()
			}
		}
		at.TriggerTelescopes = make([]uint32, ntrig)
		for i := range at.TriggerTelescopes {
			at.TriggerTelescopes[i] = wr.Uint32()
		}
	}
	if err := wr.Err(); err != nil {
		return errors.Wrap(format.ErrSizeInvalid, err.Error())
	}
	keepWilderness(wr, &at.Base)
	return nil
}
