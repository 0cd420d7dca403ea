package record

import (
	"bytes"
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

const (
	DATUM_MAGIC = "VEVN"
	// frame plus common body, the same for both versions
	DATUM_BASE_SIZE = 28
)

var DATUM_MAGIC_BYTES = []byte(DATUM_MAGIC)

// Base is what every datum carries, telescope event or array trigger.
type Base struct {
	Version     Version
	NodeNumber  uint8
	TriggerMask uint8
	EventNumber uint32
	GPSTime     [5]uint16
	GPSYear     uint8
	EventType   uint8
	// 32 bits wide in AUG_2004, 16 in AUG_2005.
	Flags uint32
	// Bytes a newer writer put after the fields we know about. Kept so the
	// datum re-encodes byte for byte.
	Wilderness []byte
}

func (b *Base) Header() *Base {
	return b
}

type Datum interface {
	Header() *Base
	// Size is the whole encoded datum, frame included.
	Size() uint32
	Encode(w io.Writer) error
}

// writeDatum writes frame, common fields, the kind specific body and the
// wilderness. frameFlags only matters for AUG_2005.
func writeDatum(w io.Writer, b *Base, frameFlags uint32, body []byte) error {
	if !b.Version.valid() {
		return errors.Wrapf(format.ErrBankVersion, "record version %d", b.Version)
	}
	size := b.Version.commonSize() + len(body) + len(b.Wilderness)
	ww := ioutil.NewWordWriter(w)
	ww.Write(DATUM_MAGIC_BYTES)
	ww.Uint8(b.NodeNumber)
	ww.Uint8(b.TriggerMask)
	switch b.Version {
	case VERSION_AUG_2004:
		if size > 0xffff {
			return errors.Wrapf(format.ErrSizeInvalid, "datum of %d bytes does not fit an AUG_2004 frame", size)
		}
		ww.Uint16(uint16(size))
	case VERSION_AUG_2005:
		ww.Uint16(uint16(frameFlags))
		ww.Uint32(uint32(size))
	}
	ww.Uint32(b.EventNumber)
	for _, g := range b.GPSTime {
		ww.Uint16(g)
	}
	ww.Uint8(b.GPSYear)
	ww.Uint8(b.EventType)
	if b.Version == VERSION_AUG_2004 {
		ww.Uint32(b.Flags)
	}
	ww.Write(body)
	ww.Write(b.Wilderness)
	if err := ww.Err(); err != nil {
		return errors.Wrap(err, "failed to write datum")
	}
	return nil
}

type frame struct {
	node, trigMask uint8
	flags          uint32
	size           int
}

func readFrame(buf []byte, version Version) (frame, int, error) {
	var f frame
	if !version.valid() {
		return f, 0, errors.Wrapf(format.ErrBankVersion, "record version %d", version)
	}
	if len(buf) < version.frameSize() {
		return f, 0, errors.Wrapf(format.ErrSizeInvalid, "%d bytes left for a datum frame", len(buf))
	}
	if !bytes.Equal(buf[:4], DATUM_MAGIC_BYTES) {
		return f, 0, errors.Wrapf(format.ErrBadMagic, "datum starts with %q", buf[:4])
	}
	wr := ioutil.NewWordReader(buf[4:version.frameSize()])
	f.node = wr.Uint8()
	f.trigMask = wr.Uint8()
	if version == VERSION_AUG_2004 {
		f.size = int(wr.Uint16())
	} else {
		f.flags = uint32(wr.Uint16())
		f.size = int(wr.Uint32())
	}
	return f, version.frameSize(), nil
}

func readCommon(wr *ioutil.WordReader, version Version, f frame, b *Base) error {
	if wr.Remaining() < version.commonSize() {
		return errors.Wrapf(format.ErrSizeInvalid, "datum body of %d bytes", wr.Remaining())
	}
	b.Version = version
	b.NodeNumber = f.node
	b.TriggerMask = f.trigMask
	b.EventNumber = wr.Uint32()
	for i := range b.GPSTime {
		b.GPSTime[i] = wr.Uint16()
	}
	b.GPSYear = wr.Uint8()
	b.EventType = wr.Uint8()
	if version == VERSION_AUG_2004 {
		b.Flags = wr.Uint32()
	} else {
		b.Flags = f.flags
	}
	return nil
}

func keepWilderness(wr *ioutil.WordReader, b *Base) {
	if wr.Remaining() > 0 {
		b.Wilderness = append([]byte(nil), wr.Rest()...)
	} else {
		b.Wilderness = nil
	}
}

// ParseDatum decodes the datum at the start of buf and returns it with the
// number of bytes it took up. Node 255 is the array trigger; every other
// node is a telescope event.
func ParseDatum(buf []byte, version Version) (Datum, int, error) {
	f, n, err := readFrame(buf, version)
	if err != nil {
		return nil, 0, err
	}
	if f.size > len(buf)-n {
		return nil, 0, errors.Wrapf(format.ErrSizeInvalid, "datum claims %d bytes, %d left", f.size, len(buf)-n)
	}
	wr := ioutil.NewWordReader(buf[n : n+f.size])

	var d Datum
	if f.node == format.ARRAY_TRIGGER_NODE {
		at := new(ArrayTrigger)
		err = at.decode(wr, version, f)
		d = at
	} else {
		ev := new(Event)
		err = ev.decode(wr, version, f)
		d = ev
	}
	if err != nil {
		return nil, 0, err
	}
	return d, n + f.size, nil
}

// ParseDatums decodes back to back datums until buf runs out.
func ParseDatums(buf []byte, version Version) ([]Datum, error) {
	var datums []Datum
	for len(buf) > 0 {
		d, n, err := ParseDatum(buf, version)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse datum %d", len(datums))
		}
		datums = append(datums, d)
		buf = buf[n:]
	}
	return datums, nil
}
