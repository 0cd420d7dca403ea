package record

import (
	"bytes"
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

const (
	CLOCK_TRIG_WORDS = 7
	// bit 15 of the AUG_2004 sample count
	LEGACY_COMPRESSED_BIT = 1 << 15
	// bit 0 of the AUG_2005 frame flags
	COMPRESSED_FLAG = 1
	HI_LO_BIT       = 1 << 15
)

type Channel struct {
	// Pedestal in the low 15 bits, hi/lo gain switch in bit 15.
	PedHiLo uint16
	Charge  uint16
	Samples []byte
}

func (c *Channel) Pedestal() uint16 {
	return c.PedHiLo &^ HI_LO_BIT
}

func (c *Channel) HiLo() bool {
	return c.PedHiLo&HI_LO_BIT != 0
}

func (c *Channel) SetPedestal(ped uint16, hiLo bool) {
	c.PedHiLo = ped &^ HI_LO_BIT
	if hiLo {
		c.PedHiLo |= HI_LO_BIT
	}
}

// SampleSum is the charge a decoder assumes when none was stored.
func (c *Channel) SampleSum() uint32 {
	var sum uint32
	for _, s := range c.Samples {
		sum += uint32(s)
	}
	return sum
}

func (c *Channel) needsXtra() bool {
	return c.PedHiLo != 0 || uint32(c.Charge) != c.SampleSum()
}

// Event is one telescope's readout for one array event.
type Event struct {
	Base
	// AUG_2005 only.
	DotModule  uint32
	Compressed bool
	NumSamples uint16
	// Length of the hit and trigger patterns, in bits.
	MaxChannels    uint16
	HitPattern     []uint32
	TriggerPattern []uint32
	// One per hit channel, in channel order.
	Channels      []Channel
	ClockTrigData [][CLOCK_TRIG_WORDS]uint32
}

// NewEvent makes an empty current-version event with every buffer sized.
func NewEvent(numSamples, numChannels, maxChannels, numClockTrigBoards uint16) *Event {
	ev := &Event{
		Base:        Base{Version: CURRENT_VERSION},
		NumSamples:  numSamples,
		MaxChannels: maxChannels,
	}
	words := patternWords(maxChannels)
	ev.HitPattern = make([]uint32, words)
	ev.TriggerPattern = make([]uint32, words)
	ev.Channels = make([]Channel, numChannels)
	for i := range ev.Channels {
		ev.Channels[i].Samples = make([]byte, numSamples)
	}
	ev.ClockTrigData = make([][CLOCK_TRIG_WORDS]uint32, numClockTrigBoards)
	return ev
}

func patternWords(maxChannels uint16) int {
	return (int(maxChannels) + 31) >> 5
}

func getBit(pattern []uint32, i int) bool {
	if i < 0 || i>>5 >= len(pattern) {
		return false
	}
	return pattern[i>>5]&(1<<(i&31)) != 0
}

func setBit(pattern []uint32, i int, v bool) {
	if i < 0 || i>>5 >= len(pattern) {
		return
	}
	if v {
		pattern[i>>5] |= 1 << (i & 31)
	} else {
		pattern[i>>5] &^= 1 << (i & 31)
	}
}

func (ev *Event) HitBit(ch int) bool {
	return getBit(ev.HitPattern, ch)
}

func (ev *Event) SetHitBit(ch int, v bool) {
	setBit(ev.HitPattern, ch, v)
}

func (ev *Event) TriggerBit(ch int) bool {
	return getBit(ev.TriggerPattern, ch)
}

func (ev *Event) SetTriggerBit(ch int, v bool) {
	setBit(ev.TriggerPattern, ch, v)
}

// HitIDs lists the channel numbers set in the hit pattern. Channels[i]
// belongs to HitIDs()[i].
func (ev *Event) HitIDs() []int {
	var ids []int
	for ch := 0; ch < int(ev.MaxChannels); ch++ {
		if ev.HitBit(ch) {
			ids = append(ids, ch)
		}
	}
	return ids
}

// ChannelByID finds the readout of a channel, if it was hit.
func (ev *Event) ChannelByID(ch int) (*Channel, bool) {
	if !ev.HitBit(ch) {
		return nil, false
	}
	j := 0
	for i := 0; i < ch; i++ {
		if ev.HitBit(i) {
			j++
		}
	}
	if j >= len(ev.Channels) {
		return nil, false
	}
	return &ev.Channels[j], true
}

func (ev *Event) WillUseCompression() bool {
	return ev.Compressed && ev.NumSamples != 0
}

func (ev *Event) frameFlags() uint32 {
	flags := ev.Flags &^ COMPRESSED_FLAG
	if ev.Compressed {
		flags |= COMPRESSED_FLAG
	}
	return flags
}

func (ev *Event) validate() error {
	if ev.Version == VERSION_AUG_2004 && ev.NumSamples&LEGACY_COMPRESSED_BIT != 0 {
		return errors.Wrapf(format.ErrSizeInvalid, "%d samples do not fit an AUG_2004 event", ev.NumSamples)
	}
	if len(ev.Channels) > 0xffff {
		return errors.Wrapf(format.ErrSizeInvalid, "%d channels", len(ev.Channels))
	}
	if len(ev.ClockTrigData) > 0xffff {
		return errors.Wrapf(format.ErrSizeInvalid, "%d clock trigger boards", len(ev.ClockTrigData))
	}
	words := patternWords(ev.MaxChannels)
	if len(ev.HitPattern) != words || len(ev.TriggerPattern) != words {
		return errors.Wrapf(format.ErrSizeInvalid, "patterns for %d channels need %d words", ev.MaxChannels, words)
	}
	for i := range ev.Channels {
		if len(ev.Channels[i].Samples) != int(ev.NumSamples) {
			return errors.Wrapf(format.ErrSizeInvalid, "channel %d has %d samples, want %d", i, len(ev.Channels[i].Samples), ev.NumSamples)
		}
	}
	return nil
}

// compress returns the packed samples and the channels that carry their own
// pedestal and charge.
func (ev *Event) compress() ([]byte, []int, error) {
	compressor, err := NewCompressor(int(ev.NumSamples), len(ev.Channels))
	if err != nil {
		return nil, nil, err
	}
	var xtra []int
	for i := range ev.Channels {
		ch := &ev.Channels[i]
		x := ch.needsXtra()
		if x {
			xtra = append(xtra, i)
		}
		if err = compressor.Add(ch.Samples, x); err != nil {
			return nil, nil, err
		}
	}
	return compressor.Bytes(), xtra, nil
}

func (ev *Event) kindBody() ([]byte, error) {
	if err := ev.validate(); err != nil {
		return nil, err
	}
	body := new(bytes.Buffer)
	ww := ioutil.NewWordWriter(body)
	ns := ev.NumSamples
	if ev.Version == VERSION_AUG_2004 && ev.Compressed {
		ns |= LEGACY_COMPRESSED_BIT
	}
	if ev.Version != VERSION_AUG_2004 {
		ww.Uint32(ev.DotModule)
	}
	ww.Uint16(ns)
	ww.Uint16(uint16(len(ev.Channels)))
	ww.Uint16(ev.MaxChannels)
	ww.Uint16(uint16(len(ev.ClockTrigData)))
	for _, w := range ev.HitPattern {
		ww.Uint32(w)
	}
	for _, w := range ev.TriggerPattern {
		ww.Uint32(w)
	}
	if ev.WillUseCompression() {
		cs, xtra, err := ev.compress()
		if err != nil {
			return nil, err
		}
		aligned := ioutil.NewBlockWriter(ww, 4)
		if _, err = aligned.WriteWhole(cs); err != nil {
			return nil, err
		}
		for _, i := range xtra {
			ww.Uint16(ev.Channels[i].PedHiLo)
			ww.Uint16(ev.Channels[i].Charge)
		}
	} else {
		for _, ch := range ev.Channels {
			ww.Write(ch.Samples)
			ww.Uint16(ch.PedHiLo)
			ww.Uint16(ch.Charge)
		}
	}
	for _, board := range ev.ClockTrigData {
		for _, w := range board {
			ww.Uint32(w)
		}
	}
	return body.Bytes(), ww.Err()
}

// Size is 0 when the event cannot be encoded; Encode says why.
func (ev *Event) Size() uint32 {
	body, err := ev.kindBody()
	if err != nil {
		return 0
	}
	return uint32(ev.Version.frameSize() + ev.Version.commonSize() + len(body) + len(ev.Wilderness))
}

func (ev *Event) Encode(w io.Writer) error {
	body, err := ev.kindBody()
	if err != nil {
		return errors.Wrapf(err, "failed to encode event from node %d", ev.NodeNumber)
	}
	return writeDatum(w, &ev.Base, ev.frameFlags(), body)
}

func (ev *Event) decode(wr *ioutil.WordReader, version Version, f frame) error {
	if err := readCommon(wr, version, f, &ev.Base); err != nil {
		return err
	}
	fixed := 8
	if version == VERSION_AUG_2005 {
		fixed = 12
	}
	if wr.Remaining() < fixed {
		return errors.Wrapf(format.ErrSizeInvalid, "event body of %d bytes", wr.Remaining())
	}
	if version == VERSION_AUG_2005 {
		ev.DotModule = wr.Uint32()
	}
	ns := wr.Uint16()
	if version == VERSION_AUG_2005 {
		ev.Compressed = ev.Flags&COMPRESSED_FLAG != 0
		ev.Flags &^= COMPRESSED_FLAG
	} else {
		ev.Compressed = ns&LEGACY_COMPRESSED_BIT != 0
		ns &^= LEGACY_COMPRESSED_BIT
	}
	ev.NumSamples = ns
	nch := int(wr.Uint16())
	ev.MaxChannels = wr.Uint16()
	nctb := int(wr.Uint16())
	words := patternWords(ev.MaxChannels)

	if ev.WillUseCompression() {
		if wr.Remaining() < 8*words {
			return errors.Wrapf(format.ErrSizeInvalid, "no room for the channel patterns")
		}
		// every compressed channel takes at least its header byte
		if nch > wr.Remaining()-8*words {
			return errors.Wrapf(format.ErrBadFormat, "%d compressed channels in %d bytes", nch, wr.Remaining()-8*words)
		}
	} else if wr.Remaining() < 8*words+nch*(4+int(ns))+4*CLOCK_TRIG_WORDS*nctb {
		return errors.Wrapf(format.ErrSizeInvalid, "event body of %d bytes is too small for %d channels of %d samples",
			wr.Remaining(), nch, ns)
	}
	ev.HitPattern = make([]uint32, words)
	ev.TriggerPattern = make([]uint32, words)
	for i := range ev.HitPattern {
		ev.HitPattern[i] = wr.Uint32()
	}
	for i := range ev.TriggerPattern {
		ev.TriggerPattern[i] = wr.Uint32()
	}

	ev.Channels = make([]Channel, nch)
	samples := make([]byte, nch*int(ns))
	for i := range ev.Channels {
		ev.Channels[i].Samples = samples[i*int(ns) : (i+1)*int(ns) : (i+1)*int(ns)]
	}

	if ev.WillUseCompression() {
		stream := wr.Bytes(wr.Remaining())
		dc, err := NewDecompressor(int(ns), stream)
		if err != nil {
			return err
		}
		var xtra []int
		for i := range ev.Channels {
			ch := &ev.Channels[i]
			x, err := dc.Next(ch.Samples)
			if err != nil {
				return errors.Wrapf(err, "failed to decompress channel %d", i)
			}
			if x {
				xtra = append(xtra, i)
			} else {
				ch.Charge = uint16(ch.SampleSum())
				ch.PedHiLo = 0
			}
		}
		used := ioutil.AlignUp(dc.Consumed(), 4)
		if used > len(stream) || len(stream)-used < 4*len(xtra)+4*CLOCK_TRIG_WORDS*nctb {
			return errors.Wrapf(format.ErrSizeInvalid, "event body too small after compressed samples")
		}
		wr = ioutil.NewWordReader(stream[used:])
		for _, i := range xtra {
			ev.Channels[i].PedHiLo = wr.Uint16()
			ev.Channels[i].Charge = wr.Uint16()
		}
	} else {
		for i := range ev.Channels {
			copy(ev.Channels[i].Samples, wr.Bytes(int(ns)))
			ev.Channels[i].PedHiLo = wr.Uint16()
			ev.Channels[i].Charge = wr.Uint16()
		}
	}

	ev.ClockTrigData = make([][CLOCK_TRIG_WORDS]uint32, nctb)
	for i := range ev.ClockTrigData {
		for j := range ev.ClockTrigData[i] {
			ev.ClockTrigData[i][j] = wr.Uint32()
		}
	}
	if err := wr.Err(); err != nil {
		return errors.Wrap(format.ErrSizeInvalid, err.Error())
	}
	keepWilderness(wr, &ev.Base)
	return nil
}
