package record

import (
	"github.com/indrora/vbf/vbf/format"
	"github.com/pkg/errors"
)

/*

Each channel is one header byte followed by its samples packed at a fixed
bit width, least significant sample first:

	header = min + 21*bits + (xtra ? 126 : 0)

min is the smallest sample, capped at 20, and bits (0..5) is the width of
max-min; 5 means the samples are stored as plain bytes. When a channel ends
on half a byte, the next channel's header is split around that spare nibble
instead of padding: its high half goes into the spare nibble and its low
half starts the next byte. The spare nibble of the last payload byte moves
into the high half of the header byte in the same way.

*/

const (
	MAX_MIN      = 20
	BITS_RAW     = 5
	HEADER_XTRA  = 21 * 6
	HEADER_WIDTH = 21
)

// Compressor packs one event's traces. The number of samples per trace is
// fixed and must be a multiple of 4.
type Compressor struct {
	buf        []byte
	hanging    bool
	numSamples int
	count      int
}

func NewCompressor(numSamples, numChannels int) (*Compressor, error) {
	if numSamples%4 != 0 {
		return nil, errors.Wrapf(format.ErrSizeInvalid, "cannot compress %d samples per channel", numSamples)
	}
	return &Compressor{
		buf:        make([]byte, 0, (numSamples+1)*numChannels),
		numSamples: numSamples,
	}, nil
}

func (compressor *Compressor) back() *byte {
	return &compressor.buf[len(compressor.buf)-1]
}

func (compressor *Compressor) push(b byte) {
	compressor.buf = append(compressor.buf, b)
}

// Bytes is the packed stream so far. The last byte may be half used.
func (compressor *Compressor) Bytes() []byte {
	return compressor.buf
}

// Bits is the number of meaningful bits in Bytes.
func (compressor *Compressor) Bits() int {
	n := len(compressor.buf) * 8
	if compressor.hanging {
		n -= 4
	}
	return n
}

func traceRange(trace []byte) (uint8, int) {
	min, max := uint8(255), uint8(0)
	for _, s := range trace {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if min > MAX_MIN {
		min = MAX_MIN
	}
	bits := 0
	for r := max - min; r > 0; r >>= 1 {
		bits++
	}
	if bits > 4 {
		bits = BITS_RAW
	}
	return min, bits
}

func (compressor *Compressor) Add(trace []byte, xtraBit bool) error {
	ns := compressor.numSamples
	if len(trace) != ns {
		return errors.Wrapf(format.ErrSizeInvalid, "trace has %d samples, want %d", len(trace), ns)
	}
	min, bits := traceRange(trace)
	header := min + uint8(bits*HEADER_WIDTH)
	if xtraBit {
		header += HEADER_XTRA
	}

	if compressor.hanging {
		*compressor.back() |= header & 0xf0
		compressor.push(header & 0x0f)
	} else {
		compressor.push(header)
	}
	lastI := len(compressor.buf) - 1
	nextHanging := false

	s := func(i int) byte { return trace[i] - min }
	switch bits {
	case 0:
	case 1:
		n := ns &^ 7
		for i := 0; i < n; i += 8 {
			compressor.push(s(i) | s(i+1)<<1 | s(i+2)<<2 | s(i+3)<<3 |
				s(i+4)<<4 | s(i+5)<<5 | s(i+6)<<6 | s(i+7)<<7)
		}
		if n != ns {
			compressor.push(s(n) | s(n+1)<<1 | s(n+2)<<2 | s(n+3)<<3)
			nextHanging = true
		}
	case 2:
		for i := 0; i < ns; i += 4 {
			compressor.push(s(i) | s(i+1)<<2 | s(i+2)<<4 | s(i+3)<<6)
		}
	case 3:
		n := ns &^ 7
		for i := 0; i < n; i += 8 {
			compressor.push(s(i) | s(i+1)<<3 | (s(i+2)&3)<<6)
			compressor.push((s(i+2)>>2)&1 | s(i+3)<<1 | s(i+4)<<4 | (s(i+5)&1)<<7)
			compressor.push((s(i+5)>>1)&3 | s(i+6)<<2 | s(i+7)<<5)
		}
		if n != ns {
			compressor.push(s(n) | s(n+1)<<3 | (s(n+2)&3)<<6)
			compressor.push((s(n+2)>>2)&1 | s(n+3)<<1)
			nextHanging = true
		}
	case 4:
		for i := 0; i < ns; i += 2 {
			compressor.push(s(i) | s(i+1)<<4)
		}
	case BITS_RAW:
		compressor.buf = append(compressor.buf, trace...)
	}

	if compressor.hanging {
		if nextHanging {
			compressor.buf[lastI] |= *compressor.back() << 4
			compressor.buf = compressor.buf[:len(compressor.buf)-1]
			compressor.hanging = false
		} else {
			compressor.buf[lastI] |= *compressor.back() & 0xf0
			*compressor.back() &= 0x0f
		}
	} else {
		compressor.hanging = nextHanging
	}
	compressor.count++
	return nil
}

// ChannelBits is how many bits Add spends on a trace with the given width.
func ChannelBits(bits, numSamples int) int {
	if bits == BITS_RAW {
		return 8 + 8*numSamples
	}
	return 8 + bits*numSamples
}
