package ioutil

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// Every ring packet is prefixed by its body length.
const LENGTH_PREFIX_SIZE = 4

// rollingDiff is the distance from get forward to put in a ring of the given size.
// Equal cursors give size, never 0: callers decide from their empty flags
// whether that means "nothing" or "everything".
func rollingDiff(put, get, size int) int {
	if put > get {
		return put - get
	}
	return size - get + put
}

// copyIn writes p into buf starting at pos, wrapping at the end.
func copyIn(buf []byte, pos int, p []byte) int {
	n := copy(buf[pos:], p)
	if n < len(p) {
		copy(buf, p[n:])
		return len(p) - n
	}
	pos += n
	if pos == len(buf) {
		pos = 0
	}
	return pos
}

// copyOut fills p from buf starting at pos, wrapping at the end.
func copyOut(p []byte, buf []byte, pos int) {
	n := copy(p, buf[pos:])
	if n < len(p) {
		copy(p[n:], buf)
	}
}

/*
RingOutput frames packets into a fixed size circular buffer.

The buffer holds at most two regions. The "pre" region runs from geti to
lengthPtr and contains closed packets waiting to be drained. The "post"
region runs from lengthPtr to puti and contains the packet being written,
starting with its 4 byte length placeholder. Everything else is free.
*/
type RingOutput struct {
	buf       []byte
	size      int
	puti      int
	geti      int
	lengthPtr int
	preEmpty  bool
	postEmpty bool
	scratch   [8]byte
}

func NewRingOutput(size int) *RingOutput {
	return &RingOutput{
		buf:       make([]byte, size),
		size:      size,
		preEmpty:  true,
		postEmpty: true,
	}
}

func (ring *RingOutput) Size() int {
	return ring.size
}

func (ring *RingOutput) preLen() int {
	if ring.preEmpty {
		return 0
	}
	return rollingDiff(ring.lengthPtr, ring.geti, ring.size)
}

func (ring *RingOutput) postLen() int {
	if ring.postEmpty {
		return 0
	}
	return rollingDiff(ring.puti, ring.lengthPtr, ring.size)
}

// InPacket reports whether a packet is open.
func (ring *RingOutput) InPacket() bool {
	return !ring.postEmpty
}

// Empty is true when nothing is waiting to be drained.
func (ring *RingOutput) Empty() bool {
	return ring.preEmpty
}

func (ring *RingOutput) AvailableForWriting() int {
	return ring.size - ring.preLen() - ring.postLen()
}

func (ring *RingOutput) AvailableForReading() int {
	return ring.preLen()
}

// BeginPacket reserves the length placeholder of a new packet.
func (ring *RingOutput) BeginPacket() error {
	if !ring.postEmpty {
		return ErrBadOperation
	}
	if ring.size < LENGTH_PREFIX_SIZE {
		return ErrBufferFull
	}
	if !ring.preEmpty && (ring.puti == ring.geti ||
		rollingDiff(ring.geti, ring.puti, ring.size) < LENGTH_PREFIX_SIZE) {
		return ErrBufferFull
	}
	ring.lengthPtr = ring.puti
	ring.puti = (ring.puti + LENGTH_PREFIX_SIZE) % ring.size
	ring.postEmpty = false
	return nil
}

// writeBytes is all-or-nothing.
func (ring *RingOutput) writeBytes(p []byte) error {
	if ring.postEmpty {
		return ErrNoPacket
	}
	if len(p) == 0 {
		return nil
	}
	if ring.puti >= ring.geti {
		// free space is [puti, size) plus [0, geti)
		if ring.puti == ring.geti {
			return ErrBufferFull
		}
		tail := ring.size - ring.puti
		if len(p) > tail && len(p) > tail+ring.geti {
			return ErrBufferFull
		}
	} else if len(p) > ring.geti-ring.puti {
		return ErrBufferFull
	}
	ring.puti = copyIn(ring.buf, ring.puti, p)
	return nil
}

// Write appends p to the open packet. It never writes partially.
func (ring *RingOutput) Write(p []byte) (int, error) {
	if err := ring.writeBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ring *RingOutput) WriteWord8(v uint8) error {
	ring.scratch[0] = v
	return ring.writeBytes(ring.scratch[:1])
}

func (ring *RingOutput) WriteWord16(v uint16) error {
	WireOrder.PutUint16(ring.scratch[:2], v)
	return ring.writeBytes(ring.scratch[:2])
}

func (ring *RingOutput) WriteWord32(v uint32) error {
	WireOrder.PutUint32(ring.scratch[:4], v)
	return ring.writeBytes(ring.scratch[:4])
}

func (ring *RingOutput) WriteWord64(v uint64) error {
	WireOrder.PutUint64(ring.scratch[:8], v)
	return ring.writeBytes(ring.scratch[:8])
}

func (ring *RingOutput) WriteFloat32(v float32) error {
	return ring.WriteWord32(math.Float32bits(v))
}

func (ring *RingOutput) WriteFloat64(v float64) error {
	return ring.WriteWord64(math.Float64bits(v))
}

// EndPacket fills in the length placeholder and makes the packet drainable.
func (ring *RingOutput) EndPacket() error {
	if ring.postEmpty {
		return ErrNoPacket
	}
	n := rollingDiff(ring.puti, ring.lengthPtr, ring.size) - LENGTH_PREFIX_SIZE
	var prefix [LENGTH_PREFIX_SIZE]byte
	WireOrder.PutUint32(prefix[:], uint32(n))
	copyIn(ring.buf, ring.lengthPtr, prefix[:])
	ring.lengthPtr = ring.puti
	ring.preEmpty = false
	ring.postEmpty = true
	return nil
}

// ResetPacket throws away the open packet.
func (ring *RingOutput) ResetPacket() {
	if ring.postEmpty {
		return
	}
	ring.puti = ring.lengthPtr
	ring.postEmpty = true
}

// Drain writes closed packets to sink. On a short write only the accepted
// bytes are released, so calling Drain again resumes where it stopped.
func (ring *RingOutput) Drain(sink io.Writer) (int, error) {
	if ring.preEmpty {
		return 0, nil
	}
	total := 0
	if ring.geti >= ring.lengthPtr {
		chunk := ring.buf[ring.geti:ring.size]
		n, err := sink.Write(chunk)
		total += n
		ring.geti += n
		if ring.geti == ring.size {
			ring.geti = 0
		}
		if err != nil {
			return total, errors.Wrap(err, "failed to drain ring buffer")
		}
		if n < len(chunk) {
			return total, io.ErrShortWrite
		}
	}
	if ring.geti < ring.lengthPtr {
		chunk := ring.buf[ring.geti:ring.lengthPtr]
		n, err := sink.Write(chunk)
		total += n
		ring.geti += n
		if err != nil {
			return total, errors.Wrap(err, "failed to drain ring buffer")
		}
		if n < len(chunk) {
			return total, io.ErrShortWrite
		}
	}
	if ring.geti == ring.lengthPtr {
		ring.preEmpty = true
	}
	return total, nil
}

// Resize moves both regions into a larger buffer. The pre region lands at the
// front, followed by the open packet.
func (ring *RingOutput) Resize(newSize int) error {
	if newSize < ring.size {
		return errors.Wrapf(ErrInvalidArgument, "cannot shrink ring from %d to %d bytes", ring.size, newSize)
	}
	if newSize == ring.size {
		return nil
	}
	pre, post := ring.preLen(), ring.postLen()
	nbuf := make([]byte, newSize)
	copyOut(nbuf[:pre], ring.buf, ring.geti)
	copyOut(nbuf[pre:pre+post], ring.buf, ring.lengthPtr)
	ring.buf = nbuf
	ring.size = newSize
	ring.geti = 0
	ring.lengthPtr = pre
	ring.puti = pre + post
	return nil
}
