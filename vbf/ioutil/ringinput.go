package ioutil

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// RingInput buffers bytes soaked from a source and hands them back out as
// length prefixed packets. Buffered data runs from geti to puti; empty
// tells the two apart when they are equal.
type RingInput struct {
	buf      []byte
	size     int
	puti     int
	geti     int
	empty    bool
	inPacket bool
	left     int
	length   int
	// Grow never goes past this
	limit    int
	scratch  [8]byte
}

func NewRingInput(size int) *RingInput {
	limit := DEFAULT_RING_LIMIT
	if size > limit {
		limit = size
	}
	return &RingInput{
		buf:   make([]byte, size),
		size:  size,
		empty: true,
		limit: limit,
	}
}

func (ring *RingInput) Limit() int {
	return ring.limit
}

// SetLimit caps how far Grow may take the ring. It does not shrink a ring
// that is already larger.
func (ring *RingInput) SetLimit(n int) {
	ring.limit = n
}

// Grow resizes the ring, doubling, until it holds need bytes. Past the limit
// it fails with a *LimitError and leaves the ring alone.
func (ring *RingInput) Grow(need int) error {
	if need <= ring.size {
		return nil
	}
	if need > ring.limit {
		return &LimitError{Need: need, Limit: ring.limit}
	}
	size := growTo(ring.size, need)
	if size > ring.limit {
		size = ring.limit
	}
	return ring.Resize(size)
}

func (ring *RingInput) Size() int {
	return ring.size
}

// Available is the number of buffered, unconsumed bytes.
func (ring *RingInput) Available() int {
	if ring.empty {
		return 0
	}
	return rollingDiff(ring.puti, ring.geti, ring.size)
}

func (ring *RingInput) Free() int {
	return ring.size - ring.Available()
}

func (ring *RingInput) consume(n int) {
	if n == 0 {
		return
	}
	avail := ring.Available()
	ring.geti = (ring.geti + n) % ring.size
	if n == avail {
		ring.empty = true
	}
}

// Soak reads at most max bytes (all free space when max <= 0) from src with a
// single Read call. A zero byte read with no error means the source had
// nothing to give right now; end of source is reported as io.EOF.
func (ring *RingInput) Soak(src io.Reader, max int) (int, error) {
	if !ring.empty && ring.puti == ring.geti {
		return 0, ErrBufferFull
	}
	if ring.empty && !ring.inPacket {
		ring.puti, ring.geti = 0, 0
	}
	var window []byte
	if ring.empty || ring.puti > ring.geti {
		window = ring.buf[ring.puti:ring.size]
	} else {
		window = ring.buf[ring.puti:ring.geti]
	}
	if max > 0 && max < len(window) {
		window = window[:max]
	}
	n, err := src.Read(window)
	if n > 0 {
		ring.puti = (ring.puti + n) % ring.size
		ring.empty = false
	}
	if err == io.EOF {
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, err
}

// PeekLength returns the length prefix of the next packet without consuming it.
func (ring *RingInput) PeekLength() (int, error) {
	if ring.inPacket {
		return 0, ErrBadOperation
	}
	if ring.Available() < LENGTH_PREFIX_SIZE {
		return 0, ErrNotEnoughData
	}
	var prefix [LENGTH_PREFIX_SIZE]byte
	copyOut(prefix[:], ring.buf, ring.geti)
	return int(WireOrder.Uint32(prefix[:])), nil
}

// HasPacket reports whether a complete packet is buffered.
func (ring *RingInput) HasPacket() (bool, error) {
	n, err := ring.PeekLength()
	if errors.Is(err, ErrNotEnoughData) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if n > ring.size-LENGTH_PREFIX_SIZE {
		return false, errors.Wrapf(ErrPacketTooBig, "packet of %d bytes in a %d byte ring", n, ring.size)
	}
	return ring.Available() >= LENGTH_PREFIX_SIZE+n, nil
}

// BeginPacket consumes the length prefix of a fully buffered packet.
func (ring *RingInput) BeginPacket() error {
	n, err := ring.PeekLength()
	if err != nil {
		return err
	}
	if n > ring.size-LENGTH_PREFIX_SIZE {
		return errors.Wrapf(ErrPacketTooBig, "packet of %d bytes in a %d byte ring", n, ring.size)
	}
	if ring.Available() < LENGTH_PREFIX_SIZE+n {
		return ErrNotEnoughData
	}
	ring.consume(LENGTH_PREFIX_SIZE)
	ring.inPacket = true
	ring.left = n
	ring.length = n
	return nil
}

func (ring *RingInput) InPacket() bool {
	return ring.inPacket
}

// PacketLength is the body length of the open packet.
func (ring *RingInput) PacketLength() int {
	return ring.length
}

// Remaining is the number of unread bytes of the open packet.
func (ring *RingInput) Remaining() int {
	return ring.left
}

// Read reads from the open packet and returns io.EOF at its end.
func (ring *RingInput) Read(p []byte) (int, error) {
	if !ring.inPacket {
		return 0, ErrNoPacket
	}
	if ring.left == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := len(p)
	if n > ring.left {
		n = ring.left
	}
	copyOut(p[:n], ring.buf, ring.geti)
	ring.consume(n)
	ring.left -= n
	return n, nil
}

// ReadBytes fills p from the open packet or fails without consuming anything.
func (ring *RingInput) ReadBytes(p []byte) error {
	if !ring.inPacket {
		return ErrNoPacket
	}
	if len(p) > ring.left {
		return errors.Wrapf(ErrNotEnoughData, "wanted %d bytes, %d left in packet", len(p), ring.left)
	}
	_, err := ring.Read(p)
	return err
}

func (ring *RingInput) ReadWord8() (uint8, error) {
	err := ring.ReadBytes(ring.scratch[:1])
	return ring.scratch[0], err
}

func (ring *RingInput) ReadWord16() (uint16, error) {
	if err := ring.ReadBytes(ring.scratch[:2]); err != nil {
		return 0, err
	}
	return WireOrder.Uint16(ring.scratch[:2]), nil
}

func (ring *RingInput) ReadWord32() (uint32, error) {
	if err := ring.ReadBytes(ring.scratch[:4]); err != nil {
		return 0, err
	}
	return WireOrder.Uint32(ring.scratch[:4]), nil
}

func (ring *RingInput) ReadWord64() (uint64, error) {
	if err := ring.ReadBytes(ring.scratch[:8]); err != nil {
		return 0, err
	}
	return WireOrder.Uint64(ring.scratch[:8]), nil
}

func (ring *RingInput) ReadFloat32() (float32, error) {
	v, err := ring.ReadWord32()
	return math.Float32frombits(v), err
}

func (ring *RingInput) ReadFloat64() (float64, error) {
	v, err := ring.ReadWord64()
	return math.Float64frombits(v), err
}

// EndPacket skips whatever is left of the open packet.
func (ring *RingInput) EndPacket() error {
	if !ring.inPacket {
		return ErrNoPacket
	}
	ring.consume(ring.left)
	ring.left = 0
	ring.length = 0
	ring.inPacket = false
	return nil
}

// ReadRaw consumes unframed bytes between packets, such as a file header or
// a packet magic.
func (ring *RingInput) ReadRaw(p []byte) error {
	if ring.inPacket {
		return ErrBadOperation
	}
	if ring.Available() < len(p) {
		return errors.Wrapf(ErrNotEnoughData, "wanted %d raw bytes, have %d", len(p), ring.Available())
	}
	copyOut(p, ring.buf, ring.geti)
	ring.consume(len(p))
	return nil
}

// Resize moves the buffered bytes to the front of a larger buffer.
func (ring *RingInput) Resize(newSize int) error {
	if newSize < ring.size {
		return errors.Wrapf(ErrInvalidArgument, "cannot shrink ring from %d to %d bytes", ring.size, newSize)
	}
	if newSize == ring.size {
		return nil
	}
	avail := ring.Available()
	nbuf := make([]byte, newSize)
	copyOut(nbuf[:avail], ring.buf, ring.geti)
	ring.buf = nbuf
	ring.size = newSize
	ring.geti = 0
	ring.puti = avail
	return nil
}
