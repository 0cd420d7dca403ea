package ioutil

import (
	"io"

	"github.com/pkg/errors"
)

// Pump moves bytes from a blocking source into a RingInput until what the
// caller asked for is buffered.
type Pump struct {
	source io.Reader
	ring   *RingInput
	eof    bool
}

func NewPump(reader io.Reader, ring *RingInput) *Pump {
	return &Pump{
		source: reader,
		ring:   ring,
	}
}

func (pump *Pump) Ring() *RingInput {
	return pump.ring
}

// Fill buffers at least n unframed bytes. It returns io.EOF when the source
// ends with nothing buffered and io.ErrUnexpectedEOF when it ends part way.
func (pump *Pump) Fill(n int) error {
	if err := pump.ring.Grow(n); err != nil {
		return err
	}
	for pump.ring.Available() < n {
		if pump.eof {
			if pump.ring.Available() == 0 {
				return io.EOF
			}
			return io.ErrUnexpectedEOF
		}
		_, err := pump.ring.Soak(pump.source, 0)
		if err == io.EOF {
			pump.eof = true
		} else if err != nil {
			return errors.Wrap(err, "failed to read from source")
		}
	}
	return nil
}

// NextPacket buffers a whole packet, growing the ring when it is too small,
// and opens it for reading. A packet longer than the ring's limit fails
// with a *LimitError before anything is allocated for it.
func (pump *Pump) NextPacket() error {
	if err := pump.Fill(LENGTH_PREFIX_SIZE); err != nil {
		return err
	}
	n, err := pump.ring.PeekLength()
	if err != nil {
		return err
	}
	if err = pump.Fill(LENGTH_PREFIX_SIZE + n); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return pump.ring.BeginPacket()
}

func growTo(size, need int) int {
	if size < 1 {
		size = 1
	}
	for size < need {
		size *= 2
	}
	return size
}
