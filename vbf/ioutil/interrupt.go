package ioutil

import (
	"context"

	"github.com/pkg/errors"
)

// WaitForPacket blocks until a whole packet is buffered, growing the ring
// if the packet would not fit. It returns io.EOF when the source ends
// between packets.
func (in *InterruptibleInput) WaitForPacket(ctx context.Context) error {
	return in.wait(ctx, in.packetReady)
}

// WaitForBytes blocks until n unframed bytes are buffered, for reading
// headers and magics with ReadRaw.
func (in *InterruptibleInput) WaitForBytes(ctx context.Context, n int) error {
	if err := in.Grow(n); err != nil {
		return err
	}
	return in.wait(ctx, func() (bool, error) {
		return in.Available() >= n, nil
	})
}

func (in *InterruptibleInput) packetReady() (bool, error) {
	ok, err := in.HasPacket()
	if errors.Is(err, ErrPacketTooBig) {
		n, _ := in.PeekLength()
		if err = in.Grow(n + LENGTH_PREFIX_SIZE); err != nil {
			return false, err
		}
		return in.HasPacket()
	}
	return ok, err
}
