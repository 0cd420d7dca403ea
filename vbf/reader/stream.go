package reader

import (
	"bytes"
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

// packetStream frames packets out of a decompressed byte stream. The
// "VPCK" magic is read raw; the u32 that follows is exactly the ring's
// length prefix.
type packetStream struct {
	src      io.ReadCloser
	pump     *ioutil.Pump
	registry *format.Registry
	header   format.Header

	// bytes of body left when the header records a pre-footer size, -1 otherwise
	left  int64
	event int64

	pending *format.Packet
	done    bool
}

func newPacketStream(src io.ReadCloser, ringSize, ringLimit int, reg *format.Registry) (*packetStream, error) {
	if ringSize < format.HEADER_SIZE {
		ringSize = format.HEADER_SIZE
	}
	ring := ioutil.NewRingInput(ringSize)
	if ringLimit > 0 {
		ring.SetLimit(ringLimit)
	}
	s := &packetStream{
		src:      src,
		pump:     ioutil.NewPump(src, ring),
		registry: reg,
		left:     -1,
	}
	if err := s.pump.Fill(format.HEADER_SIZE); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(format.ErrBadFormat, "stream is shorter than a header")
		}
		return nil, err
	}
	raw := make([]byte, format.HEADER_SIZE)
	if err := s.pump.Ring().ReadRaw(raw); err != nil {
		return nil, err
	}
	header, err := format.ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	s.header = header
	if pre := header.PreFooterSize; pre != 0 {
		if pre < format.HEADER_SIZE {
			return nil, errors.Wrapf(format.ErrBadFormat, "pre-footer size %d is inside the header", pre)
		}
		s.left = int64(pre - format.HEADER_SIZE)
	}
	return s, nil
}

// peek decodes the next packet into pending unless one is already there.
func (s *packetStream) peek() error {
	if s.pending != nil || s.done {
		return nil
	}
	p, err := s.next()
	if err == io.EOF {
		s.done = true
		return nil
	} else if err != nil {
		return err
	}
	s.pending = p
	return nil
}

// skip throws away up to n packets and returns how many it threw away.
func (s *packetStream) skip(n uint32) (uint32, error) {
	var skipped uint32
	for skipped < n {
		if err := s.peek(); err != nil {
			return skipped, err
		}
		if s.pending == nil {
			break
		}
		s.pending = nil
		skipped++
	}
	return skipped, nil
}

func (s *packetStream) next() (*format.Packet, error) {
	if s.left == 0 {
		return nil, io.EOF
	}
	ring := s.pump.Ring()
	if err := s.pump.Fill(len(format.PACKET_MAGIC_BYTES)); err != nil {
		return nil, err
	}
	magic := make([]byte, len(format.PACKET_MAGIC_BYTES))
	if err := ring.ReadRaw(magic); err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, format.PACKET_MAGIC_BYTES) {
		return nil, errors.Wrapf(format.ErrBadMagic, "expected %s in stream, found %q", format.PACKET_MAGIC, magic)
	}
	if s.left > 0 {
		if err := s.pump.Fill(ioutil.LENGTH_PREFIX_SIZE); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, errors.Wrap(err, "failed to read packet from stream")
		}
		n, err := ring.PeekLength()
		if err != nil {
			return nil, err
		}
		if int64(n) > s.left-format.PACKET_HEADER_SIZE {
			return nil, errors.Wrapf(format.ErrBadFormat, "packet of %d bytes with %d bytes of body left", n, s.left)
		}
	}
	if err := s.pump.NextPacket(); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrap(err, "failed to read packet from stream")
	}
	body := make([]byte, ring.PacketLength())
	if err := ring.ReadBytes(body); err != nil {
		return nil, err
	}
	if err := ring.EndPacket(); err != nil {
		return nil, err
	}
	if s.left > 0 {
		s.left -= format.PACKET_HEADER_SIZE + int64(len(body))
		if s.left < 0 {
			return nil, errors.Wrap(format.ErrBadFormat, "packet runs past the recorded body size")
		}
	}

	p, err := format.ParsePacket(body, s.registry, s.header.RunNumber, s.event)
	if err != nil {
		return nil, errors.Wrapf(err, "stream packet %d", s.event)
	}
	s.event++
	return p, nil
}

func (s *packetStream) Close() error {
	return s.src.Close()
}
