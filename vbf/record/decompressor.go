package record

import (
	"github.com/indrora/vbf/vbf/format"
	"github.com/pkg/errors"
)

// Decompressor undoes Compressor. It never reads outside buf.
type Decompressor struct {
	buf        []byte
	cur        int
	hanging    bool
	numSamples int
	bounce     []byte
}

func NewDecompressor(numSamples int, buf []byte) (*Decompressor, error) {
	if numSamples%4 != 0 {
		return nil, errors.Wrapf(format.ErrBadFormat, "compressed event with %d samples per channel", numSamples)
	}
	return &Decompressor{
		buf:        buf,
		numSamples: numSamples,
		bounce:     make([]byte, numSamples+1),
	}, nil
}

// Consumed is how far into buf the stream has been read.
func (dc *Decompressor) Consumed() int {
	return dc.cur
}

func (dc *Decompressor) need(n int) error {
	if dc.cur+n > len(dc.buf) {
		return errors.Wrapf(format.ErrBadFormat, "compressed samples run past the end of the event")
	}
	return nil
}

// Next fills trace with the next channel and reports its xtra bit.
func (dc *Decompressor) Next(trace []byte) (bool, error) {
	ns := dc.numSamples
	if len(trace) != ns {
		return false, errors.Wrapf(format.ErrSizeInvalid, "trace has room for %d samples, want %d", len(trace), ns)
	}
	if err := dc.need(1); err != nil {
		return false, err
	}
	var header byte
	if dc.hanging {
		header = dc.buf[dc.cur-1]&0xf0 | dc.buf[dc.cur]&0x0f
	} else {
		header = dc.buf[dc.cur]
	}
	dc.cur++

	min := header % HEADER_WIDTH
	bits := int(header/HEADER_WIDTH) % 6
	xtraBit := header/HEADER_XTRA != 0

	switch bits {
	case 0:
		for i := range trace {
			trace[i] = min
		}
		return xtraBit, nil
	case BITS_RAW:
		if err := dc.need(ns); err != nil {
			return false, err
		}
		copy(trace, dc.buf[dc.cur:dc.cur+ns])
		if dc.hanging {
			trace[ns-1] = trace[ns-1]&0x0f | dc.buf[dc.cur-1]&0xf0
		}
		dc.cur += ns
		return xtraBit, nil
	}

	var n int
	switch bits {
	case 1:
		n = ns / 8
	case 2:
		n = ns / 4
	case 3:
		n = ns * 3 / 8
	case 4:
		n = ns / 2
	}
	odd := bits == 1 || bits == 3
	var buf []byte
	if dc.hanging {
		if err := dc.need(n); err != nil {
			return false, err
		}
		buf = dc.bounce
		copy(buf, dc.buf[dc.cur:dc.cur+n])
		spare := dc.buf[dc.cur-1]
		if odd && ns&4 != 0 {
			buf[n] = spare >> 4
			dc.hanging = false
		} else {
			buf[n-1] = buf[n-1]&0x0f | spare&0xf0
		}
	} else {
		buf = dc.buf[dc.cur:]
		if odd && ns&4 != 0 {
			dc.hanging = true
			if err := dc.need(1); err != nil {
				return false, err
			}
			dc.cur++
		}
		if err := dc.need(n); err != nil {
			return false, err
		}
	}
	dc.cur += n

	t := 0
	put := func(v byte) {
		trace[t] = min + v
		t++
	}
	switch bits {
	case 1:
		for i := 0; i < n; i++ {
			for j := 0; j < 8; j++ {
				put(buf[i] >> j & 1)
			}
		}
		if ns&4 != 0 {
			for j := 0; j < 4; j++ {
				put(buf[n] >> j & 1)
			}
		}
	case 2:
		for i := 0; i < n; i++ {
			put(buf[i] & 3)
			put(buf[i] >> 2 & 3)
			put(buf[i] >> 4 & 3)
			put(buf[i] >> 6 & 3)
		}
	case 3:
		for i := 0; i+2 < n; i += 3 {
			put(buf[i] & 7)
			put(buf[i] >> 3 & 7)
			put(buf[i]>>6&3 | (buf[i+1]&1)<<2)
			put(buf[i+1] >> 1 & 7)
			put(buf[i+1] >> 4 & 7)
			put(buf[i+1]>>7&1 | (buf[i+2]&3)<<1)
			put(buf[i+2] >> 2 & 7)
			put(buf[i+2] >> 5 & 7)
		}
		if ns&4 != 0 {
			put(buf[n-1] & 7)
			put(buf[n-1] >> 3 & 7)
			put(buf[n-1]>>6&3 | (buf[n]&1)<<2)
			put(buf[n] >> 1 & 7)
		}
	case 4:
		for i := 0; i < n; i++ {
			put(buf[i] & 15)
			put(buf[i] >> 4 & 15)
		}
	}
	return xtraBit, nil
}
