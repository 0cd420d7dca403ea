package ioutil

import (
	"encoding/binary"
	"io"
	"math"
)

// WireOrder is the byte order of every multi-byte field in a VBF file.
var WireOrder binary.ByteOrder = binary.LittleEndian

// WordWriter writes fixed width scalars in wire order.
// The first error sticks; check Err() once at the end.
type WordWriter struct {
	writer  io.Writer
	scratch [8]byte
	written int64
	err     error
}

func NewWordWriter(w io.Writer) *WordWriter {
	return &WordWriter{writer: w}
}

func (ww *WordWriter) Write(p []byte) (int, error) {
	if ww.err != nil {
		return 0, ww.err
	}
	n, err := ww.writer.Write(p)
	ww.written += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	ww.err = err
	return n, err
}

func (ww *WordWriter) Uint8(v uint8) {
	ww.scratch[0] = v
	ww.Write(ww.scratch[:1])
}

func (ww *WordWriter) Uint16(v uint16) {
	WireOrder.PutUint16(ww.scratch[:2], v)
	ww.Write(ww.scratch[:2])
}

func (ww *WordWriter) Uint32(v uint32) {
	WireOrder.PutUint32(ww.scratch[:4], v)
	ww.Write(ww.scratch[:4])
}

func (ww *WordWriter) Uint64(v uint64) {
	WireOrder.PutUint64(ww.scratch[:8], v)
	ww.Write(ww.scratch[:8])
}

func (ww *WordWriter) Float32(v float32) {
	ww.Uint32(math.Float32bits(v))
}

// Written is the number of bytes accepted by the underlying writer.
func (ww *WordWriter) Written() int64 {
	return ww.written
}

func (ww *WordWriter) Err() error {
	return ww.err
}

// WordReader decodes wire order scalars from a byte span and never reads past its end.
// Like WordWriter, the first short read sticks and later reads return zero.
type WordReader struct {
	buf []byte
	off int
	err error
}

func NewWordReader(buf []byte) *WordReader {
	return &WordReader{buf: buf}
}

func (wr *WordReader) take(n int) []byte {
	if wr.err != nil {
		return nil
	}
	if n < 0 || n > len(wr.buf)-wr.off {
		wr.err = io.ErrUnexpectedEOF
		return nil
	}
	b := wr.buf[wr.off : wr.off+n]
	wr.off += n
	return b
}

func (wr *WordReader) Uint8() uint8 {
	if b := wr.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (wr *WordReader) Uint16() uint16 {
	if b := wr.take(2); b != nil {
		return WireOrder.Uint16(b)
	}
	return 0
}

func (wr *WordReader) Uint32() uint32 {
	if b := wr.take(4); b != nil {
		return WireOrder.Uint32(b)
	}
	return 0
}

func (wr *WordReader) Uint64() uint64 {
	if b := wr.take(8); b != nil {
		return WireOrder.Uint64(b)
	}
	return 0
}

func (wr *WordReader) Float32() float32 {
	return math.Float32frombits(wr.Uint32())
}

// Bytes returns the next n bytes without copying.
func (wr *WordReader) Bytes(n int) []byte {
	return wr.take(n)
}

func (wr *WordReader) Skip(n int) {
	wr.take(n)
}

// Rest returns everything not yet consumed and consumes it.
func (wr *WordReader) Rest() []byte {
	return wr.take(wr.Remaining())
}

func (wr *WordReader) Remaining() int {
	if wr.err != nil {
		return 0
	}
	return len(wr.buf) - wr.off
}

func (wr *WordReader) Err() error {
	return wr.err
}
