package writer

import (
	"os"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

const DEFAULT_RING_SIZE = 1 << 16

type options struct {
	keepIndex bool
	ringSize  int
}

type Option func(*options)

// KeepIndex decides whether Finish writes a footer. It is on by default.
// Without one the checksum and pre-footer size stay 0.
func KeepIndex(keep bool) Option {
	return func(o *options) { o.keepIndex = keep }
}

// RingSize is the starting size of the staging ring. It grows to fit the
// largest packet.
func RingSize(n int) Option {
	return func(o *options) { o.ringSize = n }
}

// Writer appends packets to a new VBF file. Every byte of header and body
// goes through an Adler-32 on its way to disk, so Finish never rereads the
// file.
type Writer struct {
	path   string
	file   *os.File
	opts   options
	header format.Header

	hash    *ioutil.HashWriter
	counter *ioutil.BlockWriter
	ring    *ioutil.RingOutput

	offsets  []uint64
	next     uint32
	finished bool
	// first failed write to the file; sticks until Close
	err error
}

// Create truncates path and writes an unfinished header to it.
func Create(path string, run uint32, mask format.ConfigMask, opts ...Option) (*Writer, error) {
	o := options{
		keepIndex: true,
		ringSize:  DEFAULT_RING_SIZE,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ringSize < format.PACKET_HEADER_SIZE {
		o.ringSize = format.PACKET_HEADER_SIZE
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", path)
	}

	hash := ioutil.NewHashWriter(file, ioutil.NewAdler(ioutil.ADLER_SEED))
	w := &Writer{
		path:    path,
		file:    file,
		opts:    o,
		header:  format.NewHeader(run, mask),
		hash:    hash,
		counter: ioutil.NewBlockWriter(hash, 1),
		ring:    ioutil.NewRingOutput(o.ringSize),
	}
	if err = w.header.WriteHeader(w.counter); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) RunNumber() uint32 {
	return w.header.RunNumber
}

func (w *Writer) ConfigMask() format.ConfigMask {
	return w.header.ConfigMask
}

// NextIndex is the index the next WritePacket will get.
func (w *Writer) NextIndex() uint32 {
	return w.next
}

func (w *Writer) WritePacket(p *format.Packet) error {
	return w.WritePacketAt(w.next, p)
}

// WritePacketAt writes p as packet i, filling any gap before it with empty
// packets. i may not be behind NextIndex.
func (w *Writer) WritePacketAt(i uint32, p *format.Packet) error {
	if w.finished {
		return format.ErrWriterFinished
	}
	if w.err != nil {
		return w.err
	}
	if i < w.next {
		return errors.Wrapf(format.ErrBadIndex, "packet %d, next is %d", i, w.next)
	}
	for w.next < i {
		if err := w.writePacket(format.NewPacket()); err != nil {
			return errors.Wrapf(err, "failed to fill gap at packet %d", w.next)
		}
	}
	return w.writePacket(p)
}

func (w *Writer) WriteEmptyPacket() error {
	return w.WritePacket(format.NewPacket())
}

// writePacket stages the length prefixed body in the ring, then writes the
// magic and drains the ring behind it. A packet that fails to encode leaves
// nothing on disk. A failed file write is latched in w.err.
func (w *Writer) writePacket(p *format.Packet) error {
	size := p.Size()
	if size > uint64(^uint32(0)) {
		return errors.Wrapf(format.ErrSizeInvalid, "packet of %d bytes", size)
	}
	need := ioutil.LENGTH_PREFIX_SIZE + int(size)
	if need > w.ring.Size() {
		grown := w.ring.Size()
		for grown < need {
			grown *= 2
		}
		if err := w.ring.Resize(grown); err != nil {
			return err
		}
	}

	if err := w.ring.BeginPacket(); err != nil {
		return err
	}
	if err := p.Encode(w.ring); err != nil {
		w.ring.ResetPacket()
		return errors.Wrapf(err, "failed to encode packet %d", w.next)
	}
	if err := w.ring.EndPacket(); err != nil {
		return err
	}

	offset := w.counter.Written()
	if _, err := w.counter.Write(format.PACKET_MAGIC_BYTES); err != nil {
		w.err = errors.Wrapf(err, "failed to write packet %d", w.next)
		return w.err
	}
	for !w.ring.Empty() {
		if _, err := w.ring.Drain(w.counter); err != nil {
			w.err = errors.Wrapf(err, "failed to write packet %d", w.next)
			return w.err
		}
	}
	w.offsets = append(w.offsets, offset)
	w.next++
	return nil
}

// Finish writes the footer, then the checksum, then the pre-footer size. The
// pre-footer size goes last so that a file cut short before it reads as
// having no footer. Without KeepIndex none of the three are written. The
// writer is closed afterwards. After a failed write Finish returns that
// error and leaves the file to Close.
func (w *Writer) Finish() error {
	if w.finished {
		return format.ErrWriterFinished
	}
	if w.err != nil {
		return w.err
	}
	w.finished = true
	if w.opts.keepIndex {
		if err := w.finalize(); err != nil {
			w.file.Close()
			return err
		}
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return errors.Wrap(err, "failed to sync file")
	}
	return errors.Wrapf(w.file.Close(), "failed to close %s", w.path)
}

func (w *Writer) finalize() error {
	preFooter := w.counter.Written()
	sum := w.hash.Sum32()

	ww := ioutil.NewWordWriter(w.file)
	ww.Uint32(uint32(len(w.offsets)))
	for _, offset := range w.offsets {
		ww.Uint64(offset)
	}
	if err := ww.Err(); err != nil {
		return errors.Wrap(err, "failed to write footer")
	}

	var word [8]byte
	ioutil.WireOrder.PutUint32(word[:4], sum)
	if _, err := w.file.WriteAt(word[:4], format.CHECKSUM_OFFSET); err != nil {
		return errors.Wrap(err, "failed to write checksum")
	}
	w.header.Checksum = sum
	ioutil.WireOrder.PutUint64(word[:], preFooter)
	if _, err := w.file.WriteAt(word[:], format.PRE_FOOTER_OFFSET); err != nil {
		return errors.Wrap(err, "failed to write pre-footer size")
	}
	w.header.PreFooterSize = preFooter
	return nil
}

// Checksum is the running Adler-32 of everything written so far.
func (w *Writer) Checksum() uint32 {
	return w.hash.Sum32()
}

// Close abandons an unfinished file as it stands, without footer or checksum.
func (w *Writer) Close() error {
	if w.finished {
		return nil
	}
	w.finished = true
	return errors.Wrapf(w.file.Close(), "failed to close %s", w.path)
}
